// Package plugin defines the pluggable aggregator contract: an open
// set of metric-type handlers registered by a short byte-tag, built
// lazily per key and dispatched to in isolation from the built-in
// aggregators.
package plugin

import "github.com/grafana/statsdaggd/internal/aggregate"

// Instance is a single plugin-owned aggregation object, created once
// per key on first sight of that key's metric type.
type Instance interface {
	// Process absorbs one message's "|"-separated fields.
	Process(fields [][]byte) error
	// Flush produces this window's emissions for the instance.
	Flush(intervalMS int64, timestamp int64) []aggregate.Emission
}

// Factory registers a plugin under a metric-type tag and builds
// instances for keys seen under that tag.
type Factory interface {
	// Name is the short byte tag used to build the "stats.<name>"
	// emission prefix, and the metric-type tag this factory answers to
	// in the line parser's grammar.
	Name() string
	// BuildMetric creates a new instance for key, given the emission
	// prefix and a wall-clock source.
	BuildMetric(prefix, name string, wallClock func() int64) Instance
}

// Registry holds the set of registered plugin factories, keyed by
// metric-type tag.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds factory under its own Name(). A later registration
// for the same name replaces the earlier one.
func (r *Registry) Register(factory Factory) {
	r.factories[factory.Name()] = factory
}

// Lookup returns the factory registered for typ, if any.
func (r *Registry) Lookup(typ string) (Factory, bool) {
	f, ok := r.factories[typ]
	return f, ok
}

// IsRegistered reports whether typ names a registered plugin. Suitable
// as the parser's isPlugin callback.
func (r *Registry) IsRegistered(typ []byte) bool {
	_, ok := r.factories[string(typ)]
	return ok
}

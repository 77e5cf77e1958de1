// Package processor implements the coordinator that owns every
// aggregator's state, routes parsed records to the right one, and
// drives the flush cycle. It is the owning piece spec.md calls "the
// processor" (§4.8): the single place ingest and flush share state.
package processor

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grafana/statsdaggd/internal/aggregate"
	"github.com/grafana/statsdaggd/internal/parser"
	"github.com/grafana/statsdaggd/internal/plugin"
	"github.com/grafana/statsdaggd/internal/telemetry"
)

// Built-in metric-type tags.
const (
	typeCounter = "c"
	typeTimer   = "ms"
	typeGauge   = "g"
	typeMeter   = "m"
)

// Processor owns every aggregator's state and the process-timing map.
// It is a single-owner state machine (spec.md §5): one goroutine must
// drive both Process and Flush, or the caller must hold an external
// lock across both. Nothing here is safe for concurrent use on its
// own — see the Actor in actor.go for a channel-serialized wrapper
// suitable for a UDP ingest loop plus a periodic ticker.
type Processor struct {
	counters *aggregate.Counter
	timers   *aggregate.Timer
	gauges   *aggregate.Gauge
	meters   *aggregate.Meter

	plugins         *plugin.Registry
	pluginInstances map[string]plugin.Instance
	pluginKeyType   map[string]string

	wallClock func() int64
	log       *logrus.Logger
	tm        *telemetry.Telemetry

	ingestDuration map[string]time.Duration
	ingestCount    map[string]int64
}

// Option configures a Processor at construction time.
type Option func(*Processor)

// WithPluginRegistry installs a plugin registry. Without this option,
// unknown type tags are always rejected.
func WithPluginRegistry(r *plugin.Registry) Option {
	return func(p *Processor) { p.plugins = r }
}

// WithLogger installs a logrus logger. Defaults to logrus.StandardLogger().
func WithLogger(l *logrus.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// WithTelemetry installs the operational counters malformed drops and
// plugin failures are reported to. Without this option those events
// are only logged, not counted.
func WithTelemetry(tm *telemetry.Telemetry) Option {
	return func(p *Processor) { p.tm = tm }
}

// New constructs a Processor. wallClock returns the current time in
// whole seconds and is passed to meter reporters and flush timestamps
// (spec.md §5: "the wall-clock reader is a caller-supplied function,
// for testability").
func New(wallClock func() int64, opts ...Option) *Processor {
	p := &Processor{
		counters:        aggregate.NewCounter(),
		timers:          aggregate.NewTimer(),
		gauges:          aggregate.NewGauge(),
		meters:          aggregate.NewMeter(wallClock),
		plugins:         plugin.NewRegistry(),
		pluginInstances: make(map[string]plugin.Instance),
		pluginKeyType:   make(map[string]string),
		wallClock:       wallClock,
		log:             logrus.StandardLogger(),
		ingestDuration:  make(map[string]time.Duration),
		ingestCount:     make(map[string]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process parses and routes one datagram payload, accruing per-type
// ingest duration and count. It never propagates an error to the
// caller: every rejection is logged and dropped (spec.md §7).
func (p *Processor) Process(payload []byte) {
	start := time.Now()

	rec, ok, reason := parser.Parse(payload, p.plugins.IsRegistered)
	if !ok {
		p.log.WithField("reason", reason.String()).Debugf("rejected payload: %q", payload)
		if p.tm != nil {
			p.tm.MalformedDropped.Inc(1)
		}
		return
	}

	typ := string(rec.Type)
	isPlugin := typ != typeCounter && typ != typeTimer && typ != typeGauge && typ != typeMeter
	var err error
	switch typ {
	case typeCounter:
		err = p.counters.Update(rec.Key, rec.Fields)
	case typeTimer:
		err = p.timers.Update(rec.Key, rec.Fields)
	case typeGauge:
		err = p.gauges.Update(rec.Key, rec.Fields)
	case typeMeter:
		err = p.meters.Update(rec.Key, rec.Fields)
	default:
		err = p.dispatchPlugin(typ, rec.Key, rec.Fields)
	}
	if err != nil {
		p.log.WithError(err).Debug("rejected payload")
		if p.tm != nil {
			if isPlugin {
				p.tm.PluginFailures.Inc(1)
			} else {
				p.tm.MalformedDropped.Inc(1)
			}
		}
		return
	}

	p.ingestDuration[typ] += time.Since(start)
	p.ingestCount[typ]++
}

// dispatchPlugin routes a message to the plugin instance for key,
// building it on first sight. A panic inside the plugin's Process is
// recovered, logged at Warn, and reported as an error so the offending
// plugin is skipped for this message without corrupting any other
// aggregator's state (spec.md §7: PluginFailure).
func (p *Processor) dispatchPlugin(typ string, key []byte, fields [][]byte) (err error) {
	factory, ok := p.plugins.Lookup(typ)
	if !ok {
		// The parser already checked IsRegistered; this would only
		// happen under a racing unregister, which this single-owner
		// design doesn't permit. Treat defensively as unknown type.
		return fmt.Errorf("plugin %s: no longer registered", typ)
	}

	k := string(key)
	inst, exists := p.pluginInstances[k]
	if !exists {
		inst = factory.BuildMetric(fmt.Sprintf("stats.%s", factory.Name()), k, p.wallClock)
		p.pluginInstances[k] = inst
		p.pluginKeyType[k] = typ
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("plugin", typ).Warnf("plugin process panic: %v", r)
			err = fmt.Errorf("plugin %s: panic: %v", typ, r)
		}
	}()

	if procErr := inst.Process(fields); procErr != nil {
		p.log.WithField("plugin", typ).WithError(procErr).Warn("plugin process failed")
		return procErr
	}
	return nil
}

// GetMetricNames returns the union of every key ever seen across all
// aggregators, including plugins.
func (p *Processor) GetMetricNames() []string {
	seen := make(map[string]struct{})
	add := func(keys []string) {
		for _, k := range keys {
			seen[k] = struct{}{}
		}
	}
	add(p.counters.Keys())
	add(p.timers.Keys())
	add(p.gauges.Keys())
	add(p.meters.Keys())
	for k := range p.pluginInstances {
		seen[k] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	return names
}

package aggregate

import (
	"bytes"
	"fmt"

	"github.com/grafana/statsdaggd/internal/parser"
)

const gaugePrefix = "stats.gauge."

type gaugeSample struct {
	key   string
	value float64
}

// Gauge holds an ordered, never-cleared sequence of (value, key)
// samples. Duplicates are allowed and every entry re-emits on every
// flush; a newer sample for the same key is appended alongside the
// older ones rather than replacing them (§9: "last known reading keeps
// flowing" — a deliberate sharp edge, replicated here).
type Gauge struct {
	samples []gaugeSample
}

// NewGauge returns an empty gauge aggregator.
func NewGauge() *Gauge {
	return &Gauge{}
}

// Update parses fields[0] as the gauge's value. A value field
// containing ":" is rejected (it would collide with the wire
// delimiter between key and value).
func (g *Gauge) Update(key []byte, fields [][]byte) error {
	if bytes.IndexByte(fields[0], ':') >= 0 {
		return fmt.Errorf("gauge %s: value field contains ':'", key)
	}
	value, ok := parser.ParseFloat(fields[0])
	if !ok {
		return fmt.Errorf("gauge %s: unparseable value %q", key, fields[0])
	}
	g.samples = append(g.samples, gaugeSample{key: string(key), value: value})
	return nil
}

// Flush emits every sample in insertion order. The sequence is NOT
// cleared.
func (g *Gauge) Flush(p FlushParams) []Emission {
	out := make([]Emission, 0, len(g.samples))
	for _, s := range g.samples {
		out = append(out, Emission{
			Name:      []byte(gaugePrefix + s.key + ".value"),
			Value:     s.value,
			Timestamp: p.Timestamp,
		})
	}
	return out
}

// Keys returns every distinct key this gauge has samples for, for
// GetMetricNames.
func (g *Gauge) Keys() []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for _, s := range g.samples {
		if _, ok := seen[s.key]; !ok {
			seen[s.key] = struct{}{}
			keys = append(keys, s.key)
		}
	}
	return keys
}

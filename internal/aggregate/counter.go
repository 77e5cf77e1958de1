package aggregate

import (
	"fmt"
	"math"

	"github.com/grafana/statsdaggd/internal/parser"
)

// Counter prefixes, bit-exact per spec.
const (
	statsPrefix = "stats."
	countPrefix = "stats_counts."
)

// Counter accumulates Σ value/rate per key between flushes. order
// records each key's first-seen position so Flush visits keys in a
// fixed, deterministic sequence instead of Go's randomized map order
// (spec.md §4.8, §5: flush emission order is deterministic).
type Counter struct {
	counts map[string]float64
	order  []string
}

// NewCounter returns an empty counter aggregator.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]float64)}
}

// Update parses fields[0] as the sample value and an optional
// fields[2] "@rate" suffix, adding value/rate to the key's running sum.
func (c *Counter) Update(key []byte, fields [][]byte) error {
	value, ok := parser.ParseFloat(fields[0])
	if !ok {
		return fmt.Errorf("counter %s: unparseable value %q", key, fields[0])
	}
	rate, ok := parser.ParseRate(fields)
	if !ok || rate <= 0 {
		return fmt.Errorf("counter %s: invalid rate", key)
	}
	k := string(key)
	if _, seen := c.counts[k]; !seen {
		c.order = append(c.order, k)
	}
	c.counts[k] += value / rate
	return nil
}

// Flush emits the normalized per-second rate and the raw count for
// every key this counter has ever seen, in first-seen order, then
// resets all slots to 0. Slots are kept, so a key with no samples in
// this window still emits 0 for both series.
func (c *Counter) Flush(p FlushParams) []Emission {
	interval := p.IntervalSeconds
	if interval < 1 {
		interval = 1
	}
	out := make([]Emission, 0, len(c.order)*2)
	for _, key := range c.order {
		count := c.counts[key]
		perSecond := math.Trunc(count / float64(interval))
		out = append(out,
			Emission{Name: []byte(statsPrefix + key), Value: perSecond, Timestamp: p.Timestamp},
			Emission{Name: []byte(countPrefix + key), Value: count, Timestamp: p.Timestamp},
		)
		c.counts[key] = 0
	}
	return out
}

// Keys returns every key this counter has seen, for GetMetricNames.
func (c *Counter) Keys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

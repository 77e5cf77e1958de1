package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/grafana/statsdaggd/internal/parser"
)

const timerPrefix = "stats.timers."

// Timer accumulates per-key sequences of sample durations (ms). order
// records each key's first-seen position so Flush visits keys in a
// fixed, deterministic sequence instead of Go's randomized map order
// (spec.md §4.8, §5: flush emission order is deterministic).
type Timer struct {
	samples map[string][]float64
	order   []string
}

// NewTimer returns an empty timer aggregator.
func NewTimer() *Timer {
	return &Timer{samples: make(map[string][]float64)}
}

// Update parses fields[0] as a duration in milliseconds and appends it
// to the key's bucket.
func (t *Timer) Update(key []byte, fields [][]byte) error {
	value, ok := parser.ParseFloat(fields[0])
	if !ok {
		return fmt.Errorf("timer %s: unparseable duration %q", key, fields[0])
	}
	k := string(key)
	if _, seen := t.samples[k]; !seen {
		t.order = append(t.order, k)
	}
	t.samples[k] = append(t.samples[k], value)
	return nil
}

// Flush computes the percent-trimmed mean/upper/lower/count series for
// every non-empty bucket and clears each bucket. Percent is conceptually
// "keep the lowest percent% of samples when computing mean/upper_N".
func (t *Timer) Flush(p FlushParams) []Emission {
	percent := p.Percent
	if percent == 0 {
		percent = 90
	}
	timestamp := p.Timestamp
	out := []Emission{}
	for _, key := range t.order {
		samples := t.samples[key]
		n := len(samples)
		if n == 0 {
			continue
		}
		sorted := make([]float64, n)
		copy(sorted, samples)
		sort.Float64s(sorted)

		lower := sorted[0]
		upper := sorted[n-1]
		mean := lower
		thresholdUpper := upper

		if n > 1 {
			drop := int(math.Round((1 - float64(percent)/100) * float64(n)))
			idx := n - drop
			if idx < 1 {
				idx = 1
			}
			truncated := sorted[:idx]
			thresholdUpper = truncated[len(truncated)-1]
			sum := 0.0
			for _, v := range truncated {
				sum += v
			}
			mean = math.Trunc(sum / float64(idx))
		}

		items := map[string]float64{
			".mean":                       mean,
			".upper":                      upper,
			fmt.Sprintf(".upper_%d", percent): thresholdUpper,
			".lower":                      lower,
			".count":                      float64(n),
		}
		names := make([]string, 0, len(items))
		for suffix := range items {
			names = append(names, timerPrefix+key+suffix)
		}
		sort.Strings(names)
		for _, name := range names {
			suffix := name[len(timerPrefix+key):]
			out = append(out, Emission{Name: []byte(name), Value: items[suffix], Timestamp: timestamp})
		}

		t.samples[key] = t.samples[key][:0]
	}
	return out
}

// Keys returns every key this timer has seen, for GetMetricNames.
func (t *Timer) Keys() []string {
	keys := make([]string, len(t.order))
	copy(keys, t.order)
	return keys
}

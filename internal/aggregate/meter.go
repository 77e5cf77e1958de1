package aggregate

import (
	"fmt"
	"math"

	"github.com/grafana/statsdaggd/internal/parser"
)

const meterPrefix = "stats.meter"

// ewmaTickSeconds is the EWMA tick interval T from spec §3.
const ewmaTickSeconds = 5.0

// ewmaWindows maps each moving-average window, in minutes, to its
// suffix in the emitted series name.
var ewmaWindows = []struct {
	minutes float64
	suffix  string
}{
	{1, ".1min_rate"},
	{5, ".5min_rate"},
	{15, ".15min_rate"},
}

func ewmaAlpha(minutes float64) float64 {
	return 1 - math.Exp(-ewmaTickSeconds/(60*minutes))
}

type ewma struct {
	alpha       float64
	rate        float64
	initialized bool
}

func (e *ewma) tick(instantRate float64) {
	if !e.initialized {
		e.rate = instantRate
		e.initialized = true
		return
	}
	e.rate += e.alpha * (instantRate - e.rate)
}

// MeterReporter is the single stateful meter aggregation unit: one per
// key, tracking a monotonic event count and three EWMA-decayed rates.
type MeterReporter struct {
	prefix    string
	name      string
	wallClock func() int64

	count     float64
	createdAt int64
	lastTick  int64
	uncounted float64

	rates [3]*ewma
}

// NewMeterReporter constructs a reporter for name, using wallClock (in
// seconds) as the time source, first ticked from wallClock() at
// construction time.
func NewMeterReporter(prefix, name string, wallClock func() int64) *MeterReporter {
	now := wallClock()
	rates := [3]*ewma{}
	for i, w := range ewmaWindows {
		rates[i] = &ewma{alpha: ewmaAlpha(w.minutes)}
	}
	return &MeterReporter{
		prefix:    prefix,
		name:      name,
		wallClock: wallClock,
		createdAt: now,
		lastTick:  now,
		rates:     rates,
	}
}

// Mark records value events.
func (m *MeterReporter) Mark(value float64) {
	m.count += value
	m.uncounted += value
}

// Report advances the EWMAs by as many T-second ticks as have elapsed
// since the last report and emits the five series.
func (m *MeterReporter) Report(ts int64) []Emission {
	elapsed := ts - m.lastTick
	if elapsed > 0 {
		ticks := int64(float64(elapsed) / ewmaTickSeconds)
		for i := int64(0); i < ticks; i++ {
			instantRate := m.uncounted / ewmaTickSeconds
			m.uncounted = 0
			for _, r := range m.rates {
				r.tick(instantRate)
			}
		}
		m.lastTick += ticks * int64(ewmaTickSeconds)
	}

	elapsedSinceCreation := float64(ts - m.createdAt)
	meanRate := 0.0
	if elapsedSinceCreation > 0 {
		meanRate = m.count / elapsedSinceCreation
	}

	base := m.prefix + "." + m.name
	out := []Emission{
		{Name: []byte(base + ".count"), Value: m.count, Timestamp: ts},
		{Name: []byte(base + ".mean_rate"), Value: meanRate, Timestamp: ts},
	}
	for i, w := range ewmaWindows {
		out = append(out, Emission{Name: []byte(base + w.suffix), Value: m.rates[i].rate, Timestamp: ts})
	}
	return out
}

// Meter dispatches samples to a per-key MeterReporter. order records
// each key's first-seen position so Flush visits keys in a fixed,
// deterministic sequence instead of Go's randomized map order
// (spec.md §4.8, §5: flush emission order is deterministic).
type Meter struct {
	wallClock func() int64
	reporters map[string]*MeterReporter
	order     []string
}

// NewMeter returns an empty meter aggregator using wallClock as the
// EWMA time source.
func NewMeter(wallClock func() int64) *Meter {
	return &Meter{wallClock: wallClock, reporters: make(map[string]*MeterReporter)}
}

// Update parses fields[0] as the sample value and marks the key's
// reporter, creating it on first sight.
func (m *Meter) Update(key []byte, fields [][]byte) error {
	value, ok := parser.ParseFloat(fields[0])
	if !ok {
		return fmt.Errorf("meter %s: unparseable value %q", key, fields[0])
	}
	k := string(key)
	reporter, ok := m.reporters[k]
	if !ok {
		reporter = NewMeterReporter(meterPrefix, k, m.wallClock)
		m.reporters[k] = reporter
		m.order = append(m.order, k)
	}
	reporter.Mark(value)
	return nil
}

// Flush reports every known meter's five series, in first-seen order.
// Meter state is never reset; counts are monotonic and rates persist
// across flushes.
func (m *Meter) Flush(p FlushParams) []Emission {
	out := []Emission{}
	for _, key := range m.order {
		out = append(out, m.reporters[key].Report(p.Timestamp)...)
	}
	return out
}

// Keys returns every key this meter has seen, for GetMetricNames.
func (m *Meter) Keys() []string {
	keys := make([]string, len(m.order))
	copy(keys, m.order)
	return keys
}

package processor

import (
	"fmt"
	"time"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

const selfTelemetryPrefix = "statsd."

// flushKind names the five dispatch groups flushed in fixed order,
// used both as a map key for per-kind self-telemetry and as the
// `flush.<k>.count`/`flush.<k>.duration` series suffix.
type flushKind string

const (
	kindCounter flushKind = "counter"
	kindTimer   flushKind = "timer"
	kindGauge   flushKind = "gauge"
	kindMeter   flushKind = "meter"
	kindPlugin  flushKind = "plugin"
)

// Flush drains every aggregator's state into emissions for this
// window, plus self-telemetry, and hands each emission to emit as it's
// produced. interval is milliseconds; percent is 0-100 (spec.md §6).
//
// Flush ordering is fixed: counters, timers, gauges, meters, plugins,
// then the summary (spec.md §4.8). Within a group, keys are visited in
// their aggregator's natural container order; timer sub-items are
// sorted by full name by the timer aggregator itself.
func (p *Processor) Flush(interval int64, percent int, emit func(aggregate.Emission)) {
	timestamp := p.wallClock()
	intervalSeconds := interval / 1000

	params := aggregate.FlushParams{IntervalSeconds: intervalSeconds, Percent: percent, Timestamp: timestamp}

	numStats := 0
	perKind := make(map[flushKind]struct {
		count    int
		duration time.Duration
	})

	flushGroup := func(kind flushKind, fn func() []aggregate.Emission) {
		start := time.Now()
		results := fn()
		duration := time.Since(start)
		for _, e := range results {
			emit(e)
		}
		numStats += len(results)
		perKind[kind] = struct {
			count    int
			duration time.Duration
		}{len(results), duration}
	}

	flushGroup(kindCounter, func() []aggregate.Emission { return p.counters.Flush(params) })
	flushGroup(kindTimer, func() []aggregate.Emission { return p.timers.Flush(params) })
	flushGroup(kindGauge, func() []aggregate.Emission { return p.gauges.Flush(params) })
	flushGroup(kindMeter, func() []aggregate.Emission { return p.meters.Flush(params) })
	flushGroup(kindPlugin, func() []aggregate.Emission { return p.flushPlugins(interval, timestamp) })

	p.flushSummary(numStats, perKind, timestamp, emit)
}

// flushPlugins flushes every plugin instance in isolation: a panic or
// error from one instance is logged at Warn and skipped without
// affecting any other instance (spec.md §7: PluginFailure).
func (p *Processor) flushPlugins(intervalMS int64, timestamp int64) []aggregate.Emission {
	out := []aggregate.Emission{}
	for key, inst := range p.pluginInstances {
		results := p.flushOnePlugin(key, inst, intervalMS, timestamp)
		out = append(out, results...)
	}
	return out
}

func (p *Processor) flushOnePlugin(key string, inst interface {
	Flush(intervalMS int64, timestamp int64) []aggregate.Emission
}, intervalMS int64, timestamp int64) (results []aggregate.Emission) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("plugin_key", key).Warnf("plugin flush panic: %v", r)
			if p.tm != nil {
				p.tm.PluginFailures.Inc(1)
			}
			results = nil
		}
	}()
	return inst.Flush(intervalMS, timestamp)
}

// flushSummary emits statsd.numStats, per-kind flush.<k>.count/.duration,
// and per-type receive.<type>.count/.duration, then resets the ingest
// timing map (spec.md §4.8). This must run last in the fixed ordering.
func (p *Processor) flushSummary(numStats int, perKind map[flushKind]struct {
	count    int
	duration time.Duration
}, timestamp int64, emit func(aggregate.Emission)) {
	emit(aggregate.Emission{Name: []byte(selfTelemetryPrefix + "numStats"), Value: float64(numStats), Timestamp: timestamp})

	for _, kind := range []flushKind{kindCounter, kindTimer, kindGauge, kindMeter, kindPlugin} {
		stat := perKind[kind]
		emit(aggregate.Emission{
			Name:      []byte(fmt.Sprintf("%sflush.%s.count", selfTelemetryPrefix, kind)),
			Value:     float64(stat.count),
			Timestamp: timestamp,
		})
		emit(aggregate.Emission{
			Name:      []byte(fmt.Sprintf("%sflush.%s.duration", selfTelemetryPrefix, kind)),
			Value:     float64(stat.duration.Milliseconds()),
			Timestamp: timestamp,
		})
	}

	for typ, duration := range p.ingestDuration {
		emit(aggregate.Emission{
			Name:      []byte(fmt.Sprintf("%sreceive.%s.count", selfTelemetryPrefix, typ)),
			Value:     float64(p.ingestCount[typ]),
			Timestamp: timestamp,
		})
		emit(aggregate.Emission{
			Name:      []byte(fmt.Sprintf("%sreceive.%s.duration", selfTelemetryPrefix, typ)),
			Value:     float64(duration.Milliseconds()),
			Timestamp: timestamp,
		})
	}

	p.ingestDuration = make(map[string]time.Duration)
	p.ingestCount = make(map[string]int64)
}

package processor

import (
	"errors"
	"testing"

	"github.com/grafana/statsdaggd/internal/aggregate"
	"github.com/grafana/statsdaggd/internal/plugin"
)

// fakeHistogramFactory/fakeHistogramInstance is a minimal plugin used
// to exercise the dispatch and isolation contract (spec.md §4.7, §7).
type fakeHistogramFactory struct {
	failProcess bool
	failFlush   bool
	panicOn     string
}

func (f *fakeHistogramFactory) Name() string { return "h" }

func (f *fakeHistogramFactory) BuildMetric(prefix, name string, wallClock func() int64) plugin.Instance {
	return &fakeHistogramInstance{factory: f, prefix: prefix, name: name}
}

type fakeHistogramInstance struct {
	factory *fakeHistogramFactory
	prefix  string
	name    string
	samples []float64
}

func (i *fakeHistogramInstance) Process(fields [][]byte) error {
	if i.factory.panicOn == "process" {
		panic("boom")
	}
	if i.factory.failProcess {
		return errors.New("synthetic process failure")
	}
	i.samples = append(i.samples, 1)
	return nil
}

func (i *fakeHistogramInstance) Flush(intervalMS int64, timestamp int64) []aggregate.Emission {
	if i.factory.panicOn == "flush" {
		panic("boom")
	}
	if i.factory.failFlush {
		return nil
	}
	return []aggregate.Emission{{
		Name:      []byte(i.prefix + "." + i.name + ".count"),
		Value:     float64(len(i.samples)),
		Timestamp: timestamp,
	}}
}

func TestPlugin_DispatchAndFlush(t *testing.T) {
	registry := plugin.NewRegistry()
	registry.Register(&fakeHistogramFactory{})

	p := New(frozenClock(1000), WithPluginRegistry(registry))
	p.Process([]byte("req:1|h"))
	p.Process([]byte("req:1|h"))

	emissions := collectFlush(p, 10000, 90)
	if got := emissions["stats.h.req.count"]; got != 2 {
		t.Errorf("stats.h.req.count = %v, want 2", got)
	}
}

func TestPlugin_ProcessPanicIsolated(t *testing.T) {
	registry := plugin.NewRegistry()
	registry.Register(&fakeHistogramFactory{panicOn: "process"})

	p := New(frozenClock(1000), WithPluginRegistry(registry))
	p.Process([]byte("foo:1|c")) // unrelated aggregator, must survive
	p.Process([]byte("req:1|h")) // panics internally, must be isolated

	emissions := collectFlush(p, 10000, 90)
	if got := emissions["stats_counts.foo"]; got != 1 {
		t.Errorf("counter state must survive a plugin panic, got stats_counts.foo=%v", got)
	}
}

func TestPlugin_FlushPanicIsolated(t *testing.T) {
	registry := plugin.NewRegistry()
	registry.Register(&fakeHistogramFactory{panicOn: "flush"})

	p := New(frozenClock(1000), WithPluginRegistry(registry))
	p.Process([]byte("foo:1|c"))
	p.Process([]byte("req:1|h"))

	emissions := collectFlush(p, 10000, 90)
	if got := emissions["stats_counts.foo"]; got != 1 {
		t.Errorf("counter state must survive a plugin flush panic, got stats_counts.foo=%v", got)
	}
}

func TestPlugin_UnknownTypeStillRejected(t *testing.T) {
	p := New(frozenClock(1000))
	p.Process([]byte("req:1|h")) // no plugin registered for "h"

	names := p.GetMetricNames()
	for _, n := range names {
		if n == "req" {
			t.Fatal("unregistered plugin type should have been rejected, not ingested")
		}
	}
}

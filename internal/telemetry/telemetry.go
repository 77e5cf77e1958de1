// Package telemetry tracks statsdaggd's own operational counters —
// UDP packets received, malformed payloads dropped, plugin failures —
// using github.com/Dieterbe/go-metrics exactly the way the teacher's
// aggregator.go uses it (stats.Counter("...").Inc(1)). These are
// distinct from the statsd.* self-telemetry series spec.md §4.8
// defines, which the processor emits itself; this is the daemon's own
// process-level health surface, exposed by internal/admin.
package telemetry

import (
	metrics "github.com/Dieterbe/go-metrics"
)

// Telemetry holds the daemon's operational counters.
type Telemetry struct {
	UDPPackets      metrics.Counter
	MalformedDropped metrics.Counter
	PluginFailures  metrics.Counter
	WriterFailures  metrics.Counter
}

// New constructs a fresh set of operational counters registered in the
// default go-metrics registry.
func New() *Telemetry {
	return &Telemetry{
		UDPPackets:       metrics.NewRegisteredCounter("statsdaggd.udp.packets", nil),
		MalformedDropped: metrics.NewRegisteredCounter("statsdaggd.ingest.malformed_dropped", nil),
		PluginFailures:   metrics.NewRegisteredCounter("statsdaggd.plugin.failures", nil),
		WriterFailures:   metrics.NewRegisteredCounter("statsdaggd.writer.failures", nil),
	}
}

// Snapshot returns the current counter values, suitable for the admin
// API's /stats endpoint.
func (t *Telemetry) Snapshot() map[string]int64 {
	return map[string]int64{
		"udp_packets":       t.UDPPackets.Count(),
		"malformed_dropped": t.MalformedDropped.Count(),
		"plugin_failures":   t.PluginFailures.Count(),
		"writer_failures":   t.WriterFailures.Count(),
	}
}

// Package writer implements the downstream collaborators spec.md §6
// hands emissions to: a Graphite-style TCP line writer plus the
// teacher's other Graphite-ecosystem fan-out backends (Kafka, AMQP,
// CloudWatch), a broadcast fanout across them, and a bounded spool for
// backpressure when a backend is unavailable (spec.md §5).
package writer

import "github.com/grafana/statsdaggd/internal/aggregate"

// Writer accepts a batch of emissions produced by one flush cycle.
// Implementations must not be invoked while the processor holds its
// own internal state lock (spec.md §5); the processor and its Actor
// never call a Writer directly — they hand emissions to a channel or
// slice first, satisfying that separation.
type Writer interface {
	Write(batch []aggregate.Emission) error
	Close() error
}

// Line renders one emission as the Graphite plaintext line format
// spec.md §6 defines: "<name> <value> <timestamp>\n".
func Line(e aggregate.Emission) string {
	return formatLine(e)
}

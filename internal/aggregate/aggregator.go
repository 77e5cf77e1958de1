// Package aggregate implements the per-type StatsD aggregators: counter,
// timer, gauge, and meter. Each holds its own accumulation state and
// converts it into emission records on flush.
package aggregate

// Emission is a single (name, value, timestamp) triple ready for a
// downstream Graphite-style writer to serialize.
type Emission struct {
	Name      []byte
	Value     float64
	Timestamp int64
}

// FlushParams carries the per-flush parameters a processor passes down
// to every aggregator kind. Not every kind uses every field (counters
// use IntervalSeconds, timers use Percent; gauges and meters use
// neither), but a single shared struct keeps the Aggregator capability
// uniform across kinds.
type FlushParams struct {
	IntervalSeconds int64
	Percent         int
	Timestamp       int64
}

// Aggregator is the capability every built-in per-type aggregator
// implements. The processor is otherwise indifferent to what a given
// kind accumulates; it drives the built-ins through this record
// (spec design note: replace runtime attribute probing with an
// explicit capability record per aggregator kind). Plugin instances
// use their own contract, plugin.Instance.
type Aggregator interface {
	// Update absorbs one already-parsed sample's fields for key.
	Update(key []byte, fields [][]byte) error
	// Flush produces this window's emissions for all keys and resets
	// or decays state as the kind requires.
	Flush(p FlushParams) []Emission
}

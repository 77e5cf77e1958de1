package writer

import (
	"github.com/Dieterbe/topic"
	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-jump"
	"github.com/sirupsen/logrus"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

// fanoutJob is what Fanout broadcasts over its topic: a batch plus a
// per-subscriber result channel so Write can wait for every backend
// without each backend needing its own queue.
type fanoutJob struct {
	batch []aggregate.Emission
	done  chan error
}

// Fanout broadcasts one flush's batch to every registered backend
// concurrently, over a Dieterbe/topic broker: each backend gets its
// own subscriber goroutine reading off the topic, the same one-stream-
// to-many-consumers shape the teacher's dependency stack supplies.
type Fanout struct {
	log      *logrus.Logger
	backends []Writer
	t        *topic.Topic
}

// NewFanout wires backends behind a single Writer, registering one
// topic subscriber per backend. A write failure on any one backend is
// logged and does not block or fail the others.
func NewFanout(log *logrus.Logger, backends ...Writer) *Fanout {
	f := &Fanout{log: log, backends: backends, t: topic.New()}
	for _, backend := range backends {
		ch := f.t.Register()
		go f.consume(backend, ch)
	}
	return f
}

func (f *Fanout) consume(backend Writer, ch chan interface{}) {
	for msg := range ch {
		job := msg.(fanoutJob)
		job.done <- backend.Write(job.batch)
	}
}

// Write broadcasts batch to every backend's subscriber and waits for
// all of them to finish. Per-backend failures are logged at Warn and
// do not fail the overall call (spec.md §7: WriterFailure is reported
// to the writer's owner, not propagated to the core).
func (f *Fanout) Write(batch []aggregate.Emission) error {
	done := make(chan error, len(f.backends))
	f.t.Broadcast(fanoutJob{batch: batch, done: done})

	for range f.backends {
		if err := <-done; err != nil {
			f.log.WithError(err).Warn("fanout backend write failed")
		}
	}
	return nil
}

// Close closes every backend, returning the first error encountered.
func (f *Fanout) Close() error {
	var first error
	for _, backend := range f.backends {
		if err := backend.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ShardedGraphite deterministically routes each emission to one of
// several Graphite endpoints by a jump consistent hash of its metric
// name, so repeated flushes of the same key always land on the same
// backend (useful when each backend shard owns a disjoint keyspace
// downstream, e.g. per-shard carbon-relay-ng instances).
type ShardedGraphite struct {
	shards []*GraphiteWriter
}

// NewShardedGraphite wires one GraphiteWriter per address.
func NewShardedGraphite(shards []*GraphiteWriter) *ShardedGraphite {
	return &ShardedGraphite{shards: shards}
}

func (s *ShardedGraphite) shardFor(name []byte) int32 {
	h := xxhash.Sum64(name)
	return jump.Hash(h, int32(len(s.shards)))
}

// Write groups batch by shard and writes each group to its shard's
// GraphiteWriter.
func (s *ShardedGraphite) Write(batch []aggregate.Emission) error {
	groups := make(map[int32][]aggregate.Emission, len(s.shards))
	for _, e := range batch {
		shard := s.shardFor(e.Name)
		groups[shard] = append(groups[shard], e)
	}
	var firstErr error
	for shard, group := range groups {
		if err := s.shards[shard].Write(group); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every shard's writer.
func (s *ShardedGraphite) Close() error {
	var first error
	for _, shard := range s.shards {
		if err := shard.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

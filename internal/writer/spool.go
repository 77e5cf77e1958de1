package writer

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

// SpoolWriter wraps a downstream Writer and absorbs its failures into
// a bounded, snappy-compressed in-memory queue instead of blocking the
// flush goroutine (spec.md §5: a slow or down backend must not stall
// Flush). When inner is a GraphiteWriter, queued chunks are retried,
// oldest first, on every Write call before the new batch is attempted.
// Other inner writers (including ShardedGraphite) have no replay path:
// their queued chunks are never resent and leave the spool only when
// dropped as the oldest on overflow.
type SpoolWriter struct {
	log      *logrus.Logger
	inner    Writer
	capacity int

	mu     sync.Mutex
	queued [][]byte // snappy-compressed, newline-joined Graphite lines
}

// NewSpoolWriter wraps inner with a spool holding up to capacity
// pending chunks.
func NewSpoolWriter(inner Writer, capacity int, log *logrus.Logger) *SpoolWriter {
	return &SpoolWriter{log: log, inner: inner, capacity: capacity}
}

// Write first retries any spooled backlog (GraphiteWriter inner only),
// then attempts batch directly. On failure, batch is compressed and appended to the
// spool; once the spool is at capacity the oldest chunk is dropped to
// make room, and the drop is logged.
func (s *SpoolWriter) Write(batch []aggregate.Emission) error {
	s.drainLocked()

	if err := s.inner.Write(batch); err != nil {
		s.enqueue(batch)
		return fmt.Errorf("spool: inner write failed, queued %d emissions: %w", len(batch), err)
	}
	return nil
}

func (s *SpoolWriter) enqueue(batch []aggregate.Emission) {
	var raw bytes.Buffer
	for _, e := range batch {
		raw.WriteString(formatLine(e))
	}
	compressed := snappy.Encode(nil, raw.Bytes())

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queued) >= s.capacity {
		s.log.WithField("capacity", s.capacity).Warn("spool full, dropping oldest chunk")
		s.queued = s.queued[1:]
	}
	s.queued = append(s.queued, compressed)
}

// drainLocked attempts to flush every spooled chunk to inner, in FIFO
// order, stopping at the first failure so later chunks stay queued in
// order.
func (s *SpoolWriter) drainLocked() {
	s.mu.Lock()
	backlog := s.queued
	s.mu.Unlock()
	if len(backlog) == 0 {
		return
	}

	rw, ok := s.inner.(rawWriter)
	if !ok {
		// Inner writer has no raw replay path; leave the backlog queued.
		return
	}

	drained := 0
	for _, chunk := range backlog {
		raw, err := snappy.Decode(nil, chunk)
		if err != nil {
			s.log.WithError(err).Warn("spool: corrupt chunk discarded")
			drained++
			continue
		}
		if err := rw.rawWrite(raw); err != nil {
			break
		}
		drained++
	}

	s.mu.Lock()
	s.queued = s.queued[drained:]
	s.mu.Unlock()
}

// rawWriter lets the spool replay a pre-formatted, already-encoded
// chunk without re-parsing it back into Emissions.
type rawWriter interface {
	rawWrite(line []byte) error
}

func (w *GraphiteWriter) rawWrite(line []byte) error {
	conn, err := w.ensureConn()
	if err != nil {
		w.sleepBackoff()
		return fmt.Errorf("graphite: dial %s: %w", w.addr, err)
	}
	if _, err := conn.Write(line); err != nil {
		w.dropConn()
		w.sleepBackoff()
		return fmt.Errorf("graphite: write: %w", err)
	}
	return nil
}

// Close closes the wrapped writer. Any still-spooled backlog is
// dropped; a future enhancement could persist it to disk.
func (s *SpoolWriter) Close() error {
	return s.inner.Close()
}

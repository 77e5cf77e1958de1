package writer

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	"github.com/grafana/statsdaggd/internal/aggregate"
)

func formatLine(e aggregate.Emission) string {
	return fmt.Sprintf("%s %v %d\n", e.Name, e.Value, e.Timestamp)
}

// GraphiteWriter is a reconnecting TCP line-protocol writer to a
// Graphite/carbon-relay-ng endpoint, the spec's designated downstream
// collector (spec.md §1, §6).
type GraphiteWriter struct {
	addr string
	log  *logrus.Logger

	mu      sync.Mutex
	conn    net.Conn
	backoff *backoff.Backoff
}

// NewGraphiteWriter returns a writer that dials addr lazily on first
// Write and redials on the next Write after a failure. The
// jpillora/backoff duration is advanced and logged on each failure;
// no delay is applied before the next attempt.
func NewGraphiteWriter(addr string, log *logrus.Logger) *GraphiteWriter {
	return &GraphiteWriter{
		addr: addr,
		log:  log,
		backoff: &backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    30 * time.Second,
			Factor: 2,
			Jitter: true,
		},
	}
}

func (w *GraphiteWriter) ensureConn() (net.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return w.conn, nil
	}
	conn, err := net.DialTimeout("tcp", w.addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	w.conn = conn
	w.backoff.Reset()
	return conn, nil
}

func (w *GraphiteWriter) dropConn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// Write serializes and sends every emission in batch through a
// buffered writer on the current connection. On failure it drops the
// connection and returns the error without retrying the batch; the
// next Write redials (spec.md §7: WriterFailure is reported to the
// writer's owner; the core is unaffected).
func (w *GraphiteWriter) Write(batch []aggregate.Emission) error {
	conn, err := w.ensureConn()
	if err != nil {
		w.sleepBackoff()
		return fmt.Errorf("graphite: dial %s: %w", w.addr, err)
	}

	bw := bufio.NewWriter(conn)
	for _, e := range batch {
		if _, err := bw.WriteString(formatLine(e)); err != nil {
			w.dropConn()
			w.sleepBackoff()
			return fmt.Errorf("graphite: write: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		w.dropConn()
		w.sleepBackoff()
		return fmt.Errorf("graphite: flush: %w", err)
	}
	return nil
}

// sleepBackoff advances the backoff and logs the resulting duration.
// It does not wait.
func (w *GraphiteWriter) sleepBackoff() {
	d := w.backoff.Duration()
	w.log.WithField("addr", w.addr).WithField("backoff", d).Warn("graphite writer backing off")
}

// Close releases the underlying TCP connection, if any.
func (w *GraphiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

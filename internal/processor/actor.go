package processor

import (
	"github.com/grafana/statsdaggd/internal/aggregate"
)

// Actor serializes Process and Flush calls onto a single goroutine,
// the way the teacher's Aggregator.run() serializes its in/tick/
// snapReq/shutdown channels. Use this in production; Processor itself
// is the easier-to-test, non-concurrent core.
type Actor struct {
	proc *Processor

	payloads chan []byte
	flushes  chan flushRequest
	names    chan chan []string
	shutdown chan struct{}
	done     chan struct{}
}

type flushRequest struct {
	interval int64
	percent  int
	emit     func(aggregate.Emission)
	done     chan struct{}
}

// NewActor wraps proc in a channel-driven actor loop. bufSize bounds
// the ingest queue; a full queue means the caller (typically the UDP
// read loop) must apply its own backpressure, per spec.md §5.
func NewActor(proc *Processor, bufSize int) *Actor {
	return &Actor{
		proc:     proc,
		payloads: make(chan []byte, bufSize),
		flushes:  make(chan flushRequest),
		names:    make(chan chan []string),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run drives the actor loop until Stop is called. Run must be started
// in its own goroutine before Submit/Flush/GetMetricNames are used.
func (a *Actor) Run() {
	defer close(a.done)
	for {
		select {
		case payload := <-a.payloads:
			a.proc.Process(payload)
		case req := <-a.flushes:
			a.proc.Flush(req.interval, req.percent, req.emit)
			close(req.done)
		case reply := <-a.names:
			reply <- a.proc.GetMetricNames()
		case <-a.shutdown:
			return
		}
	}
}

// Stop signals Run to exit and waits for it to do so.
func (a *Actor) Stop() {
	close(a.shutdown)
	<-a.done
}

// Submit enqueues a datagram payload for processing. It may block if
// the ingest queue is full; the caller (e.g. the UDP listener) owns
// what to do about that (spec.md §5: backpressure is the caller's
// concern).
func (a *Actor) Submit(payload []byte) {
	a.payloads <- payload
}

// Flush runs a flush cycle on the actor's goroutine and blocks until
// it completes, streaming emissions to emit as they're produced.
func (a *Actor) Flush(interval int64, percent int, emit func(aggregate.Emission)) {
	req := flushRequest{interval: interval, percent: percent, emit: emit, done: make(chan struct{})}
	a.flushes <- req
	<-req.done
}

// GetMetricNames returns the union of every key ever seen, fetched
// from the actor's goroutine.
func (a *Actor) GetMetricNames() []string {
	reply := make(chan []string, 1)
	a.names <- reply
	return <-reply
}

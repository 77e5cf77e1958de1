// Package client implements the client-side convenience recorder
// spec.md §6 describes as an external collaborator: it composes
// datagrams in the wire format spec.md §4.2 defines, namespaces keys
// with a dot-joined prefix, and coalesces pipelined "\n"-joined lines
// into packets no larger than 512 bytes (a single line longer than
// that is sent alone, in one larger packet). Its surface (gauge/meter/
// increment/timing/SLI) follows original_source/txstatsd/metrics/
// metrics.py's Metrics convenience wrapper.
package client

import (
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"
)

// maxPacketBytes is the client-side packet cap (spec.md §6).
const maxPacketBytes = 512

// Client batches samples into a send buffer and flushes them as UDP
// packets capped at maxPacketBytes. Lines are never split, so a single
// line longer than the cap goes out alone in a packet above the cap.
type Client struct {
	namespace string
	conn      net.Conn
	buf       strings.Builder
}

// Dial connects to a StatsD-compatible UDP endpoint and namespaces
// every reported metric name with namespace (dot-joined, empty is
// allowed for no namespace).
func Dial(addr, namespace string) (*Client, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{namespace: namespace, conn: conn}, nil
}

// Close flushes any buffered lines and closes the underlying socket.
func (c *Client) Close() error {
	c.Flush()
	return c.conn.Close()
}

func (c *Client) fullyQualify(name string) string {
	if c.namespace == "" {
		return name
	}
	return c.namespace + "." + name
}

// Counter reports an increment (or decrement) to a counter, sampled at
// rate (1 means every call is sent).
func (c *Client) Counter(name string, value float64, rate float64) {
	if rate < 1 && rand.Float64() >= rate {
		return
	}
	c.enqueue(c.fullyQualify(name), value, "c", rate)
}

// Increment is Counter(name, 1, 1).
func (c *Client) Increment(name string) {
	c.Counter(name, 1, 1)
}

// Gauge reports an instantaneous reading.
func (c *Client) Gauge(name string, value float64) {
	c.enqueue(c.fullyQualify(name), value, "g", 1)
}

// Meter marks the occurrence of value events.
func (c *Client) Meter(name string, value float64) {
	c.enqueue(c.fullyQualify(name), value, "m", 1)
}

// Timing reports a duration in milliseconds against a timer.
func (c *Client) Timing(name string, d time.Duration) {
	c.enqueue(c.fullyQualify(name), float64(d.Milliseconds()), "ms", 1)
}

// SLI reports a service-level timing, the metrics.py convenience for
// reporting duration against a named service-level indicator.
func (c *Client) SLI(name string, d time.Duration) {
	c.Timing(name+".sli", d)
}

// SLIError reports an SLI failure as a meter event, the
// metrics.py `sli_error` convenience.
func (c *Client) SLIError(name string) {
	c.Meter(name+".sli.error", 1)
}

func (c *Client) enqueue(key string, value float64, kind string, rate float64) {
	var line string
	if rate < 1 {
		line = fmt.Sprintf("%s:%g|%s|@%g", key, value, kind, rate)
	} else {
		line = fmt.Sprintf("%s:%g|%s", key, value, kind)
	}

	if c.buf.Len() > 0 && c.buf.Len()+1+len(line) > maxPacketBytes {
		c.Flush()
	}
	if c.buf.Len() > 0 {
		c.buf.WriteByte('\n')
	}
	c.buf.WriteString(line)

	if c.buf.Len() >= maxPacketBytes {
		c.Flush()
	}
}

// Flush sends any buffered, pipelined lines as a single UDP packet.
func (c *Client) Flush() {
	if c.buf.Len() == 0 {
		return
	}
	_, _ = c.conn.Write([]byte(c.buf.String()))
	c.buf.Reset()
}

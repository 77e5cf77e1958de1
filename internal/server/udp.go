// Package server implements the UDP ingest listener: the external
// boundary spec.md §1 places out of the core's scope, specified only
// at the point it hands payloads to the processor (spec.md §6).
// Modeled on the pack's statsdaemon ListenUDP/handleUdpMessage shape.
package server

import (
	"bytes"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/grafana/statsdaggd/internal/telemetry"
)

const maxDatagramSize = 8192

// Submitter is the subset of processor.Actor the UDP listener needs.
type Submitter interface {
	Submit(payload []byte)
}

// UDPListener reads datagrams off a UDP socket, splits each on "\n"
// (a caller may send several newline-joined samples per packet, per
// spec.md §6), and submits each line to a Submitter.
type UDPListener struct {
	addr string
	log  *logrus.Logger
	tm   *telemetry.Telemetry
}

// NewUDPListener returns a listener bound to addr once Serve is called.
func NewUDPListener(addr string, log *logrus.Logger, tm *telemetry.Telemetry) *UDPListener {
	return &UDPListener{addr: addr, log: log, tm: tm}
}

// Serve listens on addr and blocks, submitting every received line to
// sub. It returns only if addr cannot be resolved or bound; read
// errors are logged and the loop keeps reading.
func (u *UDPListener) Serve(sub Submitter) error {
	resolved, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", resolved)
	if err != nil {
		return err
	}
	defer conn.Close()

	u.log.WithField("addr", conn.LocalAddr()).Info("udp listener started")

	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			u.log.WithError(err).Warn("udp read failed")
			continue
		}
		u.handlePacket(buf[:n], sub)
	}
}

func (u *UDPListener) handlePacket(packet []byte, sub Submitter) {
	if u.tm != nil {
		u.tm.UDPPackets.Inc(1)
	}
	for _, line := range bytes.Split(packet, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		// Submit makes its own copy-on-write contract with the
		// processor unnecessary: the buffer is reused across reads, so
		// hand the processor a copy rather than a slice into buf.
		cp := make([]byte, len(line))
		copy(cp, line)
		sub.Submit(cp)
	}
}

package ingest

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net"

	"scrubgate/pkg/engine"
	"scrubgate/pkg/metrics"
)

// UDPIngestor receives datagrams, syslog style. A datagram usually holds
// one record, but shippers that batch lines into a packet are common, so
// every datagram is split on newlines before queueing. Each record leaves
// here with a terminator; the rewriter never sees a partial line from UDP.
type UDPIngestor struct {
	addr   string
	buffer *engine.RingBuffer
	conn   *net.UDPConn
}

func NewUDPIngestor(addr string, buffer *engine.RingBuffer) *UDPIngestor {
	return &UDPIngestor{
		addr:   addr,
		buffer: buffer,
	}
}

// Listen binds the configured address. Separate from Start so callers can
// learn the bound address before serving, typically with ":0" in tests.
func (u *UDPIngestor) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", u.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	u.conn = conn
	log.Printf("ingest: udp listening on %s", conn.LocalAddr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (u *UDPIngestor) Addr() net.Addr {
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Start binds if needed and receives datagrams until ctx is canceled.
// Blocking call; run it in its own goroutine.
func (u *UDPIngestor) Start(ctx context.Context) error {
	if u.conn == nil {
		if err := u.Listen(); err != nil {
			return err
		}
	}
	defer u.conn.Close()

	go func() {
		<-ctx.Done()
		u.conn.Close()
	}()

	// One receive buffer per listener; records are copied out before the
	// next read reuses it.
	buf := make([]byte, 65535)

	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("ingest: udp read: %v", err)
			continue
		}
		u.splitAndPush(buf[:n])
	}
}

func (u *UDPIngestor) splitAndPush(datagram []byte) {
	rest := datagram
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		var record []byte
		if i < 0 {
			record = make([]byte, 0, len(rest)+1)
			record = append(record, rest...)
			record = append(record, '\n')
			rest = nil
		} else {
			record = append([]byte(nil), rest[:i+1]...)
			rest = rest[i+1:]
		}
		u.push(record)
	}
}

func (u *UDPIngestor) push(record []byte) {
	if err := u.buffer.Push(record); err != nil {
		metrics.DroppedLines.Inc()
		return
	}
	metrics.IngestedLines.WithLabelValues("udp").Inc()
	metrics.IngestedBytes.WithLabelValues("udp").Add(float64(len(record)))
}

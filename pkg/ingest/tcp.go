// Package ingest holds the network listeners that feed raw log lines into
// the ring buffer. Listeners never block on a full ring; excess lines are
// dropped and counted.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"

	"scrubgate/pkg/engine"
	"scrubgate/pkg/metrics"
)

// TCPIngestor accepts newline-delimited log streams, syslog-relay style:
// one connection per shipper, one line per record.
type TCPIngestor struct {
	addr     string
	buffer   *engine.RingBuffer
	listener net.Listener
}

func NewTCPIngestor(addr string, buffer *engine.RingBuffer) *TCPIngestor {
	return &TCPIngestor{
		addr:   addr,
		buffer: buffer,
	}
}

// Listen binds the configured address. Separate from Start so callers can
// learn the bound address before serving, typically with ":0" in tests.
func (t *TCPIngestor) Listen() error {
	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}
	t.listener = listener
	log.Printf("ingest: tcp listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (t *TCPIngestor) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Start binds if needed and accepts connections until ctx is canceled.
// Blocking call; run it in its own goroutine.
func (t *TCPIngestor) Start(ctx context.Context) error {
	if t.listener == nil {
		if err := t.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		t.listener.Close()
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("ingest: tcp accept: %v", err)
			continue
		}
		go t.handleConnection(conn)
	}
}

func (t *TCPIngestor) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			// A record truncated by EOF still counts; terminate it so it
			// cannot fuse with the next connection's output.
			if line[len(line)-1] != '\n' {
				line = append(line, '\n')
			}
			t.push(line)
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Printf("ingest: tcp read from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}

func (t *TCPIngestor) push(line []byte) {
	if err := t.buffer.Push(line); err != nil {
		// Tail drop. Counting is cheap, logging per drop is not.
		metrics.DroppedLines.Inc()
		return
	}
	metrics.IngestedLines.WithLabelValues("tcp").Inc()
	metrics.IngestedBytes.WithLabelValues("tcp").Add(float64(len(line)))
}

package connector

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"fxconnect/internal/events"
	"fxconnect/internal/interfaces"
	"fxconnect/internal/logger"
	"fxconnect/internal/protocol"
)

// Transport is one TLS socket speaking newline-delimited JSON frames. The
// command connection uses it directly for correlated request/response; the
// streaming connection wraps it with a continuous read loop.
type Transport struct {
	addr string
	dial func(ctx context.Context) (net.Conn, error)
	bus  *events.Bus

	mu        sync.RWMutex
	conn      net.Conn
	reader    *bufio.Reader
	connected bool
}

var _ interfaces.RequestConn = (*Transport)(nil)

func NewTransport(host string, port int, insecureSkipVerify bool, bus *events.Bus) *Transport {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return &Transport{
		addr: addr,
		bus:  bus,
		dial: func(ctx context.Context) (net.Conn, error) {
			d := &tls.Dialer{Config: &tls.Config{
				ServerName:         host,
				InsecureSkipVerify: insecureSkipVerify,
			}}
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// Connect dials the broker. Certificate validation failures surface here
// and are fatal to the attempt.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", t.addr, err)
	}

	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.connected = true

	logger.Info(ctx, "connected to broker", "addr", t.addr)
	t.bus.Publish(events.TopicConnected, t.addr)
	return nil
}

func (t *Transport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Send writes one line frame. It fails immediately when the socket is down;
// retrying is the caller's decision.
func (t *Transport) Send(msg []byte) error {
	t.mu.RLock()
	conn, connected := t.conn, t.connected
	t.mu.RUnlock()

	if !connected {
		return fmt.Errorf("send: %w", ErrNotConnected)
	}

	frame := make([]byte, 0, len(msg)+1)
	frame = append(frame, msg...)
	frame = append(frame, '\n')
	if _, err := conn.Write(frame); err != nil {
		t.markDisconnected()
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Receive returns the next non-empty line frame. Context cancellation or
// deadline fails only this call; a socket error drops the connection and
// raises the disconnected signal.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.RLock()
	conn, reader, connected := t.conn, t.reader, t.connected
	t.mu.RUnlock()

	if !connected {
		return nil, fmt.Errorf("receive: %w", ErrNotConnected)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("receive: %w", ctx.Err())
			}
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			t.markDisconnected()
			return nil, fmt.Errorf("receive: %w", err)
		}
		line = trimFrame(line)
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
}

// SendReceive pairs one request with the next response and logs the
// exchange with credential fields masked.
func (t *Transport) SendReceive(ctx context.Context, msg []byte) ([]byte, error) {
	if err := t.Send(msg); err != nil {
		return nil, err
	}
	resp, err := t.Receive(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "command exchange",
		"addr", t.addr,
		"request", string(protocol.Redact(msg)),
		"response", string(protocol.Redact(resp)),
	)
	return resp, nil
}

// Close tears the socket down and raises the disconnected signal.
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	wasConnected := t.connected
	t.conn = nil
	t.reader = nil
	t.connected = false
	t.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	if wasConnected {
		t.bus.Publish(events.TopicDisconnected, t.addr)
	}
	return err
}

func (t *Transport) markDisconnected() {
	t.mu.Lock()
	wasConnected := t.connected
	t.connected = false
	t.mu.Unlock()

	if wasConnected {
		logger.Warn(context.Background(), "broker connection lost", "addr", t.addr)
		t.bus.Publish(events.TopicDisconnected, t.addr)
	}
}

func trimFrame(line []byte) []byte {
	for len(line) > 0 {
		switch line[len(line)-1] {
		case '\n', '\r', ' ':
			line = line[:len(line)-1]
		default:
			return line
		}
	}
	return line
}

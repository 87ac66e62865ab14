package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonas-nogueira/gcode-sender/logger"
)

// TCP is a line transport over a TCP stream to a serial bridge.
//
// TCP is NOT goroutine-safe apart from Close.
type TCP struct {
	conn   net.Conn
	target string // registry key; empty when the conn was supplied by the caller
	cfg    *portConfig
	reader *lineReader
	logger logger.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// DialTCP connects to the bridge at addr ("host:port").
func DialTCP(addr string, opts ...Option) (*TCP, error) {
	cfg, err := newPortConfig(opts...)
	if err != nil {
		return nil, err
	}

	target := "tcp://" + addr
	if err := acquire(target); err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: cfg.dialTimeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		release(target)
		return nil, fmt.Errorf("transport: %w: %s: %w", ErrOpenFailed, addr, err)
	}

	cfg.logger.Info("transport: tcp bridge connected", "addr", addr, "readTimeout", cfg.readTimeout)

	return newTCP(conn, target, cfg), nil
}

// NewTCP wraps an established connection. The connection is closed by Close.
func NewTCP(conn net.Conn, opts ...Option) (*TCP, error) {
	if conn == nil {
		return nil, fmt.Errorf("transport: %w: nil connection", ErrOpenFailed)
	}

	cfg, err := newPortConfig(opts...)
	if err != nil {
		return nil, err
	}

	return newTCP(conn, "", cfg), nil
}

func newTCP(conn net.Conn, target string, cfg *portConfig) *TCP {
	return &TCP{
		conn:   conn,
		target: target,
		cfg:    cfg,
		reader: newLineReader(conn),
		logger: cfg.logger,
	}
}

// Name returns the remote address.
func (t *TCP) Name() string { return t.conn.RemoteAddr().String() }

// Write writes p to the connection, bounded by the write timeout.
func (t *TCP) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.cfg.writeTimeout)); err != nil {
		return 0, err
	}

	return t.conn.Write(p)
}

// ReadLine reads one line, bounded by the read timeout.
func (t *TCP) ReadLine() ([]byte, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(t.cfg.readTimeout)); err != nil {
		return nil, err
	}

	return t.reader.readLine()
}

// maxDrainWindows bounds DiscardInput against a device that never stops talking.
const maxDrainWindows = 20

// DiscardInput drops pending input, then reads and discards bytes until the
// line stays silent for the drain window.
func (t *TCP) DiscardInput() error {
	if t.closed.Load() {
		return ErrClosed
	}

	n := t.reader.discard()
	buf := make([]byte, 256)
	deadline := time.Now().Add(maxDrainWindows * t.cfg.drainWindow)

	for time.Now().Before(deadline) {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.cfg.drainWindow)); err != nil {
			return err
		}

		m, err := t.conn.Read(buf)
		n += m

		if err != nil {
			if isTimeout(err) {
				break // drain window expired with no data, line is silent
			}

			return err
		}
	}

	if n > 0 {
		t.logger.Debug("transport: discarded pending input", "addr", t.Name(), "bytes", n)
	}

	return nil
}

// Close closes the connection. It is safe to call more than once.
func (t *TCP) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.closeErr = t.conn.Close()
		if t.target != "" {
			release(t.target)
		}
	})

	return t.closeErr
}

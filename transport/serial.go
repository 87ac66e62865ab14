package transport

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonas-nogueira/gcode-sender/logger"
	"go.bug.st/serial"
)

// port is the subset of serial.Port used by Serial.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// openPort opens the device; replaced in tests.
var openPort = func(path string, mode *serial.Mode) (port, error) {
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Serial is a line transport over a local serial port.
//
// Serial is NOT goroutine-safe apart from Close; it is meant to be owned by a
// single sender for the duration of a run.
type Serial struct {
	path   string
	port   port
	cfg    *portConfig
	reader *lineReader
	logger logger.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens and configures the serial port at path.
//
// Failures wrap ErrOpenFailed, or ErrPortBusy when path is already open in
// this process.
func OpenSerial(path string, opts ...Option) (*Serial, error) {
	cfg, err := newPortConfig(opts...)
	if err != nil {
		return nil, err
	}

	if err := acquire(path); err != nil {
		return nil, err
	}

	p, err := openPort(path, cfg.mode())
	if err != nil {
		release(path)
		return nil, fmt.Errorf("transport: %w: %s: %w", ErrOpenFailed, path, err)
	}

	if err := p.SetReadTimeout(cfg.readTimeout); err != nil {
		_ = p.Close()
		release(path)

		return nil, fmt.Errorf("transport: %w: %s: set read timeout: %w", ErrOpenFailed, path, err)
	}

	cfg.logger.Info("transport: serial port opened",
		"port", path,
		"baudRate", cfg.baudRate,
		"readTimeout", cfg.readTimeout,
	)

	return &Serial{
		path:   path,
		port:   p,
		cfg:    cfg,
		reader: newLineReader(p),
		logger: cfg.logger,
	}, nil
}

// Name returns the device path.
func (s *Serial) Name() string { return s.path }

// Write writes p to the port.
func (s *Serial) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	return s.port.Write(p)
}

// ReadLine reads one line, bounded by the read timeout.
func (s *Serial) ReadLine() ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	return s.reader.readLine()
}

// DiscardInput drops both the driver input buffer and any pending partial line.
func (s *Serial) DiscardInput() error {
	if s.closed.Load() {
		return ErrClosed
	}

	if n := s.reader.discard(); n > 0 {
		s.logger.Debug("transport: discarded pending input", "port", s.path, "bytes", n)
	}

	return s.port.ResetInputBuffer()
}

// Close closes the port and releases the path. It is safe to call more than once.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.port.Close()
		release(s.path)
		s.logger.Debug("transport: serial port closed", "port", s.path)
	})

	return s.closeErr
}

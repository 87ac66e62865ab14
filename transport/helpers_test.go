package transport

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jonas-nogueira/gcode-sender/logger"
	"go.bug.st/serial"
)

// readStep is one scripted Read result.
type readStep struct {
	data string
	err  error
}

// scriptedReader replays readSteps; once exhausted it behaves like an idle
// serial port and returns (0, nil).
type scriptedReader struct {
	steps []readStep
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if len(r.steps) == 0 {
		return 0, nil
	}
	step := r.steps[0]
	n := copy(p, step.data)
	if n < len(step.data) {
		r.steps[0].data = step.data[n:]
		return n, nil
	}
	r.steps = r.steps[1:]

	return n, step.err
}

// timeoutErr mimics a net.Error timeout.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// fakePort is an in-memory serial port.
type fakePort struct {
	mu sync.Mutex

	scriptedReader
	written bytes.Buffer

	readTimeout   time.Duration
	resets        int
	closed        int
	setTimeoutErr error
	resetErr      error
	writeErr      error
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.scriptedReader.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writeErr != nil {
		return 0, p.writeErr
	}

	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++

	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	p.steps = nil

	return p.resetErr
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return p.setTimeoutErr
}

// stubOpenPort replaces openPort for the duration of the test.
// The returned slice collects the modes the port was opened with.
func stubOpenPort(t *testing.T, fp *fakePort, openErr error) *[]serial.Mode {
	t.Helper()

	var modes []serial.Mode
	orig := openPort
	openPort = func(_ string, mode *serial.Mode) (port, error) {
		modes = append(modes, *mode)
		if openErr != nil {
			return nil, openErr
		}
		return fp, nil
	}
	t.Cleanup(func() { openPort = orig })

	return &modes
}

// openTestSerial opens a Serial backed by fp at a unique path.
func openTestSerial(t *testing.T, fp *fakePort, opts ...Option) *Serial {
	t.Helper()

	stubOpenPort(t, fp, nil)
	s, err := OpenSerial("/dev/test-"+t.Name(), append([]Option{WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatalf("openTestSerial: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

// newPipeConn creates a net.Pipe pair and registers cleanup.
func newPipeConn(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	return local, remote
}

// mustWrite writes data to w, failing the test on error.
func mustWrite(t *testing.T, w io.Writer, data string) {
	t.Helper()

	if _, err := w.Write([]byte(data)); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("mustWrite: %v", err)
	}
}

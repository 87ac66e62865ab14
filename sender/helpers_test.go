package sender

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonas-nogueira/gcode-sender/gcode"
	"github.com/jonas-nogueira/gcode-sender/logger"
)

// fakeTransport is a scripted device.
//
// Each ReadLine consumes one entry of responses; once they run out the device
// answers "ok". Every call is appended to events so tests can check ordering.
type fakeTransport struct {
	responses []string

	events   []string
	writes   []string
	discards int

	writeFailAt int // 1-based write call that fails; 0 = never
	writeErr    error
	readErr     error
	discardErr  error
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.writeFailAt > 0 && len(f.writes)+1 == f.writeFailAt {
		f.events = append(f.events, "write-error")
		return 0, f.writeErr
	}
	f.writes = append(f.writes, string(p))
	f.events = append(f.events, "write:"+string(p))

	return len(p), nil
}

func (f *fakeTransport) ReadLine() ([]byte, error) {
	f.events = append(f.events, "read")
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.responses) == 0 {
		return []byte("ok\r\n"), nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]

	return []byte(r + "\r\n"), nil
}

func (f *fakeTransport) DiscardInput() error {
	f.events = append(f.events, "discard")
	f.discards++

	return f.discardErr
}

// commandWrites returns the writes after the handshake reset sequence.
func (f *fakeTransport) commandWrites() []string {
	if len(f.writes) == 0 {
		return nil
	}

	return f.writes[1:]
}

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	if r.err != nil {
		return r.err
	}

	return ctx.Err()
}

// newTestSender creates a Sender with a recording sleeper and a silent logger.
func newTestSender(t *testing.T, tr Transport, commands []string, opts ...Option) (*Sender, *recordingSleeper) {
	t.Helper()

	sl := &recordingSleeper{}
	defaults := []Option{
		WithSleeper(sl),
		WithLogger(logger.Nop()),
	}

	s, err := New(tr, gcode.Normalize(commands), append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestSender: %v", err)
	}

	return s, sl
}

// repeat returns n copies of s.
func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}

	return out
}

func makeCommands(n int) []string {
	cmds := make([]string, n)
	for i := range cmds {
		cmds[i] = "G1 X" + strings.Repeat("1", i+1)
	}

	return cmds
}

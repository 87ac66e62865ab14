package sender

import (
	"fmt"
	"io"
)

// Tracer receives the human readable trace of a run.
//
// The trace is advisory output for an operator watching the job; it plays no
// part in flow control.
type Tracer interface {
	// Sent is called with the trimmed command of an acknowledged exchange.
	Sent(command string)
	// Received is called with the response of an acknowledged exchange.
	Received(response string)
	// Resending is called when a rejected command will be written again.
	// attempt is the retry counter after the increment.
	Resending(attempt int, response string)
	// Finished is called once when every command was acknowledged.
	Finished(total int)
	// Failed is called once when the run ends in ErrorState.
	Failed(cursor int, err error)
}

// NopTracer discards the trace.
type NopTracer struct{}

func (NopTracer) Sent(string)           {}
func (NopTracer) Received(string)       {}
func (NopTracer) Resending(int, string) {}
func (NopTracer) Finished(int)          {}
func (NopTracer) Failed(int, error)     {}

// WriterTracer prints the trace to an io.Writer, typically stdout:
//
//	>>> G1 X10
//	<<<   ok
//	Resending command -1-
//	Print finished!
type WriterTracer struct {
	w io.Writer
}

// NewWriterTracer creates a WriterTracer writing to w.
func NewWriterTracer(w io.Writer) *WriterTracer {
	return &WriterTracer{w: w}
}

func (t *WriterTracer) Sent(command string) {
	fmt.Fprintf(t.w, ">>> %s\n", command)
}

func (t *WriterTracer) Received(response string) {
	fmt.Fprintf(t.w, "<<<   %s\n", response)
}

func (t *WriterTracer) Resending(attempt int, _ string) {
	fmt.Fprintf(t.w, "Resending command -%d-\n", attempt)
}

func (t *WriterTracer) Finished(int) {
	fmt.Fprintln(t.w, "Print finished!")
}

func (t *WriterTracer) Failed(cursor int, err error) {
	fmt.Fprintf(t.w, "Print error at command %d: %v\n", cursor, err)
}

package sender

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTransport indicates that a nil Transport was provided.
	ErrNilTransport = errors.New("transport is nil")

	// ErrAlreadyStarted indicates that Run was called more than once on a Sender.
	ErrAlreadyStarted = errors.New("sender already started")
)

var (
	// ErrTransport indicates a write, read or discard failure on the transport.
	// It is fatal for the run and does not consume retry budget.
	ErrTransport = errors.New("transport failure")

	// ErrRetryExhausted indicates that a command was rejected retry-limit times in a row.
	ErrRetryExhausted = errors.New("retry limit exhausted")

	// ErrLivenessGuard indicates that the run did not reach a terminal state within
	// the structural bound of len(commands) * retryLimit + 1 exchanges.
	ErrLivenessGuard = errors.New("exchange bound exceeded")
)

// ExchangeError reports the command a run stopped at after its retry budget ran out.
//
// Cursor is the 0-based index of that command, so a job can be resumed manually
// from Cursor.
type ExchangeError struct {
	Cursor   int
	Command  string
	Response string
	Attempts int
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("sender: command %d %q rejected %d times, last response %q: %v",
		e.Cursor, e.Command, e.Attempts, e.Response, ErrRetryExhausted)
}

func (e *ExchangeError) Unwrap() error { return ErrRetryExhausted }

package sender

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jonas-nogueira/gcode-sender/gcode"
	"github.com/jonas-nogueira/gcode-sender/logger"
)

// Transport is the duplex line channel to the device.
//
// The transport is expected to be open and configured before it is handed to
// New, and is used exclusively by the Sender for the duration of a run.
type Transport interface {
	// Write writes p to the device.
	Write(p []byte) (int, error)
	// ReadLine blocks until a full line arrives or the read timeout elapses.
	// On timeout it returns whatever was received so far, possibly nothing,
	// with a nil error. A non-nil error means the transport is unusable.
	ReadLine() ([]byte, error)
	// DiscardInput drops all buffered input.
	DiscardInput() error
}

// exchangeResult classifies the outcome of a single exchange so the run loop
// can decide whether to continue, stop, or abort.
type exchangeResult int

const (
	exchangeDone      exchangeResult = iota // No command left; run finished.
	exchangeAdvanced                        // Command acknowledged; cursor moved.
	exchangeResend                          // Command rejected; resend at the same cursor.
	exchangeExhausted                       // Command rejected with no retry budget left.
	exchangeAbort                           // Transport failure or inconsistent classifier.
)

// Sender streams a command sequence to a device, one command in flight at a time.
//
// A Sender runs once. It is NOT goroutine-safe, except for Metrics which may be
// read concurrently with Run.
type Sender struct {
	transport Transport
	commands  gcode.Sequence
	cfg       *config
	logger    logger.Logger
	metrics   Metrics

	state   RunState
	cursor  int
	retries int
}

// New creates a Sender in ReadyState with the cursor and retry counter at zero.
// No I/O is performed.
func New(t Transport, commands gcode.Sequence, opts ...Option) (*Sender, error) {
	if t == nil {
		return nil, ErrNilTransport
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return &Sender{
		transport: t,
		commands:  append(gcode.Sequence(nil), commands...),
		cfg:       cfg,
		logger:    cfg.logger,
		state:     ReadyState,
	}, nil
}

// State returns the current run state.
func (s *Sender) State() RunState { return s.state }

// Cursor returns the index of the next command to send.
func (s *Sender) Cursor() int { return s.cursor }

// Retries returns the number of consecutive rejections of the command at the cursor.
func (s *Sender) Retries() int { return s.retries }

// Len returns the number of commands in the sequence.
func (s *Sender) Len() int { return s.commands.Len() }

// Metrics returns the run metrics.
func (s *Sender) Metrics() *Metrics { return &s.metrics }

// Run performs the handshake and streams every command, returning the terminal state.
//
// The returned error is nil only for FinishedState. ctx is checked during the
// settle delay and before every exchange; a blocked read is bounded by the
// transport's read timeout.
func (s *Sender) Run(ctx context.Context) (RunState, error) {
	if s.state != ReadyState {
		return s.state, ErrAlreadyStarted
	}
	s.state = RunningState

	s.logger.Info("sender: starting run",
		"commands", s.commands.Len(),
		"retryLimit", s.cfg.retryLimit,
		"settleDelay", s.cfg.settleDelay,
		"framing", s.cfg.framing.String(),
	)

	if err := s.handshake(ctx); err != nil {
		return s.fail(err)
	}

	// Each command takes at most retryLimit exchanges, plus the final no-I/O check.
	bound := s.commands.Len()*s.cfg.retryLimit + 1

	for range bound {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}

		result, err := s.exchange()

		switch result {
		case exchangeDone:
			s.state = FinishedState
			s.cfg.tracer.Finished(s.commands.Len())
			s.logger.Info("sender: run finished",
				"commands", s.commands.Len(),
				"exchanges", s.metrics.ExchangeCount.Load(),
			)

			return s.state, nil

		case exchangeAdvanced, exchangeResend:
			continue

		case exchangeExhausted, exchangeAbort:
			return s.fail(err)
		}
	}

	return s.fail(ErrLivenessGuard)
}

// handshake resets the device line and clears the boot chatter.
func (s *Sender) handshake(ctx context.Context) error {
	if err := s.write(s.cfg.resetSequence); err != nil {
		return err
	}

	s.logger.Debug("sender: waiting for device to settle", "delay", s.cfg.settleDelay)
	if err := s.cfg.sleeper.Sleep(ctx, s.cfg.settleDelay); err != nil {
		return err
	}

	if err := s.transport.DiscardInput(); err != nil {
		return fmt.Errorf("sender: %w: discard input: %w", ErrTransport, err)
	}

	return nil
}

func (s *Sender) hasNext() bool {
	return s.cursor < s.commands.Len()
}

// exchange performs one command-send attempt at the cursor.
func (s *Sender) exchange() (exchangeResult, error) {
	if !s.hasNext() {
		return exchangeDone, nil
	}

	frame := s.cfg.framing.Frame(s.cursor+1, s.commands.At(s.cursor))
	if err := s.write([]byte(frame)); err != nil {
		return exchangeAbort, err
	}

	raw, err := s.transport.ReadLine()
	if err != nil {
		return exchangeAbort, fmt.Errorf("sender: %w: read response: %w", ErrTransport, err)
	}
	s.metrics.incExchangeCount()

	command := s.commands.Trimmed(s.cursor)
	response := strings.TrimSpace(string(raw))

	switch outcome := s.cfg.classifier.Classify(response); outcome {
	case Acknowledged:
		s.metrics.incAckCount()
		s.cfg.tracer.Sent(command)
		s.cfg.tracer.Received(response)
		s.logger.Debug("sender: command acknowledged",
			"cursor", s.cursor,
			"command", command,
			"response", response,
		)

		s.cursor++
		s.retries = 0
		s.metrics.setCursor(s.cursor)

		return exchangeAdvanced, nil

	case Rejected:
		s.metrics.incRejectCount()

		if s.retries < s.cfg.retryLimit-1 {
			s.retries++
			s.metrics.incResendCount()
			s.cfg.tracer.Resending(s.retries, response)
			s.logger.Warn("sender: command rejected, resending",
				"cursor", s.cursor,
				"command", command,
				"response", response,
				"retry", s.retries,
				"retryLimit", s.cfg.retryLimit,
			)

			return exchangeResend, nil
		}

		return exchangeExhausted, &ExchangeError{
			Cursor:   s.cursor,
			Command:  command,
			Response: response,
			Attempts: s.retries + 1,
		}

	default:
		return exchangeAbort, fmt.Errorf("sender: classifier returned invalid outcome %d for %q", outcome, response)
	}
}

// write writes all of p to the transport.
func (s *Sender) write(p []byte) error {
	n, err := s.transport.Write(p)
	s.metrics.addBytesWritten(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("sender: %w: write: %w", ErrTransport, err)
	}

	return nil
}

// fail moves the run to ErrorState and reports err.
func (s *Sender) fail(err error) (RunState, error) {
	s.state = ErrorState
	s.cfg.tracer.Failed(s.cursor, err)
	s.logger.Error("sender: run failed",
		"cursor", s.cursor,
		"commands", s.commands.Len(),
		"error", err,
	)

	return s.state, err
}

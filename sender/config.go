package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonas-nogueira/gcode-sender/gcode"
	"github.com/jonas-nogueira/gcode-sender/internal/clock"
	"github.com/jonas-nogueira/gcode-sender/logger"
)

const (
	DefaultRetryLimit  = 3               // consecutive attempts per command
	DefaultSettleDelay = 2 * time.Second // firmware reset settle time

	MaxRetryLimit  = 31
	MaxSettleDelay = time.Minute
)

// DefaultResetSequence is written once before the settle delay.
var DefaultResetSequence = []byte("\r\n\r\n")

// Sleeper suspends the caller for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// config holds the tunables of a Sender.
type config struct {
	retryLimit    int
	settleDelay   time.Duration
	resetSequence []byte

	sleeper    Sleeper
	classifier Classifier
	framing    gcode.Framing
	tracer     Tracer
	logger     logger.Logger
}

func defaultConfig() *config {
	return &config{
		retryLimit:    DefaultRetryLimit,
		settleDelay:   DefaultSettleDelay,
		resetSequence: DefaultResetSequence,
		sleeper:       clock.Real,
		classifier:    DefaultClassifier,
		framing:       gcode.PlainFraming{},
		tracer:        NopTracer{},
		logger:        logger.GetLogger(),
	}
}

// Option is a functional option for configuring a Sender.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithRetryLimit sets how many times a command is attempted before the run fails.
// Range: 1..31. A limit of 1 fails on the first rejection.
func WithRetryLimit(n int) Option {
	return optFunc(func(cfg *config) error {
		if n < 1 || n > MaxRetryLimit {
			return fmt.Errorf("sender: retry limit %d out of range [1, %d]", n, MaxRetryLimit)
		}
		cfg.retryLimit = n

		return nil
	})
}

// WithSettleDelay sets the wait between the reset sequence and the input discard.
// Range: 0..1m.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d < 0 || d > MaxSettleDelay {
			return fmt.Errorf("sender: settle delay %v out of range [0, %v]", d, MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithResetSequence replaces the bytes written at the start of the handshake.
func WithResetSequence(b []byte) Option {
	return optFunc(func(cfg *config) error {
		if len(b) == 0 {
			return errors.New("sender: reset sequence must not be empty")
		}
		cfg.resetSequence = append([]byte(nil), b...)

		return nil
	})
}

// WithSleeper sets the time source used for the settle delay.
func WithSleeper(s Sleeper) Option {
	return optFunc(func(cfg *config) error {
		if s == nil {
			return errors.New("sender: sleeper must not be nil")
		}
		cfg.sleeper = s

		return nil
	})
}

// WithClassifier sets the response classification policy.
func WithClassifier(c Classifier) Option {
	return optFunc(func(cfg *config) error {
		if c == nil {
			return errors.New("sender: classifier must not be nil")
		}
		cfg.classifier = c

		return nil
	})
}

// WithFraming sets how commands are rendered on the wire. Plain by default.
func WithFraming(f gcode.Framing) Option {
	return optFunc(func(cfg *config) error {
		if f == nil {
			return errors.New("sender: framing must not be nil")
		}
		cfg.framing = f

		return nil
	})
}

// WithTracer sets the receiver of the human readable exchange trace.
func WithTracer(t Tracer) Option {
	return optFunc(func(cfg *config) error {
		if t == nil {
			return errors.New("sender: tracer must not be nil")
		}
		cfg.tracer = t

		return nil
	})
}

// WithLogger sets the logger for the sender.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("sender: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

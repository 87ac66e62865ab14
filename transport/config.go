package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonas-nogueira/gcode-sender/logger"
	"go.bug.st/serial"
)

const (
	DefaultBaudRate     = 115200
	DefaultReadTimeout  = 1 * time.Second
	DefaultDialTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
	DefaultDrainWindow  = 100 * time.Millisecond

	MinReadTimeout = 10 * time.Millisecond
	MaxReadTimeout = time.Minute
)

// portConfig holds the settings shared by the transports.
type portConfig struct {
	baudRate int
	dataBits int
	parity   serial.Parity
	stopBits serial.StopBits

	readTimeout  time.Duration
	writeTimeout time.Duration
	dialTimeout  time.Duration
	drainWindow  time.Duration

	logger logger.Logger
}

func newPortConfig(opts ...Option) (*portConfig, error) {
	cfg := &portConfig{
		baudRate:     DefaultBaudRate,
		dataBits:     8,
		parity:       serial.NoParity,
		stopBits:     serial.OneStopBit,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		dialTimeout:  DefaultDialTimeout,
		drainWindow:  DefaultDrainWindow,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *portConfig) mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: cfg.dataBits,
		Parity:   cfg.parity,
		StopBits: cfg.stopBits,
	}
}

// Option is a functional option for configuring a transport.
type Option interface {
	apply(*portConfig) error
}

type optFunc func(*portConfig) error

func (f optFunc) apply(cfg *portConfig) error { return f(cfg) }

// WithBaudRate sets the serial line speed. Ignored by TCP.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *portConfig) error {
		if baud <= 0 {
			return fmt.Errorf("transport: %w: baud rate %d must be positive", ErrInvalidOption, baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithDataBits sets the number of data bits, 5..8. Ignored by TCP.
func WithDataBits(bits int) Option {
	return optFunc(func(cfg *portConfig) error {
		if bits < 5 || bits > 8 {
			return fmt.Errorf("transport: %w: data bits %d out of range [5, 8]", ErrInvalidOption, bits)
		}
		cfg.dataBits = bits

		return nil
	})
}

// WithParity sets the parity by name: "none", "odd", "even", "mark" or "space".
// Ignored by TCP.
func WithParity(name string) Option {
	return optFunc(func(cfg *portConfig) error {
		p, err := ParseParity(name)
		if err != nil {
			return err
		}
		cfg.parity = p

		return nil
	})
}

// WithStopBits sets one or two stop bits. Ignored by TCP.
func WithStopBits(bits int) Option {
	return optFunc(func(cfg *portConfig) error {
		switch bits {
		case 1:
			cfg.stopBits = serial.OneStopBit
		case 2:
			cfg.stopBits = serial.TwoStopBits
		default:
			return fmt.Errorf("transport: %w: stop bits %d must be 1 or 2", ErrInvalidOption, bits)
		}

		return nil
	})
}

// WithReadTimeout bounds a single ReadLine. Range: 10ms..1m.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *portConfig) error {
		if d < MinReadTimeout || d > MaxReadTimeout {
			return fmt.Errorf("transport: %w: read timeout %v out of range [%v, %v]", ErrInvalidOption, d, MinReadTimeout, MaxReadTimeout)
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithWriteTimeout bounds a single Write on TCP.
func WithWriteTimeout(d time.Duration) Option {
	return optFunc(func(cfg *portConfig) error {
		if d <= 0 {
			return fmt.Errorf("transport: %w: write timeout must be positive", ErrInvalidOption)
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithDialTimeout sets the TCP dial timeout.
func WithDialTimeout(d time.Duration) Option {
	return optFunc(func(cfg *portConfig) error {
		if d <= 0 {
			return fmt.Errorf("transport: %w: dial timeout must be positive", ErrInvalidOption)
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithDrainWindow sets how long the TCP line must stay silent for DiscardInput
// to consider it drained.
func WithDrainWindow(d time.Duration) Option {
	return optFunc(func(cfg *portConfig) error {
		if d <= 0 {
			return fmt.Errorf("transport: %w: drain window must be positive", ErrInvalidOption)
		}
		cfg.drainWindow = d

		return nil
	})
}

// WithLogger sets the logger for the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *portConfig) error {
		if l == nil {
			return fmt.Errorf("transport: %w: logger must not be nil", ErrInvalidOption)
		}
		cfg.logger = l

		return nil
	})
}

// ParseParity maps a parity name to its serial.Parity value.
func ParseParity(name string) (serial.Parity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "n":
		return serial.NoParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "mark", "m":
		return serial.MarkParity, nil
	case "space", "s":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, fmt.Errorf("transport: %w: unknown parity %q", ErrInvalidOption, name)
	}
}

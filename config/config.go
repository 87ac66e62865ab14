// Package config loads gcodesend job settings from a YAML file and converts
// them into sender and transport options.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonas-nogueira/gcode-sender/gcode"
	"github.com/jonas-nogueira/gcode-sender/logger"
	"github.com/jonas-nogueira/gcode-sender/sender"
	"github.com/jonas-nogueira/gcode-sender/transport"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the serial device used when neither a port nor a TCP bridge is configured.
const DefaultPort = "/dev/ttyUSB0"

// ErrInvalidConfig indicates a configuration value outside its allowed range.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes how a job is streamed.
type Config struct {
	Port        string   `yaml:"port"`
	TCP         string   `yaml:"tcp"`
	BaudRate    int      `yaml:"baud_rate"`
	Parity      string   `yaml:"parity"`
	ReadTimeout Duration `yaml:"read_timeout"`
	SettleDelay Duration `yaml:"settle_delay"`
	RetryLimit  int      `yaml:"retry_limit"`
	Framing     string   `yaml:"framing"`
	Classifier  string   `yaml:"classifier"`
	LogLevel    string   `yaml:"log_level"`
	MetricsAddr string   `yaml:"metrics_addr"`
}

// Duration is a time.Duration decoded from strings such as "1s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: line %d: %w", node.Line, err)
	}
	*d = Duration(v)

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in job settings.
func Default() Config {
	return Config{
		Port:        DefaultPort,
		BaudRate:    transport.DefaultBaudRate,
		Parity:      "none",
		ReadTimeout: Duration(transport.DefaultReadTimeout),
		SettleDelay: Duration(sender.DefaultSettleDelay),
		RetryLimit:  sender.DefaultRetryLimit,
		Framing:     "plain",
		Classifier:  "default",
		LogLevel:    "info",
	}
}

// Load reads the YAML file at path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks every field against the limits of the packages it feeds.
func (c Config) Validate() error {
	if c.Port == "" && c.TCP == "" {
		return fmt.Errorf("config: %w: either port or tcp must be set", ErrInvalidConfig)
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("config: %w: baud_rate %d must be positive", ErrInvalidConfig, c.BaudRate)
	}
	if _, err := transport.ParseParity(c.Parity); err != nil {
		return fmt.Errorf("config: %w: %w", ErrInvalidConfig, err)
	}
	if rt := c.ReadTimeout.Std(); rt < transport.MinReadTimeout || rt > transport.MaxReadTimeout {
		return fmt.Errorf("config: %w: read_timeout %v out of range [%v, %v]",
			ErrInvalidConfig, rt, transport.MinReadTimeout, transport.MaxReadTimeout)
	}
	if sd := c.SettleDelay.Std(); sd < 0 || sd > sender.MaxSettleDelay {
		return fmt.Errorf("config: %w: settle_delay %v out of range [0, %v]", ErrInvalidConfig, sd, sender.MaxSettleDelay)
	}
	if c.RetryLimit < 1 || c.RetryLimit > sender.MaxRetryLimit {
		return fmt.Errorf("config: %w: retry_limit %d out of range [1, %d]", ErrInvalidConfig, c.RetryLimit, sender.MaxRetryLimit)
	}
	if _, err := gcode.ParseFraming(c.Framing); err != nil {
		return fmt.Errorf("config: %w: %w", ErrInvalidConfig, err)
	}
	if _, err := sender.ParseClassifier(c.Classifier); err != nil {
		return fmt.Errorf("config: %w: %w", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Level returns the configured log level.
func (c Config) Level() logger.Level {
	lv, _ := logger.ParseLevel(c.LogLevel)
	return lv
}

// SenderOptions converts the job settings into sender options.
// Call Validate first; invalid values surface as option errors from sender.New.
func (c Config) SenderOptions() []sender.Option {
	opts := []sender.Option{
		sender.WithRetryLimit(c.RetryLimit),
		sender.WithSettleDelay(c.SettleDelay.Std()),
	}
	if f, err := gcode.ParseFraming(c.Framing); err == nil {
		opts = append(opts, sender.WithFraming(f))
	}
	if cl, err := sender.ParseClassifier(c.Classifier); err == nil {
		opts = append(opts, sender.WithClassifier(cl))
	}

	return opts
}

// TransportOptions converts the job settings into transport options.
func (c Config) TransportOptions() []transport.Option {
	return []transport.Option{
		transport.WithBaudRate(c.BaudRate),
		transport.WithParity(c.Parity),
		transport.WithReadTimeout(c.ReadTimeout.Std()),
	}
}

// Target returns the device the job is streamed to, the TCP bridge taking precedence.
func (c Config) Target() string {
	if c.TCP != "" {
		return "tcp://" + c.TCP
	}

	return c.Port
}

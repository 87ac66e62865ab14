package main

import (
	"io"
	"time"

	"github.com/jonas-nogueira/gcode-sender/config"
	"github.com/spf13/cobra"
)

type options struct {
	file        string
	configPath  string
	port        string
	tcp         string
	baud        int
	readTimeout time.Duration
	settleDelay time.Duration
	retryLimit  int
	framing     string
	classifier  string
	logLevel    string
	metricsAddr string
	quiet       bool

	stderr io.Writer
}

func newRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gcodesend -f FILE",
		Short: "Stream a G-code file to a printer",
		Long: `gcodesend resets the printer, then sends every command of a G-code file and
waits for the acknowledgement before sending the next one. Rejected commands are
resent up to the retry limit.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, o)
			if err != nil {
				return err
			}

			return runJob(cmd.Context(), cfg, o, cmd.OutOrStdout())
		},
	}

	defaults := config.Default()

	flags := cmd.Flags()
	flags.StringVarP(&o.file, "file", "f", "", "G-code file to send")
	flags.StringVarP(&o.configPath, "config", "c", "", "YAML job settings file")
	flags.StringVarP(&o.port, "port", "p", defaults.Port, "serial device")
	flags.StringVar(&o.tcp, "tcp", "", "host:port of a serial-over-TCP bridge, used instead of --port")
	flags.IntVarP(&o.baud, "baud", "b", defaults.BaudRate, "serial baud rate")
	flags.DurationVar(&o.readTimeout, "read-timeout", defaults.ReadTimeout.Std(), "how long to wait for a response line")
	flags.DurationVar(&o.settleDelay, "settle-delay", defaults.SettleDelay.Std(), "wait after the reset before streaming")
	flags.IntVar(&o.retryLimit, "retry-limit", defaults.RetryLimit, "attempts per command before giving up")
	flags.StringVar(&o.framing, "framing", defaults.Framing, "line framing: plain or checksum")
	flags.StringVar(&o.classifier, "classifier", defaults.Classifier, "response policy: default, or strict to treat silence as a rejection")
	flags.StringVar(&o.logLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "do not print the command trace")

	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// resolveConfig loads the job file, if any, and applies the flags the user set on top of it.
func resolveConfig(cmd *cobra.Command, o *options) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = o.port
	}
	if changed("tcp") {
		cfg.TCP = o.tcp
	}
	if changed("baud") {
		cfg.BaudRate = o.baud
	}
	if changed("read-timeout") {
		cfg.ReadTimeout = config.Duration(o.readTimeout)
	}
	if changed("settle-delay") {
		cfg.SettleDelay = config.Duration(o.settleDelay)
	}
	if changed("retry-limit") {
		cfg.RetryLimit = o.retryLimit
	}
	if changed("framing") {
		cfg.Framing = o.framing
	}
	if changed("classifier") {
		cfg.Classifier = o.classifier
	}
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

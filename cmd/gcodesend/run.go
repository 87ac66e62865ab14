package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jonas-nogueira/gcode-sender/config"
	"github.com/jonas-nogueira/gcode-sender/gcode"
	"github.com/jonas-nogueira/gcode-sender/logger"
	"github.com/jonas-nogueira/gcode-sender/sender"
	"github.com/jonas-nogueira/gcode-sender/transport"
)

// device is an open transport the job can be streamed over.
type device interface {
	sender.Transport
	io.Closer
	Name() string
}

// runJob streams o.file to the configured device and returns nil only when the
// job finished.
func runJob(ctx context.Context, cfg config.Config, o *options, out io.Writer) error {
	stderr := o.stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	runID := uuid.NewString()
	log := logger.NewSlogWithWriter(stderr, cfg.Level(), false).With("runID", runID)
	logger.SetDefault(log)

	commands, err := gcode.LoadFile(o.file)
	if err != nil {
		return err
	}

	dev, err := openDevice(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("failed to close device", "device", dev.Name(), "error", err)
		}
	}()

	fmt.Fprintf(out, "USB port: %s\n", dev.Name())

	var tracer sender.Tracer = sender.NewWriterTracer(out)
	if o.quiet {
		tracer = sender.NopTracer{}
	}

	opts := append(cfg.SenderOptions(),
		sender.WithTracer(tracer),
		sender.WithLogger(log),
	)
	s, err := sender.New(dev, commands, opts...)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(cfg.MetricsAddr, newMetricsRegistry(s), log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	log.Info("job started",
		"file", o.file,
		"device", dev.Name(),
		"commands", commands.Len(),
	)

	state, err := s.Run(ctx)
	log.Info("job ended",
		"state", state.String(),
		"cursor", s.Cursor(),
		"exchanges", s.Metrics().ExchangeCount.Load(),
		"resends", s.Metrics().ResendCount.Load(),
	)

	return err
}

func openDevice(cfg config.Config, log logger.Logger) (device, error) {
	opts := append(cfg.TransportOptions(), transport.WithLogger(log))

	if addr, ok := strings.CutPrefix(cfg.Target(), "tcp://"); ok {
		tc, err := transport.DialTCP(addr, opts...)
		if err != nil {
			return nil, err
		}

		return tc, nil
	}

	port, err := transport.OpenSerial(cfg.Port, opts...)
	if err != nil {
		return nil, err
	}

	return port, nil
}

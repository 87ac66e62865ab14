package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jonas-nogueira/gcode-sender/logger"
	"github.com/jonas-nogueira/gcode-sender/sender"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsShutdownTimeout = 2 * time.Second

func counterFunc(name, help string, v *atomic.Uint64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	)
}

// newMetricsRegistry exposes the run metrics of s.
func newMetricsRegistry(s *sender.Sender) *prometheus.Registry {
	m := s.Metrics()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		counterFunc("gcodesend_exchanges_total", "Command/response exchanges with the device.", &m.ExchangeCount),
		counterFunc("gcodesend_acks_total", "Responses classified as acknowledged.", &m.AckCount),
		counterFunc("gcodesend_rejects_total", "Responses classified as rejected.", &m.RejectCount),
		counterFunc("gcodesend_resends_total", "Commands scheduled for resend.", &m.ResendCount),
		counterFunc("gcodesend_bytes_written_total", "Bytes written to the device.", &m.BytesWritten),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "gcodesend_cursor", Help: "Index of the next command to send."},
			func() float64 { return float64(m.CursorGauge.Load()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "gcodesend_commands", Help: "Number of commands in the job."},
			func() float64 { return float64(s.Len()) },
		),
	)

	return reg
}

// serveMetrics serves reg on addr until the returned shutdown function is called.
func serveMetrics(addr string, reg *prometheus.Registry, log logger.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonas-nogueira/gcode-sender/config"
	"github.com/jonas-nogueira/gcode-sender/gcode"
	"github.com/jonas-nogueira/gcode-sender/internal/devicesim"
	"github.com/jonas-nogueira/gcode-sender/logger"
	"github.com/jonas-nogueira/gcode-sender/sender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// startDevice serves d on a local TCP listener and returns its address.
func startDevice(t *testing.T, d *devicesim.Device) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.ServeListener(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return ln.Addr().String()
}

func parseRoot(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()

	o := &options{stderr: io.Discard}
	cmd := newRootCmd(o)
	require.NoError(t, cmd.ParseFlags(args))

	return resolveConfig(cmd, o)
}

func TestResolveConfig_Defaults(t *testing.T) {
	cfg, err := parseRoot(t, "-f", "job.gcode")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, "job.yaml", "baud_rate: 250000\nretry_limit: 5\nframing: checksum\n")

	cfg, err := parseRoot(t,
		"-f", "job.gcode",
		"-c", path,
		"--retry-limit", "2",
		"--tcp", "10.0.0.5:2000",
		"--settle-delay", "500ms",
	)
	require.NoError(err)
	require.Equal(250000, cfg.BaudRate, "file value kept when flag not set")
	require.Equal("checksum", cfg.Framing)
	require.Equal(2, cfg.RetryLimit, "flag overrides file")
	require.Equal(500*time.Millisecond, cfg.SettleDelay.Std())
	require.Equal("tcp://10.0.0.5:2000", cfg.Target())
}

func TestResolveConfig_Invalid(t *testing.T) {
	_, err := parseRoot(t, "-f", "job.gcode", "--retry-limit", "0")
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = parseRoot(t, "-f", "job.gcode", "--framing", "crc")
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = parseRoot(t, "-f", "job.gcode", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

const job = `
G28
G1 X10 Y10

M105
`

func TestExecute_Finished(t *testing.T) {
	addr := startDevice(t, devicesim.New(devicesim.WithLogger(logger.Nop())))
	file := writeFile(t, "job.gcode", job)

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(),
		[]string{"-f", file, "--tcp", addr, "--settle-delay", "10ms", "--log-level", "error"},
		&stdout, &stderr,
	)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "USB port: "+addr)
	assert.Contains(t, out, ">>> G28\n<<<   ok\n")
	assert.Contains(t, out, ">>> M105\n")
	assert.True(t, strings.HasSuffix(out, "Print finished!\n"))
}

func TestExecute_Quiet(t *testing.T) {
	addr := startDevice(t, devicesim.New(devicesim.WithLogger(logger.Nop())))
	file := writeFile(t, "job.gcode", job)

	var stdout bytes.Buffer
	code := execute(context.Background(),
		[]string{"-q", "-f", file, "--tcp", addr, "--settle-delay", "0s", "--log-level", "error"},
		&stdout, io.Discard,
	)
	require.Equal(t, 0, code)
	assert.Equal(t, "USB port: "+addr+"\n", stdout.String())
}

func TestExecute_RetryExhausted(t *testing.T) {
	device := devicesim.New(
		devicesim.WithLogger(logger.Nop()),
		devicesim.WithResponder(devicesim.ResponderFunc(func(string) string { return "Error:Printer halted" })),
	)
	addr := startDevice(t, device)
	file := writeFile(t, "job.gcode", job)

	var stdout, stderr bytes.Buffer
	code := execute(context.Background(),
		[]string{"-f", file, "--tcp", addr, "--settle-delay", "10ms", "--retry-limit", "2", "--log-level", "error"},
		&stdout, &stderr,
	)
	require.Equal(t, 1, code)

	assert.Contains(t, stdout.String(), "Resending command -1-")
	assert.NotContains(t, stdout.String(), "Resending command -2-")
	assert.Contains(t, stdout.String(), "Print error at command 0")
	assert.Contains(t, stderr.String(), "Error:")
	assert.Equal(t, []string{"G28", "G28"}, device.Received())
}

func TestExecute_Failures(t *testing.T) {
	t.Run("Missing file flag", func(t *testing.T) {
		var stderr bytes.Buffer
		assert.Equal(t, 1, execute(context.Background(), nil, io.Discard, &stderr))
		assert.Contains(t, stderr.String(), "file")
	})

	t.Run("Unreadable file", func(t *testing.T) {
		var stderr bytes.Buffer
		code := execute(context.Background(),
			[]string{"-f", filepath.Join(t.TempDir(), "missing.gcode"), "--tcp", "127.0.0.1:1"},
			io.Discard, &stderr,
		)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "missing.gcode")
	})

	t.Run("Device unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		file := writeFile(t, "job.gcode", job)
		var stdout bytes.Buffer
		code := execute(context.Background(),
			[]string{"-f", file, "--tcp", addr, "--log-level", "error"},
			&stdout, io.Discard,
		)
		assert.Equal(t, 1, code)
		assert.NotContains(t, stdout.String(), "USB port")
	})
}

type okTransport struct{}

func (okTransport) Write(p []byte) (int, error) { return len(p), nil }
func (okTransport) ReadLine() ([]byte, error)   { return []byte("ok\n"), nil }
func (okTransport) DiscardInput() error         { return nil }

func runOKSender(t *testing.T) *sender.Sender {
	t.Helper()

	s, err := sender.New(okTransport{}, gcode.Normalize([]string{"G28", "M105"}),
		sender.WithSettleDelay(0),
		sender.WithLogger(logger.Nop()),
		sender.WithTracer(sender.NopTracer{}),
	)
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	return s
}

func TestMetricsRegistry(t *testing.T) {
	require := require.New(t)

	reg := newMetricsRegistry(runOKSender(t))

	families, err := reg.Gather()
	require.NoError(err)

	values := make(map[string]float64)
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}

	require.Equal(map[string]float64{
		"gcodesend_exchanges_total":     2,
		"gcodesend_acks_total":          2,
		"gcodesend_rejects_total":       0,
		"gcodesend_resends_total":       0,
		"gcodesend_bytes_written_total": float64(len("\r\n\r\n") + len("G28\n") + len("M105\n")),
		"gcodesend_cursor":              2,
		"gcodesend_commands":            2,
	}, values)
}

func TestServeMetrics(t *testing.T) {
	require := require.New(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	addr := ln.Addr().String()
	require.NoError(ln.Close())

	shutdown, err := serveMetrics(addr, newMetricsRegistry(runOKSender(t)), logger.Nop())
	require.NoError(err)
	defer shutdown()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Contains(string(body), "gcodesend_cursor 2")
	require.Contains(string(body), "gcodesend_exchanges_total 2")

	_, err = serveMetrics(addr, newMetricsRegistry(runOKSender(t)), logger.Nop())
	require.Error(err, "address already in use")
}

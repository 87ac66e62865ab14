// Package devicesim provides a scripted printer firmware simulator that speaks
// the ok/Error line protocol over a net.Conn.
package devicesim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/jonas-nogueira/gcode-sender/gcode"
	"github.com/jonas-nogueira/gcode-sender/logger"
)

// DefaultBanner is what the device prints when it is woken up, the way Marlin
// prints its boot messages after a reset.
var DefaultBanner = []string{"start", "echo: External Reset", "echo: Marlin 2.1.2"}

// Responder decides the reply to a received command.
type Responder interface {
	Respond(command string) string
}

// ResponderFunc adapts a function to a Responder.
type ResponderFunc func(command string) string

func (f ResponderFunc) Respond(command string) string { return f(command) }

// AlwaysOK acknowledges every command.
func AlwaysOK() Responder {
	return ResponderFunc(func(string) string { return "ok" })
}

// Script replies with the given responses in order, then "ok" for every
// command after the script runs out.
func Script(replies ...string) Responder {
	var (
		mu sync.Mutex
		i  int
	)

	return ResponderFunc(func(string) string {
		mu.Lock()
		defer mu.Unlock()

		if i >= len(replies) {
			return "ok"
		}
		reply := replies[i]
		i++

		return reply
	})
}

// Device is a simulated printer. It serves one connection at a time.
type Device struct {
	responder Responder
	banner    []string
	checksum  bool
	logger    logger.Logger

	mu       sync.Mutex
	received []string
}

// Option configures a Device.
type Option func(*Device)

// WithResponder sets how the device answers commands. Defaults to AlwaysOK.
func WithResponder(r Responder) Option {
	return func(d *Device) { d.responder = r }
}

// WithBanner sets the lines printed on wake-up. Defaults to DefaultBanner.
func WithBanner(lines ...string) Option {
	return func(d *Device) { d.banner = lines }
}

// WithChecksum makes the device require "N<line> <command>*<checksum>" framing
// and enforce consecutive line numbers starting at 1 on every connection.
func WithChecksum() Option {
	return func(d *Device) { d.checksum = true }
}

// WithLogger sets the device logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// New creates a device simulator.
func New(opts ...Option) *Device {
	d := &Device{
		responder: AlwaysOK(),
		banner:    DefaultBanner,
		logger:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Received returns every command the device handed to its responder, framing removed.
func (d *Device) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.received...)
}

// Serve answers commands on conn until the peer disconnects or ctx is done.
// conn is closed on return.
func (d *Device) Serve(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	var (
		awake    bool
		lastLine int
	)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if !awake && len(d.banner) > 0 {
				awake = true
				if err := writeLines(conn, d.banner...); err != nil {
					return d.serveErr(ctx, err)
				}
			}
			continue
		}

		reply := d.handle(line, &lastLine)
		if err := writeLines(conn, reply); err != nil {
			return d.serveErr(ctx, err)
		}
	}

	return d.serveErr(ctx, scanner.Err())
}

// ServeListener accepts connections from ln and serves them one after another
// until ctx is done.
func (d *Device) ServeListener(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("devicesim: accept: %w", err)
		}

		d.logger.Info("devicesim: host connected", "remoteAddr", conn.RemoteAddr().String())
		if err := d.Serve(ctx, conn); err != nil {
			d.logger.Warn("devicesim: connection ended", "error", err)
		}
	}
}

func (d *Device) handle(line string, lastLine *int) string {
	command := line
	lineNumber := 0

	if d.checksum {
		n, body, fault := unframe(line)
		if fault != "" {
			d.logger.Debug("devicesim: bad frame", "line", line, "fault", fault)
			return fmt.Sprintf("Error:%s, Last Line: %d", fault, *lastLine)
		}
		if n != *lastLine+1 {
			return fmt.Sprintf("Error:Line Number is not Last Line Number+1, Last Line: %d", *lastLine)
		}
		command, lineNumber = body, n
	}

	d.mu.Lock()
	d.received = append(d.received, command)
	d.mu.Unlock()

	reply := d.responder.Respond(command)
	d.logger.Debug("devicesim: command received", "command", command, "reply", reply)

	if d.checksum && !strings.HasPrefix(reply, "Error") {
		*lastLine = lineNumber
	}

	return reply
}

// unframe splits "N<line> <command>*<checksum>" and verifies the checksum.
// fault carries the firmware error text when the frame is rejected.
func unframe(line string) (n int, command string, fault string) {
	star := strings.LastIndexByte(line, '*')
	if !strings.HasPrefix(line, "N") || star < 0 {
		return 0, "", "No Checksum with line number"
	}

	body := line[:star]
	cs, err := strconv.Atoi(line[star+1:])
	if err != nil || cs != int(gcode.Checksum(body)) {
		return 0, "", "checksum mismatch"
	}

	numText, rest, _ := strings.Cut(body[1:], " ")
	n, err = strconv.Atoi(numText)
	if err != nil {
		return 0, "", "No Line Number with checksum"
	}

	return n, strings.TrimSpace(rest), ""
}

func writeLines(w io.Writer, lines ...string) error {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString(gcode.Terminator)
	}
	_, err := io.WriteString(w, sb.String())

	return err
}

func (d *Device) serveErr(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}

	return fmt.Errorf("devicesim: %w", err)
}

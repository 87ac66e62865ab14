// Package transport provides the line-oriented device channels used by the
// sender package.
//
// Two transports are available:
//
//   - Serial: a local serial port opened with go.bug.st/serial, 8 data bits,
//     no parity, one stop bit and 115200 baud by default.
//   - TCP: a raw TCP stream to a serial-over-network bridge (ser2net, esp-link
//     and similar), treated as a byte-oriented transport in place of the port.
//
// Both implement:
//
//	Write(p []byte) (int, error)
//	ReadLine() ([]byte, error)
//	DiscardInput() error
//
// ReadLine is bounded by the configured read timeout. When it elapses, the
// bytes received so far (possibly none) are returned with a nil error, so a
// silent device surfaces as an empty response rather than as a failure.
//
// # Exclusive Ownership
//
// A device path or address may be opened only once per process; a second
// OpenSerial or DialTCP for the same target fails with ErrPortBusy until the
// first one is closed.
package transport

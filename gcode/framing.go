package gcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Framing renders a normalized command into the bytes written to the device.
//
// lineNumber is 1-based and stays the same across resends of a command.
type Framing interface {
	Frame(lineNumber int, command string) string
	String() string
}

// PlainFraming writes commands unchanged.
type PlainFraming struct{}

func (PlainFraming) Frame(_ int, command string) string { return command }

func (PlainFraming) String() string { return "plain" }

// ChecksumFraming writes "N<line> <command>*<checksum>\n".
//
// The device must start counting at line 0, which is the state firmware boots in
// after the handshake reset.
type ChecksumFraming struct{}

func (ChecksumFraming) Frame(lineNumber int, command string) string {
	body := "N" + strconv.Itoa(lineNumber) + " " + strings.TrimRight(command, "\r\n")

	return body + "*" + strconv.Itoa(int(Checksum(body))) + Terminator
}

func (ChecksumFraming) String() string { return "checksum" }

// Checksum returns the XOR of every byte of s.
func Checksum(s string) byte {
	var cs byte
	for i := 0; i < len(s); i++ {
		cs ^= s[i]
	}

	return cs
}

// ParseFraming maps a framing name to its implementation.
func ParseFraming(name string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plain":
		return PlainFraming{}, nil
	case "checksum", "checksummed":
		return ChecksumFraming{}, nil
	default:
		return nil, fmt.Errorf("gcode: %w: %q", ErrUnknownFraming, name)
	}
}

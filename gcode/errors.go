package gcode

import "errors"

var (
	// ErrSourceUnreadable indicates that the command source could not be opened or read.
	ErrSourceUnreadable = errors.New("command source unreadable")

	// ErrUnknownFraming indicates an unsupported framing name.
	ErrUnknownFraming = errors.New("unknown framing")
)

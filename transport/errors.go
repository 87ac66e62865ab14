package transport

import "errors"

var (
	// ErrOpenFailed indicates that the device could not be opened or configured.
	ErrOpenFailed = errors.New("open failed")

	// ErrPortBusy indicates that the device is already open in this process.
	ErrPortBusy = errors.New("port busy")

	// ErrInvalidOption indicates an option value outside its allowed range.
	ErrInvalidOption = errors.New("invalid option")

	// ErrClosed indicates an operation on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// Package gcode turns raw command sources into the normalized command sequence
// consumed by the streaming engine, and frames commands for the wire.
//
// # Normalization
//
// Normalize drops lines that are empty or consist solely of whitespace, strips
// surrounding whitespace from every retained line and appends exactly one "\n".
// Order is preserved and the transform is idempotent:
//
//	seq := gcode.Normalize([]string{"  G28 ", "", "G1 X10"})
//	// seq == Sequence{"G28\n", "G1 X10\n"}
//
// Comments are not stripped; the device receives every non-blank line verbatim.
//
// # Framing
//
// A Framing decides how a command is written to the device. PlainFraming sends
// the command as is. ChecksumFraming produces RepRap style lines with a line
// number and an XOR checksum:
//
//	N12 G1 X10*98
package gcode

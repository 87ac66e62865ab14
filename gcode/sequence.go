package gcode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Terminator is appended to every normalized command.
const Terminator = "\n"

// maxLineSize bounds a single source line for the scanner.
const maxLineSize = 1 << 20

// Sequence is an ordered list of normalized commands.
//
// Every element is non-empty and ends with exactly one Terminator.
// A Sequence is never mutated after it is built.
type Sequence []string

// Len returns the number of commands.
func (s Sequence) Len() int { return len(s) }

// At returns the i-th command including its terminator.
func (s Sequence) At(i int) string { return s[i] }

// Trimmed returns the i-th command without its terminator.
func (s Sequence) Trimmed(i int) string { return strings.TrimSuffix(s[i], Terminator) }

// Normalize builds a Sequence from raw lines.
//
// Blank and whitespace-only lines are dropped; the rest are trimmed and
// terminated with a single Terminator.
func Normalize(lines []string) Sequence {
	seq := make(Sequence, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seq = append(seq, line+Terminator)
	}

	return seq
}

// Read scans r line by line and normalizes the result.
func Read(r io.Reader) (Sequence, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gcode: %w: %w", ErrSourceUnreadable, err)
	}

	return Normalize(lines), nil
}

// LoadFile reads and normalizes the command file at path.
func LoadFile(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gcode: %w: %w", ErrSourceUnreadable, err)
	}
	defer f.Close()

	seq, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("gcode: read %s: %w", path, err)
	}

	return seq, nil
}

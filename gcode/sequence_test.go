package gcode

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  Sequence
	}{
		{
			name:  "empty input",
			lines: nil,
			want:  Sequence{},
		},
		{
			name:  "blank and whitespace-only lines dropped",
			lines: []string{"", "   ", "\t", "\r", "G28"},
			want:  Sequence{"G28\n"},
		},
		{
			name:  "surrounding whitespace trimmed",
			lines: []string{"  G1 X10  ", "\tG1 Y10\r\n"},
			want:  Sequence{"G1 X10\n", "G1 Y10\n"},
		},
		{
			name:  "inner whitespace kept",
			lines: []string{"G1  X10   Y5"},
			want:  Sequence{"G1  X10   Y5\n"},
		},
		{
			name:  "order preserved",
			lines: []string{"M104 S200", "", "G28", "M84"},
			want:  Sequence{"M104 S200\n", "G28\n", "M84\n"},
		},
		{
			name:  "comments are not stripped",
			lines: []string{"; start", "G28 ; home"},
			want:  Sequence{"; start\n", "G28 ; home\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.lines)
			assert.Equal(t, tt.want, got)

			for i := 0; i < got.Len(); i++ {
				assert.True(t, strings.HasSuffix(got.At(i), Terminator))
				assert.Equal(t, 1, strings.Count(got.At(i), Terminator))
				assert.NotEmpty(t, got.Trimmed(i))
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := [][]string{
		{"G28", "G1 X10 Y10", "M84"},
		{"  G1 X1  ", "", "\t", "M400\r"},
		{},
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice)
	}
}

func TestRead(t *testing.T) {
	require := require.New(t)

	src := "G28\r\n\r\n  G1 X10\n\n\nG1 Y10"
	seq, err := Read(strings.NewReader(src))
	require.NoError(err)
	require.Equal(Sequence{"G28\n", "G1 X10\n", "G1 Y10\n"}, seq)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestRead_Error(t *testing.T) {
	_, err := Read(failingReader{})
	require.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestLoadFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "job.gcode")
	require.NoError(os.WriteFile(path, []byte("G28\n\nG1 X10\n"), 0o600))

	seq, err := LoadFile(path)
	require.NoError(err)
	require.Equal(2, seq.Len())
	require.Equal("G1 X10", seq.Trimmed(1))

	_, err = LoadFile(filepath.Join(dir, "missing.gcode"))
	require.ErrorIs(err, ErrSourceUnreadable)
	require.ErrorIs(err, os.ErrNotExist)
}

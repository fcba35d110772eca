package vlp

import (
	"errors"
	"fmt"
)

var (
	// ErrOpen is returned when the input file cannot be opened or read.
	ErrOpen = errors.New("vlp: cannot open file")

	// ErrFormat is returned for a malformed, out-of-order or out-of-range
	// line. The concrete error is a *LineError unless the file has no
	// problem line at all.
	ErrFormat = errors.New("vlp: format error")

	// ErrInterior is returned when an interior point coordinate is not
	// strictly positive.
	ErrInterior = errors.New("vlp: interior point not positive")

	// ErrTooLarge is returned when the problem dimensions do not fit in
	// memory-addressable sizes.
	ErrTooLarge = errors.New("vlp: problem too large")
)

// LineError describes the offending line of a vlp file.
type LineError struct {
	Path string // file name, may be empty
	Line int    // 1-based line number
	Text string // normalized line text
	Msg  string // what is wrong with the line
}

func (e *LineError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("vlp: line %d: %s\n   %s", e.Line, e.Msg, e.Text)
	}
	return fmt.Sprintf("vlp: %s:%d: %s\n   %s", e.Path, e.Line, e.Msg, e.Text)
}

// Unwrap makes every LineError match ErrFormat.
func (e *LineError) Unwrap() error { return ErrFormat }

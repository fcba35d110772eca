package oracle

import (
	"errors"
	"fmt"
)

// Kind classifies oracle errors.
type Kind int

const (
	// KindFile means the problem file cannot be opened.
	KindFile Kind = iota + 1
	// KindFormat means the problem file is malformed.
	KindFormat
	// KindResource means the problem cannot be built in memory.
	KindResource
	// KindModel means the interior point is not strictly inside.
	KindModel
	// KindSolverStatus means the solver returned a status that cannot be
	// handled or retried.
	KindSolverStatus
	// KindNumerical means a computed facet violates the separation contract.
	KindNumerical
	// KindLimit means an iteration or time limit was reached.
	KindLimit
	// KindEmpty means the polyhedron has no feasible point.
	KindEmpty
	// KindUsage means an operation was called in the wrong state or with a
	// malformed request.
	KindUsage
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "FileError"
	case KindFormat:
		return "FormatError"
	case KindResource:
		return "ResourceError"
	case KindModel:
		return "ModelError"
	case KindSolverStatus:
		return "SolverStatusError"
	case KindNumerical:
		return "NumericalError"
	case KindLimit:
		return "LimitError"
	case KindEmpty:
		return "EmptyPolyhedron"
	case KindUsage:
		return "UsageError"
	default:
		return "UnknownError"
	}
}

// Fatal reports whether the caller must abort the enumeration. Limit and
// usage errors leave the oracle usable; an empty polyhedron ends the
// enumeration without being a failure.
func (k Kind) Fatal() bool {
	switch k {
	case KindLimit, KindUsage, KindEmpty:
		return false
	default:
		return true
	}
}

var (
	// ErrEmpty matches errors reporting an empty polyhedron.
	ErrEmpty = errors.New("oracle: polyhedron is empty")

	// ErrLimit matches errors reporting a reached iteration or time limit.
	ErrLimit = errors.New("oracle: iteration or time limit reached")
)

// Error is returned by every oracle operation.
type Error struct {
	Kind Kind   // classification
	Op   string // operation that failed (e.g., "Load", "Ask")
	Msg  string // diagnostic
	Err  error  // underlying error, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("oracle: %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrEmpty and ErrLimit by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrEmpty:
		return e.Kind == KindEmpty
	case ErrLimit:
		return e.Kind == KindLimit
	}
	return false
}

// KindOf returns the kind carried by err, or 0 when err is nil or not
// an oracle error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

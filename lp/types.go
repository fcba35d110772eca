// Package lp provides a mutable linear program instance and a bounded-variable
// simplex solver for it.
//
// The instance follows the classic "rows are auxiliary variables" model:
// every row i defines an auxiliary variable r_i = sum_j a_ij x_j, and both
// rows and columns carry a bound of one of the kinds Free, Lower, Upper,
// Double or Fixed. The problem can be modified in place between solves,
// which is how the oracle rewrites a single column per query.
//
// # Example
//
//	p := lp.NewProblem(1, 2)
//	p.SetMaximize(true)
//	p.SetObjCoef(0, 1)
//	p.SetObjCoef(1, 1)
//	p.SetRowBounds(0, lp.UpperBound(4))          // x + y <= 4
//	p.SetMatCol(0, []int{0}, []float64{1})
//	p.SetMatCol(1, []int{0}, []float64{1})
//	p.SetColBounds(0, lp.LowerBound(0))
//	p.SetColBounds(1, lp.LowerBound(0))
//
//	p.AdvBasis()
//	sol, err := p.Simplex(context.Background(), lp.WithTimeLimit(time.Second))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(sol.Objective, sol.RowDuals)
package lp

import (
	"errors"
	"fmt"
)

// Version is the version of the bundled simplex solver.
const Version = "1.2.0"

// ----------------------------------------------------------------------------
// Bounds
// ----------------------------------------------------------------------------

// BoundKind specifies which limits of a row or column are active.
type BoundKind int

const (
	// Free means -inf < x < +inf.
	Free BoundKind = iota
	// Lower means lo <= x < +inf.
	Lower
	// Upper means -inf < x <= up.
	Upper
	// Double means lo <= x <= up.
	Double
	// Fixed means x = lo.
	Fixed
)

// String returns a human-readable representation of the bound kind.
func (k BoundKind) String() string {
	switch k {
	case Free:
		return "Free"
	case Lower:
		return "Lower"
	case Upper:
		return "Upper"
	case Double:
		return "Double"
	case Fixed:
		return "Fixed"
	default:
		return "Unknown"
	}
}

// Bound is the bound of a single row or column. Only the limits
// that Kind makes active are looked at.
type Bound struct {
	Kind BoundKind
	Lo   float64
	Up   float64
}

// FreeBound returns an unbounded bound.
func FreeBound() Bound { return Bound{Kind: Free} }

// LowerBound returns lo <= x.
func LowerBound(lo float64) Bound { return Bound{Kind: Lower, Lo: lo} }

// UpperBound returns x <= up.
func UpperBound(up float64) Bound { return Bound{Kind: Upper, Up: up} }

// DoubleBound returns lo <= x <= up.
func DoubleBound(lo, up float64) Bound { return Bound{Kind: Double, Lo: lo, Up: up} }

// FixedBound returns x = v.
func FixedBound(v float64) Bound { return Bound{Kind: Fixed, Lo: v, Up: v} }

// Limits returns the effective lower and upper limits, using infinities
// for the inactive sides.
func (b Bound) Limits() (lo, up float64) {
	switch b.Kind {
	case Lower:
		return b.Lo, Inf()
	case Upper:
		return NegInf(), b.Up
	case Double:
		return b.Lo, b.Up
	case Fixed:
		return b.Lo, b.Lo
	default:
		return NegInf(), Inf()
	}
}

// valid reports whether the bound limits are consistent.
func (b Bound) valid() bool {
	lo, up := b.Limits()
	if lo != lo || up != up { // NaN
		return false
	}
	return lo <= up
}

// ----------------------------------------------------------------------------
// Solution status
// ----------------------------------------------------------------------------

// Status represents the status of the basic solution after a simplex run.
type Status int

const (
	// StatusUndefined indicates that no solution has been computed.
	StatusUndefined Status = iota
	// StatusFeasible indicates a primal feasible, not proven optimal solution.
	StatusFeasible
	// StatusInfeasible indicates the current solution is primal infeasible.
	StatusInfeasible
	// StatusNoFeasible indicates the problem has no primal feasible solution.
	StatusNoFeasible
	// StatusOptimal indicates an optimal solution was found.
	StatusOptimal
	// StatusUnbounded indicates the objective is unbounded.
	StatusUnbounded
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	names := []string{
		"Undefined", "Feasible", "Infeasible",
		"NoFeasible", "Optimal", "Unbounded",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// Message returns the verbose description of the status used in reports.
func (s Status) Message() string {
	switch s {
	case StatusUndefined:
		return "the problem is undefined"
	case StatusFeasible:
		return "solution is feasible"
	case StatusInfeasible:
		return "solution is infeasible"
	case StatusNoFeasible:
		return "the problem has no feasible solution"
	case StatusOptimal:
		return "solution is optimal"
	case StatusUnbounded:
		return "the problem is unbounded"
	default:
		return "unknown solution status"
	}
}

// ----------------------------------------------------------------------------
// Basis status
// ----------------------------------------------------------------------------

// BasisStatus represents the basis status of a row or column.
type BasisStatus int

const (
	// BasisStatusLower indicates the variable is nonbasic at its lower bound
	// (fixed variables are always reported here).
	BasisStatusLower BasisStatus = iota
	// BasisStatusBasic indicates the variable is basic.
	BasisStatusBasic
	// BasisStatusUpper indicates the variable is nonbasic at its upper bound.
	BasisStatusUpper
	// BasisStatusZero indicates the variable is free, nonbasic and set to zero.
	BasisStatusZero
)

// String returns a human-readable representation of the basis status.
func (s BasisStatus) String() string {
	switch s {
	case BasisStatusLower:
		return "Lower"
	case BasisStatusBasic:
		return "Basic"
	case BasisStatusUpper:
		return "Upper"
	case BasisStatusZero:
		return "Zero"
	default:
		return "Unknown"
	}
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

// Code is the return code of a simplex run that did not finish normally.
type Code int

const (
	// CodeOK is never carried by an Error; it is what CodeOf returns for nil.
	CodeOK Code = iota
	// CodeBadBasis means the stored basis is missing or invalid.
	CodeBadBasis
	// CodeSingular means the basis matrix is singular.
	CodeSingular
	// CodeIllConditioned means the basis matrix is too ill-conditioned.
	CodeIllConditioned
	// CodeBadBounds means some double-bounded row or column has lo > up.
	CodeBadBounds
	// CodeFail means the solver failed for numerical reasons.
	CodeFail
	// CodeIterationLimit means the iteration limit was exceeded.
	CodeIterationLimit
	// CodeTimeLimit means the time limit was exceeded.
	CodeTimeLimit
	// CodeStopped means the search was terminated through the context.
	CodeStopped
	// CodeData means the problem data is invalid (empty problem, bad index).
	CodeData
)

// String returns the verbose description of the code used in reports.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeBadBasis:
		return "invalid basis"
	case CodeSingular:
		return "singular matrix"
	case CodeIllConditioned:
		return "ill-conditioned matrix"
	case CodeBadBounds:
		return "invalid bounds"
	case CodeFail:
		return "solver failed"
	case CodeIterationLimit:
		return "iteration limit exceeded"
	case CodeTimeLimit:
		return "time limit exceeded"
	case CodeStopped:
		return "search terminated by application"
	case CodeData:
		return "invalid data"
	default:
		return "unknown error"
	}
}

// IsLimit reports whether the code is a resource limit rather than a failure.
func (c Code) IsLimit() bool {
	return c == CodeIterationLimit || c == CodeTimeLimit
}

// Error represents a solver error with context about which operation failed.
type Error struct {
	Op   string // Operation that failed (e.g., "Simplex", "SetMatCol")
	Code Code   // Return code
	Msg  string // Additional context
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("lp: %s failed: %s: %s", e.Op, e.Code, e.Msg)
	}
	return fmt.Sprintf("lp: %s failed: %s", e.Op, e.Code)
}

// newError creates a new Error with the given code.
func newError(op string, code Code) error {
	return &Error{Op: op, Code: code}
}

// newErrorMsg creates a new Error with an additional message.
func newErrorMsg(op string, code Code, msg string) error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// CodeOf returns the return code carried by err, CodeOK for nil and
// CodeFail for errors that do not come from this package.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeFail
}

package lp

import (
	"time"

	"go.uber.org/zap"
)

// Method selects the simplex method.
type Method int

const (
	// MethodPrimal runs the two-phase primal simplex.
	MethodPrimal Method = iota
	// MethodDualPrimal asks for the dual simplex and falls back to the
	// primal method when the starting basis is not dual feasible. The
	// bundled solver always takes the fallback.
	MethodDualPrimal
)

// String returns a human-readable representation of the method.
func (m Method) String() string {
	switch m {
	case MethodPrimal:
		return "primal"
	case MethodDualPrimal:
		return "dualp"
	default:
		return "unknown"
	}
}

// Pricing selects the rule choosing the entering variable.
type Pricing int

const (
	// PricingStandard picks the largest reduced cost (Dantzig).
	PricingStandard Pricing = iota
	// PricingSteepestEdge picks the largest reduced cost relative to the
	// length of the edge direction.
	PricingSteepestEdge
)

// RatioTest selects the rule choosing the leaving variable.
type RatioTest int

const (
	// RatioTestStandard is the textbook minimum ratio test.
	RatioTestStandard RatioTest = iota
	// RatioTestHarris is Harris' two-pass ratio test, preferring large pivots.
	RatioTestHarris
)

// SolveOption configures the solver behavior.
type SolveOption func(*solveConfig)

type solveConfig struct {
	method    Method
	pricing   Pricing
	ratioTest RatioTest
	itLimit   int           // 0 means no limit
	timeLimit time.Duration // 0 means no limit
	tolPrimal float64
	tolDual   float64
	tolPivot  float64
	logger    *zap.Logger
}

func defaultSolveConfig() *solveConfig {
	return &solveConfig{
		method:    MethodPrimal,
		pricing:   PricingStandard,
		ratioTest: RatioTestStandard,
		tolPrimal: 1e-9,
		tolDual:   1e-9,
		tolPivot:  1e-9,
		logger:    zap.NewNop(),
	}
}

// WithMethod sets the simplex method.
func WithMethod(m Method) SolveOption {
	return func(c *solveConfig) {
		c.method = m
	}
}

// WithPricing sets the pricing rule.
func WithPricing(p Pricing) SolveOption {
	return func(c *solveConfig) {
		c.pricing = p
	}
}

// WithRatioTest sets the ratio test rule.
func WithRatioTest(r RatioTest) SolveOption {
	return func(c *solveConfig) {
		c.ratioTest = r
	}
}

// WithIterationLimit limits the number of iterations of one run.
// Zero disables the limit.
func WithIterationLimit(n int) SolveOption {
	return func(c *solveConfig) {
		c.itLimit = n
	}
}

// WithTimeLimit limits the wall-clock time of one run.
// Zero disables the limit.
func WithTimeLimit(d time.Duration) SolveOption {
	return func(c *solveConfig) {
		c.timeLimit = d
	}
}

// WithTolerances sets the primal feasibility, dual feasibility and pivot
// tolerances. Non-positive values keep the defaults.
func WithTolerances(primal, dual, pivot float64) SolveOption {
	return func(c *solveConfig) {
		if primal > 0 {
			c.tolPrimal = primal
		}
		if dual > 0 {
			c.tolDual = dual
		}
		if pivot > 0 {
			c.tolPivot = pivot
		}
	}
}

// WithLogger sets the logger receiving solver progress messages.
func WithLogger(l *zap.Logger) SolveOption {
	return func(c *solveConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

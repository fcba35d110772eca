package oracle

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bartolsthoorn/vlporacle/lp"
)

const (
	defaultIterationLimit = 100000
	minIterationLimit     = 1000
	defaultTimeLimit      = 10 // seconds
	minTimeLimit          = 5  // seconds
)

// Params are the solver settings of the oracle.
type Params struct {
	// Message is the solver verbosity: 0 silent, 1 errors only, 2 run
	// summaries, 3 every progress message.
	Message int

	Method    lp.Method
	Pricing   lp.Pricing
	RatioTest lp.RatioTest

	// IterationLimit limits each solver run. Zero disables the limit;
	// values below 1000 select the default of 100000.
	IterationLimit int

	// TimeLimit limits each solver run, in seconds. Zero disables the
	// limit; values below 5 select the default of 10.
	TimeLimit int

	// Scale rescales the problem before each fresh solver attempt.
	Scale bool

	// Tolerance is the primal and dual feasibility tolerance of the
	// solver. Zero keeps the solver default.
	Tolerance float64
}

// DefaultParams returns the default solver settings.
func DefaultParams() Params {
	return Params{
		Message:        1,
		Method:         lp.MethodPrimal,
		Pricing:        lp.PricingSteepestEdge,
		RatioTest:      lp.RatioTestHarris,
		IterationLimit: defaultIterationLimit,
		TimeLimit:      defaultTimeLimit,
		Scale:          true,
	}
}

func (p Params) iterationLimit() int {
	switch {
	case p.IterationLimit == 0:
		return 0
	case p.IterationLimit >= minIterationLimit:
		return p.IterationLimit
	default:
		return defaultIterationLimit
	}
}

func (p Params) timeLimit() time.Duration {
	switch {
	case p.TimeLimit == 0:
		return 0
	case p.TimeLimit >= minTimeLimit:
		return time.Duration(p.TimeLimit) * time.Second
	default:
		return defaultTimeLimit * time.Second
	}
}

// solverLogger derives the solver's logger from the oracle logger.
func (p Params) solverLogger(base *zap.Logger) *zap.Logger {
	base = base.Named("lp")
	switch {
	case p.Message <= 0:
		return zap.NewNop()
	case p.Message == 1:
		return base.WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel))
	case p.Message == 2:
		return base.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
	default:
		return base
	}
}

// solveOptions maps the settings onto solver options.
func (p Params) solveOptions(log *zap.Logger) []lp.SolveOption {
	opts := []lp.SolveOption{
		lp.WithMethod(p.Method),
		lp.WithPricing(p.Pricing),
		lp.WithRatioTest(p.RatioTest),
		lp.WithIterationLimit(p.iterationLimit()),
		lp.WithTimeLimit(p.timeLimit()),
		lp.WithLogger(p.solverLogger(log)),
	}
	if p.Tolerance > 0 {
		opts = append(opts, lp.WithTolerances(p.Tolerance, p.Tolerance, 0))
	}
	return opts
}

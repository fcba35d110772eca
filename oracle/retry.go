package oracle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/vlporacle/lp"
)

// tier is a stage of the solver retry ladder.
type tier int

const (
	tierFresh      tier = iota // first attempt
	tierRetryBasis             // after an invalid or singular basis
	tierRetryFail              // after a generic solver failure
	tierGiveUp
)

func (t tier) String() string {
	switch t {
	case tierFresh:
		return "fresh"
	case tierRetryBasis:
		return "retry-basis"
	case tierRetryFail:
		return "retry-fail"
	case tierGiveUp:
		return "give-up"
	default:
		return "unknown"
	}
}

// next returns the tier that follows a failed attempt at t.
func (t tier) next(code lp.Code) tier {
	switch {
	case t == tierFresh && (code == lp.CodeBadBasis || code == lp.CodeSingular):
		return tierRetryBasis
	case (t == tierFresh || t == tierRetryBasis) && code == lp.CodeFail:
		return tierRetryFail
	default:
		return tierGiveUp
	}
}

// step returns how the problem is prepared at t.
func (t tier) step(scale bool) Step {
	switch t {
	case tierFresh:
		return Step{Sort: true, Scale: scale, FreshBasis: true}
	case tierRetryBasis:
		return Step{Scale: scale, FreshBasis: true}
	default:
		return Step{FreshBasis: true}
	}
}

// Stats are the oracle's solver statistics.
type Stats struct {
	Calls      int           // solver attempts, retries included
	Iterations int           // simplex iterations over all attempts, failed ones included
	Time       time.Duration // wall-clock time spent in the solver
	Version    string        // solver version
}

// Hundredths returns Time in hundredths of a second, rounded.
func (s Stats) Hundredths() int64 {
	return (s.Time.Milliseconds() + 5) / 10
}

// solve runs the backend through the retry ladder. Limit errors are
// returned together with the partial solution.
func (o *Oracle) solve(ctx context.Context) (*lp.Solution, error) {
	start := time.Now()
	defer func() { o.stats.Time += time.Since(start) }()

	t := tierFresh
	for {
		o.stats.Calls++
		sol, err := o.backend.Solve(ctx, o.prob, t.step(o.params.Scale))
		code := lp.CodeOf(err)
		if err == nil || code.IsLimit() {
			return sol, err
		}
		next := t.next(code)
		if next == tierGiveUp {
			return nil, err
		}
		o.log.Warn("solver attempt failed",
			zap.Stringer("tier", t),
			zap.Stringer("next", next),
			zap.Error(err),
		)
		t = next
	}
}

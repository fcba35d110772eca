package oracle

import (
	"context"

	"github.com/bartolsthoorn/vlporacle/lp"
)

// Step tells a Backend how to prepare the problem before solving it.
type Step struct {
	Sort       bool // rebuild the matrix ordering
	Scale      bool // recompute the scale factors; a Sort step without it drops them
	FreshBasis bool // install a fresh starting basis
}

// Backend solves the assembled linear program. The oracle calls it with
// the problem it owns; implementations must not keep the problem after
// returning.
type Backend interface {
	Solve(ctx context.Context, p *lp.Problem, step Step) (*lp.Solution, error)
	Version() string
}

// SimplexBackend solves with the bundled simplex method. It is the
// default where HiGHS is unavailable and honors every Params setting,
// the ratio test included.
type SimplexBackend struct {
	opts []lp.SolveOption
}

// NewSimplexBackend returns a backend passing opts to every run.
func NewSimplexBackend(opts ...lp.SolveOption) *SimplexBackend {
	return &SimplexBackend{opts: opts}
}

// Solve implements Backend.
func (b *SimplexBackend) Solve(ctx context.Context, p *lp.Problem, step Step) (*lp.Solution, error) {
	if step.Sort {
		p.SortMatrix()
	}
	switch {
	case step.Scale:
		p.Scale()
	case step.Sort:
		p.Unscale()
	}
	if step.FreshBasis {
		p.AdvBasis()
	}
	return p.Simplex(ctx, b.opts...)
}

// Version implements Backend.
func (b *SimplexBackend) Version() string {
	return "lp simplex " + lp.Version
}

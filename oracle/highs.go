//go:build cgo && (linux || darwin) && (amd64 || arm64)

package oracle

import (
	"context"
	"runtime/debug"

	"github.com/bartolsthoorn/gohighs/highs"
	"go.uber.org/zap"

	"github.com/bartolsthoorn/vlporacle/lp"
)

const highsModule = "github.com/bartolsthoorn/gohighs"

// HiGHS option values.
const (
	highsStrategyDual   = 1
	highsStrategyPrimal = 4

	highsEdgeWeightDantzig  = 0
	highsEdgeWeightSteepest = 2

	highsScaleOff    = 0
	highsScaleChoose = 1
)

// HighsBackend solves with the HiGHS simplex method.
type HighsBackend struct {
	params Params
	log    *zap.Logger
}

// NewHighsBackend returns a HiGHS backend with the given settings. The
// ratio test setting has no HiGHS counterpart and is ignored.
func NewHighsBackend(p Params, log *zap.Logger) *HighsBackend {
	if log == nil {
		log = zap.NewNop()
	}
	return &HighsBackend{params: p, log: p.solverLogger(log)}
}

// DefaultBackend returns the backend used when none is configured.
func DefaultBackend(p Params, log *zap.Logger) Backend {
	return NewHighsBackend(p, log)
}

// Solve implements Backend. Every call starts from a fresh HiGHS instance;
// retries, which come without Sort, also switch presolve off.
func (b *HighsBackend) Solve(ctx context.Context, p *lp.Problem, step Step) (*lp.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, &lp.Error{Op: "Solve", Code: lp.CodeStopped, Msg: err.Error()}
	}
	if step.Sort {
		p.SortMatrix()
	}

	solver, err := highs.NewSolver()
	if err != nil {
		return nil, &lp.Error{Op: "Solve", Code: lp.CodeFail, Msg: err.Error()}
	}
	defer solver.Close()

	if err := b.configure(solver, step); err != nil {
		return nil, &lp.Error{Op: "Solve", Code: lp.CodeFail, Msg: err.Error()}
	}
	if err := passProblem(solver, p); err != nil {
		return nil, &lp.Error{Op: "Solve", Code: lp.CodeData, Msg: err.Error()}
	}

	res, err := solver.Run()
	iters, ierr := solver.GetIntInfo("simplex_iteration_count")
	if ierr == nil {
		p.AddIterations(iters)
	}
	if err != nil {
		return nil, &lp.Error{Op: "Solve", Code: lp.CodeFail, Msg: err.Error()}
	}

	sol, err := convertSolution(p, res)
	if sol != nil {
		sol.Iterations = iters
	}
	b.log.Info("highs finished",
		zap.Stringer("status", res.Status),
		zap.Int("iterations", iters),
		zap.Float64("objective", res.Objective),
	)
	return sol, err
}

// Version implements Backend.
func (b *HighsBackend) Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == highsModule {
				return "HiGHS (gohighs " + dep.Version + ")"
			}
		}
	}
	return "HiGHS"
}

func (b *HighsBackend) configure(s *highs.Solver, step Step) error {
	p := b.params

	strategy := highsStrategyPrimal
	if p.Method == lp.MethodDualPrimal {
		strategy = highsStrategyDual
	}
	edge := highsEdgeWeightSteepest
	if p.Pricing == lp.PricingStandard {
		edge = highsEdgeWeightDantzig
	}
	scale := highsScaleOff
	if step.Scale {
		scale = highsScaleChoose
	}

	bools := []struct {
		name  string
		value bool
	}{
		{"output_flag", p.Message >= 3},
		{"allow_unbounded_or_infeasible", false},
	}
	for _, o := range bools {
		if err := s.SetBoolOption(o.name, o.value); err != nil {
			return err
		}
	}

	type intOption struct {
		name  string
		value int
	}
	ints := []intOption{
		{"simplex_strategy", strategy},
		{"simplex_primal_edge_weight_strategy", edge},
		{"simplex_dual_edge_weight_strategy", edge},
		{"simplex_scale_strategy", scale},
	}
	if n := p.iterationLimit(); n > 0 {
		ints = append(ints, intOption{"simplex_iteration_limit", n})
	}
	for _, o := range ints {
		if err := s.SetIntOption(o.name, o.value); err != nil {
			return err
		}
	}

	if d := p.timeLimit(); d > 0 {
		if err := s.SetFloatOption("time_limit", d.Seconds()); err != nil {
			return err
		}
	}
	if p.Tolerance > 0 {
		if err := s.SetFloatOption("primal_feasibility_tolerance", p.Tolerance); err != nil {
			return err
		}
		if err := s.SetFloatOption("dual_feasibility_tolerance", p.Tolerance); err != nil {
			return err
		}
	}

	if err := s.SetStringOption("solver", "simplex"); err != nil {
		return err
	}
	if !step.Sort {
		return s.SetStringOption("presolve", "off")
	}
	return nil
}

// passProblem loads p into the solver with a row-wise matrix.
func passProblem(s *highs.Solver, p *lp.Problem) error {
	m, n := p.NumRows(), p.NumCols()
	cost := make([]float64, n)
	colLower := make([]float64, n)
	colUpper := make([]float64, n)
	for j := 0; j < n; j++ {
		cost[j] = p.ObjCoef(j)
		colLower[j], colUpper[j] = p.ColBounds(j).Limits()
	}
	rowLower := make([]float64, m)
	rowUpper := make([]float64, m)
	for i := 0; i < m; i++ {
		rowLower[i], rowUpper[i] = p.RowBounds(i).Limits()
	}

	start, index, value := p.RowwiseMatrix()
	return s.PassModel(n, m,
		cost, colLower, colUpper,
		rowLower, rowUpper,
		start[:m], index, value,
		nil, p.Maximize(), 0)
}

// convertSolution maps a HiGHS result onto the solver contract of the
// oracle: limits come back as limit errors with the partial solution,
// failures as errors the retry ladder understands.
func convertSolution(p *lp.Problem, res *highs.Solution) (*lp.Solution, error) {
	sol := &lp.Solution{
		ColValues: res.ColValues,
		ColDuals:  res.ColDuals,
		RowValues: res.RowValues,
		RowDuals:  res.RowDuals,
		ColBasis:  convertBasis(res.ColBasis),
		RowBasis:  convertBasis(res.RowBasis),
		Objective: res.Objective,
	}

	switch res.Status {
	case highs.ModelStatusOptimal, highs.ModelStatusModelEmpty:
		sol.Status = lp.StatusOptimal
	case highs.ModelStatusInfeasible:
		sol.Status = lp.StatusNoFeasible
	case highs.ModelStatusUnbounded:
		sol.Status = lp.StatusUnbounded
	case highs.ModelStatusUnboundedOrInfeasible:
		// the oracle maximizes only once the polyhedron is known to be
		// nonempty, and minimizes only the feasibility problem
		if p.Maximize() {
			sol.Status = lp.StatusUnbounded
		} else {
			sol.Status = lp.StatusNoFeasible
		}
	case highs.ModelStatusTimeLimit:
		sol.Status = lp.StatusFeasible
		return sol, &lp.Error{Op: "Solve", Code: lp.CodeTimeLimit}
	case highs.ModelStatusIterationLimit:
		sol.Status = lp.StatusFeasible
		return sol, &lp.Error{Op: "Solve", Code: lp.CodeIterationLimit}
	case highs.ModelStatusLoadError, highs.ModelStatusModelError:
		return nil, &lp.Error{Op: "Solve", Code: lp.CodeData, Msg: res.Status.String()}
	default:
		return nil, &lp.Error{Op: "Solve", Code: lp.CodeFail, Msg: res.Status.String()}
	}
	return sol, nil
}

func convertBasis(in []highs.BasisStatus) []lp.BasisStatus {
	if in == nil {
		return nil
	}
	out := make([]lp.BasisStatus, len(in))
	for i, b := range in {
		switch b {
		case highs.BasisStatusBasic:
			out[i] = lp.BasisStatusBasic
		case highs.BasisStatusUpper:
			out[i] = lp.BasisStatusUpper
		case highs.BasisStatusZero:
			out[i] = lp.BasisStatusZero
		default:
			out[i] = lp.BasisStatusLower
		}
	}
	return out
}

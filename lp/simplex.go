package lp

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// condIll is the condition estimate above which a basis matrix is
	// reported as ill-conditioned, condSingular the one above which it is
	// treated as singular.
	condIll      = 1e14
	condSingular = 1 / 0x1p-52
	// blandAfter is the number of consecutive degenerate pivots after which
	// Bland's rule replaces the configured pricing to avoid cycling.
	blandAfter = 50
	// progressEvery is the iteration interval of debug progress messages.
	progressEvery = 100
)

// Simplex solves the problem with the bounded-variable primal simplex
// method, starting from the stored basis (see AdvBasis).
//
// A nil error means the run terminated normally and Solution.Status tells
// whether the problem is optimal, has no feasible solution or is
// unbounded. When an iteration or time limit is hit, the returned error
// carries CodeIterationLimit or CodeTimeLimit and the Solution holds the
// last basic solution. Other errors come with a nil Solution.
//
// The final basis is stored back into the problem, so a later run can be
// warm started from it.
func (p *Problem) Simplex(ctx context.Context, opts ...SolveOption) (*Solution, error) {
	cfg := defaultSolveConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s, err := newSimplex(p, cfg)
	if err != nil {
		return nil, err
	}
	sol, err := s.run(ctx)
	p.stat = s.stat
	p.iterations += s.iters
	return sol, err
}

// simplex holds the working data of one run on the scaled problem. Rows
// are auxiliary variables 0..m-1 and columns structural variables
// m..m+n-1, bound by the equations r_i - sum_j a_ij x_j = 0.
type simplex struct {
	p   *Problem
	cfg *solveConfig
	log *zap.Logger

	m, n int
	a    *mat.Dense // scaled structural matrix

	lo, up []float64 // scaled bounds of all variables
	cost   []float64 // phase 2 cost, always minimized
	sign   float64   // -1 when the original problem is maximized

	x    []float64
	stat []BasisStatus
	head []int // head[c] is the variable basic in position c
	pos  []int // pos[k] is the basis position of k, or -1

	bmat *mat.Dense
	lu   mat.LU

	iters int
	degen int
}

func newSimplex(p *Problem, cfg *solveConfig) (*simplex, error) {
	m, n := len(p.rows), len(p.cols)
	if m == 0 || n == 0 {
		return nil, newErrorMsg("Simplex", CodeData, "problem has no rows or no columns")
	}
	for i, b := range p.rows {
		if !b.valid() {
			return nil, newErrorMsg("Simplex", CodeBadBounds, fmt.Sprintf("row %d", i))
		}
	}
	for j, b := range p.cols {
		if !b.valid() {
			return nil, newErrorMsg("Simplex", CodeBadBounds, fmt.Sprintf("column %d", j))
		}
	}
	if len(p.stat) != m+n {
		return nil, newErrorMsg("Simplex", CodeBadBasis, "no basis")
	}

	s := &simplex{
		p:    p,
		cfg:  cfg,
		log:  cfg.logger,
		m:    m,
		n:    n,
		a:    mat.NewDense(m, n, nil),
		lo:   make([]float64, m+n),
		up:   make([]float64, m+n),
		cost: make([]float64, m+n),
		sign: 1,
		x:    make([]float64, m+n),
		stat: make([]BasisStatus, m+n),
		head: make([]int, 0, m),
		pos:  make([]int, m+n),
		bmat: mat.NewDense(m, m, nil),
	}
	if p.maximize {
		s.sign = -1
	}

	for j, col := range p.matrix {
		for _, nz := range col {
			// entries are assigned in storage order, so the last duplicate wins
			s.a.Set(nz.Row, j, nz.Val*p.rowScale[nz.Row]*p.colScale[j])
		}
	}
	for i, b := range p.rows {
		lo, up := b.Limits()
		s.lo[i], s.up[i] = lo*p.rowScale[i], up*p.rowScale[i]
	}
	for j, b := range p.cols {
		lo, up := b.Limits()
		s.lo[m+j], s.up[m+j] = lo/p.colScale[j], up/p.colScale[j]
		s.cost[m+j] = s.sign * p.obj[j] * p.colScale[j]
	}

	for k, st := range p.stat {
		if st == BasisStatusBasic {
			if len(s.head) == m {
				return nil, newErrorMsg("Simplex", CodeBadBasis, "too many basic variables")
			}
			s.pos[k] = len(s.head)
			s.head = append(s.head, k)
			s.stat[k] = BasisStatusBasic
			continue
		}
		s.pos[k] = -1
		s.stat[k] = s.placeNonbasic(k, st)
	}
	if len(s.head) != m {
		return nil, newErrorMsg("Simplex", CodeBadBasis, "too few basic variables")
	}
	return s, nil
}

// placeNonbasic puts nonbasic variable k on the bound named by st, or on
// another finite bound when st does not fit the current bounds.
func (s *simplex) placeNonbasic(k int, st BasisStatus) BasisStatus {
	lo, up := s.lo[k], s.up[k]
	switch {
	case lo == up:
		st = BasisStatusLower
	case st == BasisStatusLower && isInf(lo), st == BasisStatusUpper && isInf(up),
		st == BasisStatusZero && (!isInf(lo) || !isInf(up)):
		st = nonbasicStatus(Bound{Kind: Double, Lo: lo, Up: up})
	}
	switch st {
	case BasisStatusLower:
		s.x[k] = lo
	case BasisStatusUpper:
		s.x[k] = up
	default:
		s.x[k] = 0
	}
	return st
}

// column writes the constraint column of variable k into dst.
func (s *simplex) column(dst []float64, k int) {
	for i := range dst {
		dst[i] = 0
	}
	if k < s.m {
		dst[k] = 1
		return
	}
	j := k - s.m
	for i := 0; i < s.m; i++ {
		dst[i] = -s.a.At(i, j)
	}
}

// factorize builds and factorizes the basis matrix.
func (s *simplex) factorize() error {
	col := make([]float64, s.m)
	for c, k := range s.head {
		s.column(col, k)
		s.bmat.SetCol(c, col)
	}
	s.lu.Factorize(s.bmat)
	cond := s.lu.Cond()
	switch {
	case math.IsInf(cond, 1) || math.IsNaN(cond) || cond > condSingular:
		return newError("Simplex", CodeSingular)
	case cond > condIll:
		return newErrorMsg("Simplex", CodeIllConditioned, fmt.Sprintf("condition estimate %g", cond))
	}
	return nil
}

// solve computes B^-1 b, or B^-T b when trans is set.
func (s *simplex) solve(b []float64, trans bool) ([]float64, error) {
	out := make([]float64, s.m)
	dst := mat.NewVecDense(s.m, out)
	if err := s.lu.SolveVecTo(dst, trans, mat.NewVecDense(s.m, b)); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, newErrorMsg("Simplex", CodeFail, err.Error())
		}
	}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, newErrorMsg("Simplex", CodeFail, "non-finite value in basis solve")
		}
	}
	return out, nil
}

// computeBasic sets the basic variables from the nonbasic ones:
// B x_B = -N x_N.
func (s *simplex) computeBasic() error {
	rhs := make([]float64, s.m)
	for i := 0; i < s.m; i++ {
		if s.pos[i] < 0 {
			rhs[i] -= s.x[i]
		}
	}
	for j := 0; j < s.n; j++ {
		k := s.m + j
		if s.pos[k] >= 0 || s.x[k] == 0 {
			continue
		}
		for i := 0; i < s.m; i++ {
			rhs[i] += s.a.At(i, j) * s.x[k]
		}
	}
	xb, err := s.solve(rhs, false)
	if err != nil {
		return err
	}
	for c, k := range s.head {
		s.x[k] = xb[c]
	}
	return nil
}

// below and above report primal infeasibility of variable k.
func (s *simplex) below(k int) bool {
	return s.x[k] < s.lo[k]-tolerance(s.cfg.tolPrimal, s.lo[k])
}

func (s *simplex) above(k int) bool {
	return s.x[k] > s.up[k]+tolerance(s.cfg.tolPrimal, s.up[k])
}

// phaseCost returns the cost vector of the current phase: the sum of
// infeasibilities while some basic variable violates its bounds, the
// problem cost otherwise.
func (s *simplex) phaseCost() (cost []float64, infeasible bool, sum float64) {
	cost = make([]float64, s.m+s.n)
	for _, k := range s.head {
		switch {
		case s.below(k):
			cost[k] = -1
			sum += s.lo[k] - s.x[k]
		case s.above(k):
			cost[k] = 1
			sum += s.x[k] - s.up[k]
		}
	}
	if sum > 0 {
		return cost, true, sum
	}
	return s.cost, false, 0
}

// duals returns the simplex multipliers pi = B^-T c_B.
func (s *simplex) duals(cost []float64) ([]float64, error) {
	cb := make([]float64, s.m)
	for c, k := range s.head {
		cb[c] = cost[k]
	}
	return s.solve(cb, true)
}

// reducedCost returns d_k = c_k - a_k^T pi for the constraint column a_k.
func (s *simplex) reducedCost(cost, pi []float64, k int) float64 {
	if k < s.m {
		return cost[k] - pi[k]
	}
	j := k - s.m
	d := cost[k]
	for i := 0; i < s.m; i++ {
		d += s.a.At(i, j) * pi[i]
	}
	return d
}

// eligible reports whether nonbasic k improves the objective and in which
// direction it moves.
func (s *simplex) eligible(k int, d float64) (dir float64, ok bool) {
	if s.lo[k] == s.up[k] {
		return 0, false
	}
	tol := s.cfg.tolDual
	switch s.stat[k] {
	case BasisStatusLower:
		if d < -tol {
			return 1, true
		}
	case BasisStatusUpper:
		if d > tol {
			return -1, true
		}
	case BasisStatusZero:
		if d < -tol {
			return 1, true
		}
		if d > tol {
			return -1, true
		}
	}
	return 0, false
}

// price chooses the entering variable. It returns -1 when no nonbasic
// variable can improve the objective.
func (s *simplex) price(cost, pi []float64, bland bool) (q int, dir float64, err error) {
	q = -1
	best := 0.0
	col := make([]float64, s.m)
	for k := 0; k < s.m+s.n; k++ {
		if s.pos[k] >= 0 {
			continue
		}
		d := s.reducedCost(cost, pi, k)
		kdir, ok := s.eligible(k, d)
		if !ok {
			continue
		}
		if bland {
			return k, kdir, nil
		}
		score := math.Abs(d)
		if s.cfg.pricing == PricingSteepestEdge {
			s.column(col, k)
			alpha, err := s.solve(col, false)
			if err != nil {
				return -1, 0, err
			}
			norm := floats.Norm(alpha, 2)
			score = d * d / (1 + norm*norm)
		}
		if score > best {
			q, dir, best = k, kdir, score
		}
	}
	return q, dir, nil
}

// step describes the outcome of a ratio test.
type step struct {
	leave   int     // basis position of the leaving variable, -1 if none
	toUpper bool    // the leaving variable ends on its upper bound
	t       float64 // step length of the entering variable
	flip    bool    // the entering variable moves to its opposite bound
}

// ratioTest finds how far entering variable q can move in direction dir.
// rate[c] is the change of the basic variable in position c per unit step.
func (s *simplex) ratioTest(q int, rate []float64, phase1, bland bool) (step, bool) {
	var st step
	if s.cfg.ratioTest == RatioTestHarris && !phase1 && !bland {
		st = s.harris(rate)
	} else {
		st = s.textbook(rate, phase1, bland)
	}

	if flipT := s.up[q] - s.lo[q]; !isInf(flipT) && flipT <= st.t {
		return step{leave: -1, t: flipT, flip: true}, true
	}
	if st.leave < 0 {
		return st, false
	}
	return st, true
}

func (s *simplex) textbook(rate []float64, phase1, bland bool) step {
	st := step{leave: -1, t: math.Inf(1)}
	bestRate := 0.0
	for c, r := range rate {
		if math.Abs(r) < s.cfg.tolPivot {
			continue
		}
		k := s.head[c]
		lim, toUpper := math.Inf(1), false
		switch {
		case phase1 && s.below(k):
			if r > 0 {
				lim = (s.lo[k] - s.x[k]) / r
			}
		case phase1 && s.above(k):
			if r < 0 {
				lim, toUpper = (s.up[k]-s.x[k])/r, true
			}
		case r < 0 && !isInf(s.lo[k]):
			lim = (s.x[k] - s.lo[k]) / -r
		case r > 0 && !isInf(s.up[k]):
			lim, toUpper = (s.up[k]-s.x[k])/r, true
		}
		if isInf(lim) {
			continue
		}
		if lim < 0 {
			lim = 0
		}
		tie := math.Abs(lim-st.t) <= s.cfg.tolPrimal
		better := lim < st.t && !tie
		if tie {
			if bland {
				better = k < s.head[st.leave]
			} else {
				better = math.Abs(r) > bestRate
			}
		}
		if st.leave < 0 || better {
			st = step{leave: c, toUpper: toUpper, t: lim}
			bestRate = math.Abs(r)
		}
	}
	return st
}

// harris is the two-pass ratio test: the first pass finds the largest
// step allowed when every bound is relaxed by its feasibility tolerance,
// the second picks the largest pivot among the candidates within it.
func (s *simplex) harris(rate []float64) step {
	thetaMax := math.Inf(1)
	for c, r := range rate {
		if math.Abs(r) < s.cfg.tolPivot {
			continue
		}
		k := s.head[c]
		switch {
		case r < 0 && !isInf(s.lo[k]):
			thetaMax = math.Min(thetaMax, (s.x[k]-s.lo[k]+tolerance(s.cfg.tolPrimal, s.lo[k]))/-r)
		case r > 0 && !isInf(s.up[k]):
			thetaMax = math.Min(thetaMax, (s.up[k]-s.x[k]+tolerance(s.cfg.tolPrimal, s.up[k]))/r)
		}
	}

	st := step{leave: -1, t: math.Inf(1)}
	if isInf(thetaMax) {
		return st
	}
	bestRate := 0.0
	for c, r := range rate {
		if math.Abs(r) < s.cfg.tolPivot {
			continue
		}
		k := s.head[c]
		lim, toUpper := math.Inf(1), false
		switch {
		case r < 0 && !isInf(s.lo[k]):
			lim = (s.x[k] - s.lo[k]) / -r
		case r > 0 && !isInf(s.up[k]):
			lim, toUpper = (s.up[k]-s.x[k])/r, true
		}
		if lim > thetaMax || math.Abs(r) <= bestRate {
			continue
		}
		st = step{leave: c, toUpper: toUpper, t: math.Max(lim, 0)}
		bestRate = math.Abs(r)
	}
	return st
}

// pivot applies a ratio test step for entering variable q.
func (s *simplex) pivot(q int, dir float64, st step) {
	if st.flip {
		if dir > 0 {
			s.x[q], s.stat[q] = s.up[q], BasisStatusUpper
		} else {
			s.x[q], s.stat[q] = s.lo[q], BasisStatusLower
		}
		return
	}
	k := s.head[st.leave]
	if st.toUpper && s.lo[k] != s.up[k] {
		s.x[k], s.stat[k] = s.up[k], BasisStatusUpper
	} else {
		s.x[k], s.stat[k] = s.lo[k], BasisStatusLower
	}
	s.pos[k] = -1
	s.head[st.leave] = q
	s.pos[q] = st.leave
	s.stat[q] = BasisStatusBasic
}

func (s *simplex) run(ctx context.Context) (*Solution, error) {
	start := time.Now()
	if s.cfg.method == MethodDualPrimal {
		s.log.Debug("dual simplex unavailable, running primal")
	}
	s.log.Info("simplex started",
		zap.Int("rows", s.m),
		zap.Int("cols", s.n),
		zap.Int("nonzeros", s.p.NumNonzero()),
	)

	col := make([]float64, s.m)
	rate := make([]float64, s.m)
	for {
		if err := ctx.Err(); err != nil {
			return nil, newErrorMsg("Simplex", CodeStopped, err.Error())
		}
		if err := s.factorize(); err != nil {
			return nil, err
		}
		if err := s.computeBasic(); err != nil {
			return nil, err
		}
		cost, phase1, infeas := s.phaseCost()

		if s.cfg.itLimit > 0 && s.iters >= s.cfg.itLimit {
			return s.limited(phase1, CodeIterationLimit)
		}
		if s.cfg.timeLimit > 0 && time.Since(start) > s.cfg.timeLimit {
			return s.limited(phase1, CodeTimeLimit)
		}
		if s.iters%progressEvery == 0 {
			s.log.Debug("simplex progress",
				zap.Int("iteration", s.iters),
				zap.Bool("phase1", phase1),
				zap.Float64("infeasibility", infeas),
				zap.Float64("objective", s.objective()),
			)
		}

		pi, err := s.duals(cost)
		if err != nil {
			return nil, err
		}
		bland := s.degen >= blandAfter
		q, dir, err := s.price(cost, pi, bland)
		if err != nil {
			return nil, err
		}
		if q < 0 {
			if phase1 {
				return s.finish(StatusNoFeasible)
			}
			return s.finish(StatusOptimal)
		}

		s.column(col, q)
		alpha, err := s.solve(col, false)
		if err != nil {
			return nil, err
		}
		for c := range rate {
			rate[c] = -dir * alpha[c]
		}
		st, bounded := s.ratioTest(q, rate, phase1, bland)
		if !bounded {
			if phase1 {
				return nil, newErrorMsg("Simplex", CodeFail, "unbounded ray in phase 1")
			}
			return s.finish(StatusUnbounded)
		}

		if st.t <= s.cfg.tolPrimal {
			s.degen++
		} else {
			s.degen = 0
		}
		s.pivot(q, dir, st)
		s.iters++
	}
}

// limited builds the solution returned when a limit stops the run.
func (s *simplex) limited(phase1 bool, code Code) (*Solution, error) {
	status := StatusFeasible
	if phase1 {
		status = StatusInfeasible
	}
	sol, err := s.finish(status)
	if err != nil {
		return nil, err
	}
	s.log.Info("simplex stopped", zap.Stringer("reason", code), zap.Int("iterations", s.iters))
	return sol, newError("Simplex", code)
}

// objective returns the original objective value of the current point.
func (s *simplex) objective() float64 {
	z := 0.0
	for j := 0; j < s.n; j++ {
		z += s.p.obj[j] * s.x[s.m+j] * s.p.colScale[j]
	}
	return z
}

// finish unscales the current basic solution and computes its duals.
func (s *simplex) finish(status Status) (*Solution, error) {
	pi, err := s.duals(s.cost)
	if err != nil {
		return nil, err
	}
	sol := &Solution{
		Status:     status,
		ColValues:  make([]float64, s.n),
		ColDuals:   make([]float64, s.n),
		RowValues:  make([]float64, s.m),
		RowDuals:   make([]float64, s.m),
		ColBasis:   make([]BasisStatus, s.n),
		RowBasis:   make([]BasisStatus, s.m),
		Objective:  s.objective(),
		Iterations: s.iters,
	}
	for i := 0; i < s.m; i++ {
		r := s.p.rowScale[i]
		sol.RowValues[i] = s.x[i] / r
		if s.pos[i] < 0 {
			// d_i of the auxiliary variable is the rate of the objective
			// along its bound; rescale to the original row
			sol.RowDuals[i] = s.sign * s.reducedCost(s.cost, pi, i) * r
		}
		sol.RowBasis[i] = s.stat[i]
	}
	for j := 0; j < s.n; j++ {
		k := s.m + j
		sc := s.p.colScale[j]
		sol.ColValues[j] = s.x[k] * sc
		if s.pos[k] < 0 {
			sol.ColDuals[j] = s.sign * s.reducedCost(s.cost, pi, k) / sc
		}
		sol.ColBasis[j] = s.stat[k]
	}

	s.log.Info("simplex finished",
		zap.Stringer("status", status),
		zap.Int("iterations", s.iters),
		zap.Float64("objective", sol.Objective),
	)
	return sol, nil
}

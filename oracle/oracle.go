// Package oracle implements a facet separation oracle for the objective
// polyhedron of a multi-objective linear program.
//
// The oracle holds one linear program built from a vlp problem and an
// interior point e of the polyhedron. A query point q is joined to e; the
// program finds how far the segment stays inside the polyhedron, and its
// dual solution at the exit point is the separating facet.
//
// An Oracle is not safe for concurrent use. Hosts running several
// enumerations in parallel use one Oracle per worker.
//
// # Example
//
//	o, err := oracle.Load("problem.vlp", oracle.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := o.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//	ans, err := o.Ask(ctx, []float64{1, 0, 0})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if ans.Outcome == oracle.OutcomeFacet {
//		fmt.Println(ans.Facet)
//	}
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/vlporacle/lp"
	"github.com/bartolsthoorn/vlporacle/vlp"
)

// State is the lifecycle state of an Oracle.
type State int

const (
	// StateUninitialized is the state after loading.
	StateUninitialized State = iota
	// StateVerified means the interior point passed the feasibility check.
	StateVerified
	// StateReady means the oracle answers queries.
	StateReady
	// StateFailed is terminal; every call is refused.
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateVerified:
		return "Verified"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func isAllowedTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateFailed
	}
	switch from {
	case StateUninitialized:
		return to == StateVerified
	case StateVerified:
		return to == StateReady
	default:
		return false
	}
}

// Outcome is the result class of a query.
type Outcome int

const (
	// OutcomeFacet means a separating facet was found.
	OutcomeFacet Outcome = iota
	// OutcomeInside means the query point is inside the polyhedron or on
	// its boundary; for an ideal point, the polyhedron is unbounded in
	// that direction.
	OutcomeInside
	// OutcomeLimit means the solver hit its iteration or time limit. The
	// query may be repeated.
	OutcomeLimit
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFacet:
		return "OK"
	case OutcomeInside:
		return "INSIDE"
	case OutcomeLimit:
		return "LIMIT"
	default:
		return "UNKNOWN"
	}
}

// Answer is the result of a query.
type Answer struct {
	Outcome Outcome

	// Facet is set for OutcomeFacet. It is owned by the caller.
	Facet Facet

	// Lambda is the optimal value of the scale variable, when known.
	Lambda float64
}

// Option configures an Oracle.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	eps     float64
	round   bool
	shuffle bool
	rng     *rand.Rand
	params  Params
	backend Backend
}

// WithLogger sets the logger receiving diagnostics and fatal reports.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEpsilon sets the positivity and degeneracy tolerance.
// Non-positive values keep vlp.DefaultEpsilon.
func WithEpsilon(eps float64) Option {
	return func(o *options) {
		if eps > 0 {
			o.eps = eps
		}
	}
}

// WithRounding enables snapping facet coefficients to nearby rationals.
func WithRounding(round bool) Option {
	return func(o *options) {
		o.round = round
	}
}

// WithShuffle enables the random permutation of rows and columns when the
// linear program is built.
func WithShuffle(shuffle bool) Option {
	return func(o *options) {
		o.shuffle = shuffle
	}
}

// WithRand sets the random source of the shuffle.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithSeed seeds the random source of the shuffle; 0 selects a fixed
// default seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.rng = rngFromSeed(seed)
	}
}

// WithParams sets the solver settings.
func WithParams(p Params) Option {
	return func(o *options) {
		o.params = p
	}
}

// WithBackend replaces the solver. The Scale setting of the solver
// parameters still decides the Step passed to it.
func WithBackend(b Backend) Option {
	return func(o *options) {
		if b != nil {
			o.backend = b
		}
	}
}

// Oracle is a facet separation oracle.
type Oracle struct {
	log     *zap.Logger
	params  Params
	backend Backend
	cert    certifier
	eps     float64

	prob     *lp.Problem
	objRows  []int
	lambda   int
	interior []float64
	objs     int

	state State
	stats Stats
}

// Load reads a vlp file and builds the oracle for it.
func Load(path string, opts ...Option) (*Oracle, error) {
	cfg := newOptions(opts)
	in, err := vlp.Load(path, vlp.WithLogger(cfg.logger), vlp.WithEpsilon(cfg.eps))
	if err != nil {
		kind := KindFile
		switch {
		case errors.Is(err, vlp.ErrFormat):
			kind = KindFormat
		case errors.Is(err, vlp.ErrInterior):
			kind = KindModel
		case errors.Is(err, vlp.ErrTooLarge):
			kind = KindResource
		}
		return nil, report(cfg.logger, &Error{Kind: kind, Op: "Load", Msg: "cannot load " + path, Err: err})
	}
	return build(in, cfg)
}

// New builds the oracle for a parsed instance.
func New(in *vlp.Instance, opts ...Option) (*Oracle, error) {
	cfg := newOptions(opts)
	if err := checkShape(in); err != nil {
		return nil, report(cfg.logger, &Error{Kind: KindModel, Op: "Load", Msg: "malformed instance", Err: err})
	}
	for k, v := range in.Interior {
		if !(v >= cfg.eps) {
			return nil, report(cfg.logger, &Error{Kind: KindModel, Op: "Load",
				Msg: fmt.Sprintf("initial value[%d]=%g not positive", k+1, v)})
		}
	}
	return build(in, cfg)
}

// checkShape verifies that the slices and matrix cells of in agree with
// its dimensions.
func checkShape(in *vlp.Instance) error {
	switch {
	case in.Rows < 0 || in.Cols < 1 || in.Objs < 1:
		return fmt.Errorf("bad dimensions %d x %d with %d objectives", in.Rows, in.Cols, in.Objs)
	case len(in.Interior) != in.Objs:
		return fmt.Errorf("%d interior coordinates for %d objectives", len(in.Interior), in.Objs)
	case len(in.RowBounds) != in.Rows:
		return fmt.Errorf("%d row bounds for %d rows", len(in.RowBounds), in.Rows)
	case len(in.ColBounds) != in.Cols:
		return fmt.Errorf("%d column bounds for %d columns", len(in.ColBounds), in.Cols)
	}
	for c := range in.Matrix {
		if c.Row < 0 || c.Row >= in.Rows+in.Objs || c.Col < 0 || c.Col >= in.Cols {
			return fmt.Errorf("matrix entry (%d, %d) out of range", c.Row+1, c.Col+1)
		}
	}
	return nil
}

func newOptions(opts []Option) *options {
	cfg := &options{
		logger: zap.NewNop(),
		eps:    vlp.DefaultEpsilon,
		params: DefaultParams(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func build(in *vlp.Instance, cfg *options) (*Oracle, error) {
	var rng *rand.Rand
	if cfg.shuffle {
		rng = cfg.rng
		if rng == nil {
			rng = rngFromSeed(0)
		}
	}
	prob, l, err := assemble(in, rng)
	if err != nil {
		return nil, report(cfg.logger, &Error{Kind: KindResource, Op: "Load", Msg: "cannot build the linear program", Err: err})
	}

	backend := cfg.backend
	if backend == nil {
		backend = DefaultBackend(cfg.params, cfg.logger)
	}

	o := &Oracle{
		log:      cfg.logger,
		params:   cfg.params,
		backend:  backend,
		eps:      cfg.eps,
		prob:     prob,
		objRows:  make([]int, in.Objs),
		lambda:   l.lambda(),
		interior: append([]float64(nil), in.Interior...),
		objs:     in.Objs,
	}
	for k := range o.objRows {
		o.objRows[k] = l.objRow(in, k)
	}
	o.cert = certifier{interior: o.interior, eps: o.eps, round: cfg.round}
	o.stats.Version = backend.Version()

	o.log.Info("oracle loaded",
		zap.String("direction", in.Direction()),
		zap.Int("rows", in.Rows),
		zap.Int("cols", in.Cols),
		zap.Int("objs", in.Objs),
		zap.Bool("shuffle", cfg.shuffle),
		zap.String("solver", o.stats.Version),
	)
	return o, nil
}

// report logs err as the diagnostic of a failed operation and returns it.
func report(log *zap.Logger, err *Error) error {
	log.Error(err.Msg,
		zap.String("op", err.Op),
		zap.Stringer("kind", err.Kind),
		zap.Bool("fatal", err.Kind.Fatal()),
		zap.Error(err.Err),
	)
	return err
}

// fail reports err and moves the oracle to StateFailed.
func (o *Oracle) fail(err *Error) error {
	o.transition(StateFailed)
	return report(o.log, err)
}

func (o *Oracle) transition(to State) {
	if !isAllowedTransition(o.state, to) {
		return
	}
	o.log.Debug("oracle state", zap.Stringer("from", o.state), zap.Stringer("to", to))
	o.state = to
}

// State returns the lifecycle state.
func (o *Oracle) State() State { return o.state }

// NumObjectives returns the dimension of the objective space.
func (o *Oracle) NumObjectives() int { return o.objs }

// Interior returns a copy of the interior point.
func (o *Oracle) Interior() []float64 { return append([]float64(nil), o.interior...) }

// Stats returns the solver statistics.
func (o *Oracle) Stats() Stats {
	s := o.stats
	s.Iterations = o.prob.Iterations()
	return s
}

// Initialize checks that the polyhedron is not empty and that the interior
// point is strictly inside it. It returns an error matching ErrEmpty for
// an empty polyhedron, and one matching ErrLimit when the solver hit a
// limit; Initialize may be called again after the latter.
func (o *Oracle) Initialize(ctx context.Context) error {
	const op = "Initialize"
	if o.state != StateUninitialized && o.state != StateVerified {
		return &Error{Kind: KindUsage, Op: op, Msg: "oracle is " + o.state.String()}
	}

	// with an empty scale column this is a pure feasibility problem
	if err := o.setScaleColumn(make([]float64, o.objs), false); err != nil {
		return o.fail(&Error{Kind: KindResource, Op: op, Msg: "cannot set the scale column", Err: err})
	}
	o.prob.SetMaximize(false)
	sol, err := o.solve(ctx)
	o.prob.SetMaximize(true)
	if err != nil {
		if lp.CodeOf(err).IsLimit() {
			return report(o.log, &Error{Kind: KindLimit, Op: op, Msg: "internal point: " + lp.CodeOf(err).String(), Err: err})
		}
		return o.fail(&Error{Kind: KindSolverStatus, Op: op,
			Msg: "internal point: the oracle says: " + lp.CodeOf(err).String(), Err: err})
	}
	if !sol.IsOptimal() {
		kind := KindSolverStatus
		if sol.IsInfeasible() {
			kind = KindEmpty
		}
		return o.fail(&Error{Kind: kind, Op: op, Msg: "internal point, the oracle says: " + sol.Status.Message()})
	}
	o.transition(StateVerified)

	if err := o.checkInterior(ctx); err != nil {
		return err
	}
	o.transition(StateReady)
	o.log.Info("oracle initialized", zap.Int("calls", o.stats.Calls))
	return nil
}

// checkInterior moves the interior point along both directions of every
// axis; on a boundary point one of them leaves the polyhedron at once.
func (o *Oracle) checkInterior(ctx context.Context) error {
	const op = "Initialize"
	d := make([]float64, o.objs)
	for k := 0; k < o.objs; k++ {
		for _, sign := range []float64{1, -1} {
			for i := range d {
				d[i] = 0
			}
			d[k] = -sign
			if err := o.setScaleColumn(d, false); err != nil {
				return o.fail(&Error{Kind: KindResource, Op: op, Msg: "cannot set the scale column", Err: err})
			}
			sol, err := o.solve(ctx)
			if err != nil {
				if lp.CodeOf(err).IsLimit() {
					return report(o.log, &Error{Kind: KindLimit, Op: op, Msg: "internal point: " + lp.CodeOf(err).String(), Err: err})
				}
				return o.fail(&Error{Kind: KindSolverStatus, Op: op,
					Msg: "internal point: the oracle says: " + lp.CodeOf(err).String(), Err: err})
			}
			switch {
			case sol.IsUnbounded():
				continue
			case !sol.IsOptimal():
				return o.fail(&Error{Kind: KindSolverStatus, Op: op,
					Msg: "internal point, the oracle says: " + sol.Status.Message()})
			case sol.Objective < 10*o.eps:
				return o.fail(&Error{Kind: KindModel, Op: op,
					Msg: fmt.Sprintf("initial point is on the boundary in direction %+g of objective %d", sign, k+1)})
			}
		}
	}
	return nil
}

// setScaleColumn writes d into the objective rows of the scale column.
// Finite queries bound the scale variable by 1.
func (o *Oracle) setScaleColumn(d []float64, finite bool) error {
	if err := o.prob.SetMatCol(o.lambda, o.objRows, d); err != nil {
		return err
	}
	b := lp.LowerBound(0)
	if finite {
		b = lp.DoubleBound(0, 1)
	}
	return o.prob.SetColBounds(o.lambda, b)
}

// Ask separates the query from the polyhedron. The query has one
// coordinate per objective followed by a homogeneous coordinate, which is
// zero for an ideal point (a direction) and nonzero for a finite point.
//
// Inside and limit outcomes are not errors. Any error other than a
// KindUsage one moves the oracle to StateFailed.
func (o *Oracle) Ask(ctx context.Context, query []float64) (Answer, error) {
	const op = "Ask"
	if o.state != StateReady {
		return Answer{}, &Error{Kind: KindUsage, Op: op, Msg: "oracle is " + o.state.String()}
	}
	if len(query) != o.objs+1 {
		return Answer{}, &Error{Kind: KindUsage, Op: op,
			Msg: fmt.Sprintf("query has %d coordinates, want %d", len(query), o.objs+1)}
	}
	for _, v := range query {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Answer{}, &Error{Kind: KindUsage, Op: op, Msg: "query is not finite"}
		}
	}

	ideal := query[o.objs] == 0
	d := make([]float64, o.objs)
	for k := range d {
		if ideal {
			d[k] = -query[k]
		} else {
			d[k] = o.interior[k] - query[k]
		}
	}
	if err := o.setScaleColumn(d, !ideal); err != nil {
		return Answer{}, o.fail(&Error{Kind: KindResource, Op: op, Msg: "cannot set the scale column", Err: err})
	}

	sol, err := o.solve(ctx)
	if err != nil {
		code := lp.CodeOf(err)
		if code.IsLimit() {
			o.log.Warn("oracle limit reached", zap.Stringer("reason", code), zap.Float64s("query", query))
			return Answer{Outcome: OutcomeLimit}, nil
		}
		return Answer{}, o.fail(&Error{Kind: KindSolverStatus, Op: op,
			Msg: fmt.Sprintf("the oracle says: %s (%d)", code, code), Err: err})
	}

	switch {
	case sol.IsUnbounded() && ideal:
		return Answer{Outcome: OutcomeInside, Lambda: math.Inf(1)}, nil
	case sol.IsUnbounded():
		return Answer{}, o.fail(&Error{Kind: KindSolverStatus, Op: op, Msg: "the oracle says: problem unbounded"})
	case !sol.IsOptimal():
		return Answer{}, o.fail(&Error{Kind: KindSolverStatus, Op: op,
			Msg: fmt.Sprintf("the oracle says: %s (%d)", sol.Status.Message(), sol.Status)})
	}

	lambda := sol.Objective
	if lambda < 10*o.eps {
		return Answer{}, o.fail(&Error{Kind: KindNumerical, Op: op, Msg: "initial point is on the boundary"})
	}
	if !ideal && lambda > 1-o.eps {
		if lambda > 1+o.eps {
			return Answer{}, o.fail(&Error{Kind: KindNumerical, Op: op,
				Msg: fmt.Sprintf("numerical problem, lambda=%g > 1.0", lambda)})
		}
		return Answer{Outcome: OutcomeInside, Lambda: lambda}, nil
	}

	g := make([]float64, o.objs)
	for k, row := range o.objRows {
		g[k] = sol.RowDual(row)
	}
	f, cerr := o.cert.facet(g, d, query, lambda)
	if cerr != nil {
		return Answer{}, o.fail(cerr)
	}
	o.log.Debug("oracle facet", zap.Float64s("query", query), zap.Float64s("facet", f), zap.Float64("lambda", lambda))
	return Answer{Outcome: OutcomeFacet, Facet: f, Lambda: lambda}, nil
}

package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bartolsthoorn/vlporacle/lp"
	"github.com/bartolsthoorn/vlporacle/vlp"
)

// scriptedBackend fails with the scripted codes before handing over to
// the real solver, and records every step it was called with.
type scriptedBackend struct {
	codes []lp.Code
	steps []Step
	inner Backend
}

func (b *scriptedBackend) Solve(ctx context.Context, p *lp.Problem, step Step) (*lp.Solution, error) {
	b.steps = append(b.steps, step)
	if len(b.codes) > 0 {
		code := b.codes[0]
		b.codes = b.codes[1:]
		if code.IsLimit() {
			return &lp.Solution{Status: lp.StatusFeasible, Iterations: 7}, &lp.Error{Op: "Simplex", Code: code}
		}
		return nil, &lp.Error{Op: "Simplex", Code: code}
	}
	return b.inner.Solve(ctx, p, step)
}

func (b *scriptedBackend) Version() string { return "scripted" }

// funcBackend answers every solve with a fixed function.
type funcBackend func(p *lp.Problem) (*lp.Solution, error)

func (f funcBackend) Solve(_ context.Context, p *lp.Problem, _ Step) (*lp.Solution, error) {
	return f(p)
}

func (f funcBackend) Version() string { return "func" }

func newTriangle(t *testing.T, b Backend, opts ...Option) *Oracle {
	t.Helper()
	in, err := vlp.Load(writeFile(t, triangle))
	require.NoError(t, err)
	opts = append([]Option{WithBackend(b), WithLogger(zaptest.NewLogger(t))}, opts...)
	o, err := New(in, opts...)
	require.NoError(t, err)
	return o
}

func TestTierNext(t *testing.T) {
	tests := []struct {
		from tier
		code lp.Code
		want tier
	}{
		{tierFresh, lp.CodeBadBasis, tierRetryBasis},
		{tierFresh, lp.CodeSingular, tierRetryBasis},
		{tierFresh, lp.CodeFail, tierRetryFail},
		{tierFresh, lp.CodeIllConditioned, tierGiveUp},
		{tierFresh, lp.CodeBadBounds, tierGiveUp},
		{tierRetryBasis, lp.CodeFail, tierRetryFail},
		{tierRetryBasis, lp.CodeBadBasis, tierGiveUp},
		{tierRetryBasis, lp.CodeSingular, tierGiveUp},
		{tierRetryFail, lp.CodeFail, tierGiveUp},
		{tierRetryFail, lp.CodeBadBasis, tierGiveUp},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.next(tt.code))
		})
	}
}

func TestTierStep(t *testing.T) {
	assert.Equal(t, Step{Sort: true, Scale: true, FreshBasis: true}, tierFresh.step(true))
	assert.Equal(t, Step{Sort: true, FreshBasis: true}, tierFresh.step(false))
	assert.Equal(t, Step{Scale: true, FreshBasis: true}, tierRetryBasis.step(true))
	assert.Equal(t, Step{FreshBasis: true}, tierRetryFail.step(true))
}

func TestRetryLadder(t *testing.T) {
	fresh := Step{Sort: true, Scale: true, FreshBasis: true}
	basis := Step{Scale: true, FreshBasis: true}
	again := Step{FreshBasis: true}

	tests := []struct {
		name  string
		codes []lp.Code
		steps []Step
		fails lp.Code
	}{
		{"first attempt", nil, []Step{fresh}, lp.CodeOK},
		{"bad basis", []lp.Code{lp.CodeBadBasis}, []Step{fresh, basis}, lp.CodeOK},
		{"singular then fail", []lp.Code{lp.CodeSingular, lp.CodeFail}, []Step{fresh, basis, again}, lp.CodeOK},
		{"fail", []lp.Code{lp.CodeFail}, []Step{fresh, again}, lp.CodeOK},
		{"bad basis twice", []lp.Code{lp.CodeBadBasis, lp.CodeBadBasis}, []Step{fresh, basis}, lp.CodeBadBasis},
		{"fail twice", []lp.Code{lp.CodeFail, lp.CodeFail}, []Step{fresh, again}, lp.CodeFail},
		{"ill-conditioned", []lp.Code{lp.CodeIllConditioned}, []Step{fresh}, lp.CodeIllConditioned},
		{"limit", []lp.Code{lp.CodeTimeLimit}, []Step{fresh}, lp.CodeTimeLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &scriptedBackend{codes: tt.codes, inner: NewSimplexBackend()}
			o := newTriangle(t, b)

			sol, err := o.solve(context.Background())
			assert.Equal(t, tt.fails, lp.CodeOf(err))
			assert.Equal(t, tt.steps, b.steps)
			assert.Equal(t, len(tt.steps), o.Stats().Calls)
			if tt.fails == lp.CodeOK || tt.fails.IsLimit() {
				assert.NotNil(t, sol)
			} else {
				assert.Nil(t, sol)
			}
		})
	}
}

func TestRetryWithoutScaling(t *testing.T) {
	params := DefaultParams()
	params.Scale = false
	b := &scriptedBackend{codes: []lp.Code{lp.CodeSingular}, inner: NewSimplexBackend()}
	o := newTriangle(t, b, WithParams(params))

	_, err := o.solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Step{{Sort: true, FreshBasis: true}, {FreshBasis: true}}, b.steps)
}

func TestAskLimit(t *testing.T) {
	b := &scriptedBackend{inner: NewSimplexBackend()}
	o := newTriangle(t, b)
	require.NoError(t, o.Initialize(context.Background()))

	b.codes = []lp.Code{lp.CodeIterationLimit}
	ans, err := o.Ask(context.Background(), []float64{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLimit, ans.Outcome)
	assert.Equal(t, StateReady, o.State())

	// the same query succeeds once the solver gets through
	ans, err = o.Ask(context.Background(), []float64{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFacet, ans.Outcome)
}

func TestInitializeLimitCanBeRepeated(t *testing.T) {
	b := &scriptedBackend{codes: []lp.Code{lp.CodeTimeLimit}, inner: NewSimplexBackend()}
	o := newTriangle(t, b)

	err := o.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrLimit)
	assert.False(t, KindLimit.Fatal())
	assert.Equal(t, StateUninitialized, o.State())

	require.NoError(t, o.Initialize(context.Background()))
	assert.Equal(t, StateReady, o.State())
}

func TestAskSolverFailure(t *testing.T) {
	b := &scriptedBackend{inner: NewSimplexBackend()}
	o := newTriangle(t, b)
	require.NoError(t, o.Initialize(context.Background()))

	b.codes = []lp.Code{lp.CodeIllConditioned}
	_, err := o.Ask(context.Background(), []float64{1, 0, 0})
	assert.Equal(t, KindSolverStatus, KindOf(err))
	assert.Equal(t, lp.CodeIllConditioned, lp.CodeOf(err))
	assert.Equal(t, StateFailed, o.State())
}

// optimalBackend reports an optimal solution with the given objective and
// row duals on every row.
func optimalBackend(objective float64) funcBackend {
	return func(p *lp.Problem) (*lp.Solution, error) {
		duals := make([]float64, p.NumRows())
		for i := range duals {
			duals[i] = -1
		}
		return &lp.Solution{Status: lp.StatusOptimal, Objective: objective, RowDuals: duals}, nil
	}
}

func TestAskNumericalFailures(t *testing.T) {
	tests := []struct {
		name    string
		lambda  float64
		query   []float64
		outcome Outcome
		kind    Kind
	}{
		{"boundary", 1e-9, []float64{1, 0, 0}, 0, KindNumerical},
		{"lambda above one", 1.5, []float64{1, 1, 1}, 0, KindNumerical},
		{"lambda one", 1, []float64{1, 1, 1}, OutcomeInside, 0},
		{"ideal lambda above one", 1.5, []float64{1, 0, 0}, OutcomeFacet, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTriangle(t, optimalBackend(0.4))
			require.NoError(t, o.Initialize(context.Background()))
			o.backend = optimalBackend(tt.lambda)

			ans, err := o.Ask(context.Background(), tt.query)
			if tt.kind != 0 {
				assert.Equal(t, tt.kind, KindOf(err))
				assert.Equal(t, StateFailed, o.State())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, ans.Outcome)
		})
	}
}

func TestAskUnbounded(t *testing.T) {
	unbounded := funcBackend(func(p *lp.Problem) (*lp.Solution, error) {
		return &lp.Solution{Status: lp.StatusUnbounded}, nil
	})
	o := newTriangle(t, optimalBackend(0.4))
	require.NoError(t, o.Initialize(context.Background()))
	o.backend = unbounded

	ans, err := o.Ask(context.Background(), []float64{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInside, ans.Outcome)

	_, err = o.Ask(context.Background(), []float64{1, 1, 1})
	assert.Equal(t, KindSolverStatus, KindOf(err))
	assert.Equal(t, StateFailed, o.State())
}

func TestStatsCountFailedAttempts(t *testing.T) {
	failed := true
	b := funcBackend(func(p *lp.Problem) (*lp.Solution, error) {
		if failed {
			failed = false
			p.AddIterations(5)
			return nil, &lp.Error{Op: "Simplex", Code: lp.CodeFail}
		}
		return NewSimplexBackend().Solve(context.Background(), p, Step{Sort: true, Scale: true, FreshBasis: true})
	})
	o := newTriangle(t, b)

	sol, err := o.solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, o.Stats().Calls)
	assert.Equal(t, 5+sol.Iterations, o.Stats().Iterations)
}

//go:build cgo && (linux || darwin) && (amd64 || arm64)

package oracle

import (
	"context"
	"strings"
	"testing"

	"github.com/bartolsthoorn/gohighs/highs"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bartolsthoorn/vlporacle/lp"
)

// corner is max x + y over x + 2y <= 4, 3x + y <= 6, x, y >= 0. The
// optimum (1.6, 1.2) has objective 2.8 and row duals (0.4, 0.2).
func corner(t *testing.T) *lp.Problem {
	t.Helper()
	p := lp.NewProblem(2, 2)
	p.SetMaximize(true)
	require.NoError(t, p.SetRowBounds(0, lp.UpperBound(4)))
	require.NoError(t, p.SetRowBounds(1, lp.UpperBound(6)))
	for j, col := range [][]float64{{1, 3}, {2, 1}} {
		require.NoError(t, p.SetColBounds(j, lp.LowerBound(0)))
		require.NoError(t, p.SetObjCoef(j, 1))
		require.NoError(t, p.SetMatCol(j, []int{0, 1}, col))
	}
	return p
}

func newHighs(t *testing.T) *HighsBackend {
	t.Helper()
	return NewHighsBackend(DefaultParams(), zaptest.NewLogger(t))
}

func TestHighsSolve(t *testing.T) {
	steps := []Step{
		{Sort: true, Scale: true, FreshBasis: true},
		{Scale: true, FreshBasis: true},
		{FreshBasis: true},
	}
	for _, step := range steps {
		p := corner(t)
		sol, err := newHighs(t).Solve(context.Background(), p, step)
		require.NoError(t, err, "step %+v", step)
		assert.Equal(t, lp.StatusOptimal, sol.Status)
		assert.InDelta(t, 2.8, sol.Objective, 1e-9)
		assert.InDeltaSlice(t, []float64{1.6, 1.2}, sol.ColValues, 1e-9)
		assert.InDeltaSlice(t, []float64{0.4, 0.2}, sol.RowDuals, 1e-9)
		assert.Equal(t, p.Iterations(), sol.Iterations)
	}
}

func TestHighsDualsMatchSimplex(t *testing.T) {
	step := Step{Sort: true, Scale: true, FreshBasis: true}
	want, err := NewSimplexBackend().Solve(context.Background(), corner(t), step)
	require.NoError(t, err)
	got, err := newHighs(t).Solve(context.Background(), corner(t), step)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RowDuals, got.RowDuals, 1e-9)
	assert.InDelta(t, want.Objective, got.Objective, 1e-9)
}

func TestHighsNoFeasible(t *testing.T) {
	p := lp.NewProblem(1, 1)
	require.NoError(t, p.SetColBounds(0, lp.LowerBound(0)))
	require.NoError(t, p.SetRowBounds(0, lp.UpperBound(-1)))
	require.NoError(t, p.SetMatCol(0, []int{0}, []float64{1}))
	require.NoError(t, p.SetObjCoef(0, 1))

	sol, err := newHighs(t).Solve(context.Background(), p, Step{Sort: true, FreshBasis: true})
	require.NoError(t, err)
	assert.Equal(t, lp.StatusNoFeasible, sol.Status)
}

func TestHighsUnbounded(t *testing.T) {
	p := lp.NewProblem(1, 1)
	p.SetMaximize(true)
	require.NoError(t, p.SetColBounds(0, lp.LowerBound(0)))
	require.NoError(t, p.SetRowBounds(0, lp.LowerBound(0)))
	require.NoError(t, p.SetMatCol(0, []int{0}, []float64{1}))
	require.NoError(t, p.SetObjCoef(0, 1))

	for _, step := range []Step{{Sort: true, FreshBasis: true}, {FreshBasis: true}} {
		sol, err := newHighs(t).Solve(context.Background(), p, step)
		require.NoError(t, err)
		assert.Equal(t, lp.StatusUnbounded, sol.Status, "step %+v", step)
	}
}

func TestHighsStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := corner(t)
	_, err := newHighs(t).Solve(ctx, p, Step{Sort: true, FreshBasis: true})
	assert.Equal(t, lp.CodeStopped, lp.CodeOf(err))
	assert.Equal(t, 0, p.Iterations())
}

func TestConvertSolution(t *testing.T) {
	tests := []struct {
		name     string
		status   highs.ModelStatus
		maximize bool
		want     lp.Status
		code     lp.Code
	}{
		{"optimal", highs.ModelStatusOptimal, true, lp.StatusOptimal, lp.CodeOK},
		{"infeasible", highs.ModelStatusInfeasible, false, lp.StatusNoFeasible, lp.CodeOK},
		{"unbounded", highs.ModelStatusUnbounded, true, lp.StatusUnbounded, lp.CodeOK},
		{"either when maximizing", highs.ModelStatusUnboundedOrInfeasible, true, lp.StatusUnbounded, lp.CodeOK},
		{"either when minimizing", highs.ModelStatusUnboundedOrInfeasible, false, lp.StatusNoFeasible, lp.CodeOK},
		{"time limit", highs.ModelStatusTimeLimit, true, lp.StatusFeasible, lp.CodeTimeLimit},
		{"iteration limit", highs.ModelStatusIterationLimit, true, lp.StatusFeasible, lp.CodeIterationLimit},
		{"model error", highs.ModelStatusModelError, true, 0, lp.CodeData},
		{"solve error", highs.ModelStatusSolveError, true, 0, lp.CodeFail},
		{"unknown", highs.ModelStatusUnknown, true, 0, lp.CodeFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := lp.NewProblem(1, 1)
			p.SetMaximize(tt.maximize)
			res := &highs.Solution{
				Status:    tt.status,
				ColValues: []float64{0.5},
				RowDuals:  []float64{-1},
				ColBasis:  []highs.BasisStatus{highs.BasisStatusBasic},
				RowBasis:  []highs.BasisStatus{highs.BasisStatusUpper},
			}

			sol, err := convertSolution(p, res)
			assert.Equal(t, tt.code, lp.CodeOf(err))
			if tt.code != lp.CodeOK && !tt.code.IsLimit() {
				assert.Nil(t, sol)
				return
			}
			require.NotNil(t, sol)
			assert.Equal(t, tt.want, sol.Status)
			assert.Equal(t, []float64{-1}, sol.RowDuals)
			assert.Equal(t, []lp.BasisStatus{lp.BasisStatusBasic}, sol.ColBasis)
			assert.Equal(t, []lp.BasisStatus{lp.BasisStatusUpper}, sol.RowBasis)
		})
	}
}

func TestHighsOracleMatchesSimplex(t *testing.T) {
	queries := [][]float64{{1, 0, 0}, {1, 1, 1}, {-1, 0, 0}, {0, -1, 0}, {0.4, 0.4, 1}, {-1, 0.3, 1}}

	simplex := newTriangle(t, NewSimplexBackend())
	require.NoError(t, simplex.Initialize(context.Background()))
	hi := newTriangle(t, newHighs(t))
	require.NoError(t, hi.Initialize(context.Background()))

	for _, q := range queries {
		want, err := simplex.Ask(context.Background(), q)
		require.NoError(t, err)
		got, err := hi.Ask(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, want.Outcome, got.Outcome, "query %v", q)
		if diff := cmp.Diff(want.Facet, got.Facet, approx); diff != "" {
			t.Errorf("query %v facet mismatch (-want +got):\n%s", q, diff)
		}
	}
	assert.Equal(t, hi.prob.Iterations(), hi.Stats().Iterations)
}

func TestHighsVersion(t *testing.T) {
	v := newHighs(t).Version()
	assert.True(t, strings.HasPrefix(v, "HiGHS"), v)
	assert.IsType(t, &HighsBackend{}, DefaultBackend(DefaultParams(), nil))
}

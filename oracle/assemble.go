package oracle

import (
	"math/rand"
	"sort"

	"github.com/bartolsthoorn/vlporacle/lp"
	"github.com/bartolsthoorn/vlporacle/vlp"
)

// defaultSeed replaces a zero seed.
const defaultSeed int64 = 1

// layout maps the rows and columns of an instance onto the LP.
type layout struct {
	rowOf []int // instance row (objective rows last) to LP row
	colOf []int // instance column (scale column last) to LP column
}

func (l layout) objRow(in *vlp.Instance, k int) int { return l.rowOf[in.ObjRow(k)] }
func (l layout) lambda() int                          { return l.colOf[len(l.colOf)-1] }

// newLayout returns the identity layout, shuffled when rng is not nil.
func newLayout(rows, cols int, rng *rand.Rand) layout {
	l := layout{rowOf: make([]int, rows), colOf: make([]int, cols)}
	for i := range l.rowOf {
		l.rowOf[i] = i
	}
	for j := range l.colOf {
		l.colOf[j] = j
	}
	if rng != nil {
		rng.Shuffle(rows, func(a, b int) { l.rowOf[a], l.rowOf[b] = l.rowOf[b], l.rowOf[a] })
		rng.Shuffle(cols, func(a, b int) { l.colOf[a], l.colOf[b] = l.colOf[b], l.colOf[a] })
	}
	return l
}

// assemble builds the LP
//
//	maximize   lambda
//	subject to A x              within the row bounds
//	           P x + d lambda = interior
//	           x within the column bounds, lambda >= 0
//
// with the d column left empty.
func assemble(in *vlp.Instance, rng *rand.Rand) (*lp.Problem, layout, error) {
	m, n := in.Rows+in.Objs, in.Cols+1
	l := newLayout(m, n, rng)
	p := lp.NewProblem(m, n)

	for i, b := range in.RowBounds {
		if err := p.SetRowBounds(l.rowOf[i], b); err != nil {
			return nil, layout{}, err
		}
	}
	for k, v := range in.Interior {
		if err := p.SetRowBounds(l.objRow(in, k), lp.FixedBound(v)); err != nil {
			return nil, layout{}, err
		}
	}
	for j, b := range in.ColBounds {
		if err := p.SetColBounds(l.colOf[j], b); err != nil {
			return nil, layout{}, err
		}
	}
	if err := p.SetColBounds(l.lambda(), lp.LowerBound(0)); err != nil {
		return nil, layout{}, err
	}

	cells := make([]vlp.Cell, 0, len(in.Matrix))
	for c := range in.Matrix {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].Col != cells[b].Col {
			return cells[a].Col < cells[b].Col
		}
		return cells[a].Row < cells[b].Row
	})
	for start := 0; start < len(cells); {
		col := cells[start].Col
		end := start
		var idx []int
		var val []float64
		for ; end < len(cells) && cells[end].Col == col; end++ {
			idx = append(idx, l.rowOf[cells[end].Row])
			val = append(val, in.Matrix[cells[end]])
		}
		if err := p.SetMatCol(l.colOf[col], idx, val); err != nil {
			return nil, layout{}, err
		}
		start = end
	}

	if err := p.SetObjCoef(l.lambda(), 1); err != nil {
		return nil, layout{}, err
	}
	p.SetMaximize(true)
	return p, l, nil
}

// rngFromSeed returns a deterministic generator; seed 0 selects defaultSeed.
func rngFromSeed(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

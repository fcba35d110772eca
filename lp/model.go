package lp

import "fmt"

// Problem is a mutable linear program instance.
//
// The problem solved by Simplex is:
//
//	Minimize (or Maximize): sum_j Obj[j] * x_j
//	Subject to:             r_i = sum_j A[i][j] * x_j,  r_i within its row bound
//	And:                    x_j within its column bound
//
// Rows and columns are zero-indexed. New rows are free and new columns are
// fixed at zero until their bounds are set.
type Problem struct {
	maximize bool

	rows []Bound
	cols []Bound
	obj  []float64

	// matrix is stored column by column; entries of a column are kept in
	// insertion order until SortMatrix is called.
	matrix [][]Nonzero

	// scale factors, all 1 unless Scale has been called
	rowScale []float64
	colScale []float64

	// stat holds the basis status of the m auxiliary variables followed by
	// the n structural variables; nil means there is no basis yet.
	stat []BasisStatus

	iterations int
}

// Nonzero represents a non-zero entry in the sparse constraint matrix.
// Row and Col are zero-indexed.
type Nonzero struct {
	Row int
	Col int
	Val float64
}

// NewProblem creates a problem with the given number of rows and columns.
func NewProblem(rows, cols int) *Problem {
	p := &Problem{
		rows:     make([]Bound, rows),
		cols:     make([]Bound, cols),
		obj:      make([]float64, cols),
		matrix:   make([][]Nonzero, cols),
		rowScale: make([]float64, rows),
		colScale: make([]float64, cols),
	}
	for i := range p.rows {
		p.rows[i] = FreeBound()
		p.rowScale[i] = 1
	}
	for j := range p.cols {
		p.cols[j] = FixedBound(0)
		p.colScale[j] = 1
	}
	return p
}

// NumRows returns the number of rows (constraints) in the problem.
func (p *Problem) NumRows() int { return len(p.rows) }

// NumCols returns the number of columns (variables) in the problem.
func (p *Problem) NumCols() int { return len(p.cols) }

// NumNonzero returns the number of stored matrix entries.
func (p *Problem) NumNonzero() int {
	n := 0
	for _, col := range p.matrix {
		n += len(col)
	}
	return n
}

// Maximize reports whether the objective is maximized.
func (p *Problem) Maximize() bool { return p.maximize }

// SetMaximize sets whether to maximize (true) or minimize (false).
func (p *Problem) SetMaximize(maximize bool) { p.maximize = maximize }

// SetObjCoef sets the objective coefficient of column j.
func (p *Problem) SetObjCoef(j int, v float64) error {
	if j < 0 || j >= len(p.cols) {
		return newErrorMsg("SetObjCoef", CodeData, fmt.Sprintf("column %d out of range", j))
	}
	p.obj[j] = v
	return nil
}

// ObjCoef returns the objective coefficient of column j.
func (p *Problem) ObjCoef(j int) float64 { return p.obj[j] }

// SetRowBounds sets the bound of row i.
func (p *Problem) SetRowBounds(i int, b Bound) error {
	if i < 0 || i >= len(p.rows) {
		return newErrorMsg("SetRowBounds", CodeData, fmt.Sprintf("row %d out of range", i))
	}
	p.rows[i] = b
	return nil
}

// RowBounds returns the bound of row i.
func (p *Problem) RowBounds(i int) Bound { return p.rows[i] }

// SetColBounds sets the bound of column j.
func (p *Problem) SetColBounds(j int, b Bound) error {
	if j < 0 || j >= len(p.cols) {
		return newErrorMsg("SetColBounds", CodeData, fmt.Sprintf("column %d out of range", j))
	}
	p.cols[j] = b
	return nil
}

// ColBounds returns the bound of column j.
func (p *Problem) ColBounds(j int) Bound { return p.cols[j] }

// SetMatCol replaces column j of the constraint matrix. The index and
// value slices define the sparse column coefficients; zero values are
// dropped.
//
// Example:
//
//	p.SetMatCol(2, []int{0, 3}, []float64{1.5, -1})
//	// column 2 now has 1.5 in row 0 and -1 in row 3
func (p *Problem) SetMatCol(j int, rows []int, vals []float64) error {
	if j < 0 || j >= len(p.cols) {
		return newErrorMsg("SetMatCol", CodeData, fmt.Sprintf("column %d out of range", j))
	}
	if len(rows) != len(vals) {
		return newErrorMsg("SetMatCol", CodeData, "index and value must have same length")
	}
	col := make([]Nonzero, 0, len(rows))
	for k, i := range rows {
		if i < 0 || i >= len(p.rows) {
			return newErrorMsg("SetMatCol", CodeData, fmt.Sprintf("row %d out of range", i))
		}
		if vals[k] != 0.0 {
			col = append(col, Nonzero{Row: i, Col: j, Val: vals[k]})
		}
	}
	p.matrix[j] = col
	return nil
}

// MatCol returns a copy of the stored entries of column j.
func (p *Problem) MatCol(j int) []Nonzero {
	out := make([]Nonzero, len(p.matrix[j]))
	copy(out, p.matrix[j])
	return out
}

// SortMatrix orders the entries of every column by row and merges
// duplicate entries, keeping the last value.
func (p *Problem) SortMatrix() {
	for j, col := range p.matrix {
		p.matrix[j] = sortColumn(col)
	}
}

// AdvBasis installs a fresh starting basis: every auxiliary variable is
// basic and every structural variable is nonbasic at one of its finite
// bounds (zero when it is free).
func (p *Problem) AdvBasis() {
	m, n := len(p.rows), len(p.cols)
	p.stat = make([]BasisStatus, m+n)
	for i := 0; i < m; i++ {
		p.stat[i] = BasisStatusBasic
	}
	for j := 0; j < n; j++ {
		p.stat[m+j] = nonbasicStatus(p.cols[j])
	}
}

// Basis returns a copy of the current basis statuses: rows first, then
// columns. It returns nil when there is no basis.
func (p *Problem) Basis() []BasisStatus {
	if p.stat == nil {
		return nil
	}
	out := make([]BasisStatus, len(p.stat))
	copy(out, p.stat)
	return out
}

// SetBasis installs a basis given as row statuses followed by column
// statuses. The basis is only checked when Simplex runs.
func (p *Problem) SetBasis(stat []BasisStatus) {
	p.stat = make([]BasisStatus, len(stat))
	copy(p.stat, stat)
}

// Iterations returns the total number of simplex iterations performed on
// this problem, failed runs included.
func (p *Problem) Iterations() int { return p.iterations }

// AddIterations adds n iterations run by an external solver to the count.
func (p *Problem) AddIterations(n int) {
	if n > 0 {
		p.iterations += n
	}
}

// RowwiseMatrix returns the constraint matrix in compressed row form:
// the entries of row i are index[start[i]:start[i+1]], with start[m]
// equal to the number of entries. Columns keep their stored order within
// a row, so SortMatrix should run first when duplicates may exist.
func (p *Problem) RowwiseMatrix() (start, index []int, value []float64) {
	m := len(p.rows)
	start = make([]int, m+1)
	for _, col := range p.matrix {
		for _, nz := range col {
			start[nz.Row+1]++
		}
	}
	for i := 0; i < m; i++ {
		start[i+1] += start[i]
	}

	next := make([]int, m)
	copy(next, start[:m])
	index = make([]int, start[m])
	value = make([]float64, start[m])
	for j, col := range p.matrix {
		for _, nz := range col {
			k := next[nz.Row]
			index[k], value[k] = j, nz.Val
			next[nz.Row]++
		}
	}
	return start, index, value
}

// nonbasicStatus picks the bound a nonbasic variable sits on.
func nonbasicStatus(b Bound) BasisStatus {
	lo, up := b.Limits()
	switch {
	case !isInf(lo):
		return BasisStatusLower
	case !isInf(up):
		return BasisStatusUpper
	default:
		return BasisStatusZero
	}
}

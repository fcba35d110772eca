package lp

// Solution contains the results of a simplex run.
type Solution struct {
	// Status indicates the outcome of the run.
	Status Status

	// ColValues contains the primal value of each column (variable).
	ColValues []float64

	// ColDuals contains the reduced cost of each column.
	ColDuals []float64

	// RowValues contains the primal value of each row (constraint).
	RowValues []float64

	// RowDuals contains the dual value of each row: the rate at which the
	// objective changes when the active bound of the row moves.
	RowDuals []float64

	// ColBasis contains the basis status for each column.
	ColBasis []BasisStatus

	// RowBasis contains the basis status for each row.
	RowBasis []BasisStatus

	// Objective is the value of the objective function at the solution.
	Objective float64

	// Iterations is the number of simplex iterations of this run.
	Iterations int
}

// IsOptimal returns true if the solution is optimal.
func (s *Solution) IsOptimal() bool {
	return s.Status == StatusOptimal
}

// IsInfeasible returns true if the problem has no feasible solution.
func (s *Solution) IsInfeasible() bool {
	return s.Status == StatusNoFeasible
}

// IsUnbounded returns true if the objective is unbounded.
func (s *Solution) IsUnbounded() bool {
	return s.Status == StatusUnbounded
}

// Value returns the solution value for a column by index.
// Returns 0 if the index is out of range.
func (s *Solution) Value(index int) float64 {
	if index < 0 || index >= len(s.ColValues) {
		return 0
	}
	return s.ColValues[index]
}

// RowDual returns the dual value of a row by index.
// Returns 0 if the index is out of range.
func (s *Solution) RowDual(index int) float64 {
	if index < 0 || index >= len(s.RowDuals) {
		return 0
	}
	return s.RowDuals[index]
}

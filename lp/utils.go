package lp

import (
	"math"
	"sort"
)

// Inf returns positive infinity, suitable for unbounded variable bounds.
func Inf() float64 {
	return math.Inf(1)
}

// NegInf returns negative infinity, suitable for unbounded variable bounds.
func NegInf() float64 {
	return math.Inf(-1)
}

func isInf(v float64) bool {
	return math.IsInf(v, 0)
}

// sortColumn orders the entries of one column by row and merges
// duplicates, keeping the last value written.
func sortColumn(col []Nonzero) []Nonzero {
	if len(col) == 0 {
		return col
	}
	sorted := make([]Nonzero, len(col))
	copy(sorted, col)
	// stable, so that among duplicates the last written stays last
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Row < sorted[j].Row
	})

	filtered := sorted[:0]
	for _, n := range sorted {
		if len(filtered) > 0 && filtered[len(filtered)-1].Row == n.Row {
			filtered[len(filtered)-1].Val = n.Val
			continue
		}
		filtered = append(filtered, n)
	}
	return filtered
}

// tolerance scales an absolute tolerance by the magnitude of a bound.
func tolerance(tol, bound float64) float64 {
	if isInf(bound) {
		return tol
	}
	return tol * (1 + math.Abs(bound))
}

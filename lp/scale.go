package lp

import "math"

// scalePasses is the number of alternating row/column geometric mean passes.
const scalePasses = 4

// Scale computes row and column scale factors so that the scaled matrix
// entries R_i * a_ij * S_j are close to 1 in magnitude. Factors are rounded
// to powers of two so scaling introduces no rounding error. The scaled
// problem is only used internally by Simplex; every value reported in a
// Solution refers to the original problem.
func (p *Problem) Scale() {
	m, n := len(p.rows), len(p.cols)
	for i := range p.rowScale {
		p.rowScale[i] = 1
	}
	for j := range p.colScale {
		p.colScale[j] = 1
	}

	rowMin := make([]float64, m)
	rowMax := make([]float64, m)
	for pass := 0; pass < scalePasses; pass++ {
		for i := 0; i < m; i++ {
			rowMin[i], rowMax[i] = math.Inf(1), 0
		}
		for j := 0; j < n; j++ {
			for _, nz := range p.matrix[j] {
				v := math.Abs(nz.Val) * p.colScale[j]
				rowMin[nz.Row] = math.Min(rowMin[nz.Row], v)
				rowMax[nz.Row] = math.Max(rowMax[nz.Row], v)
			}
		}
		for i := 0; i < m; i++ {
			if rowMax[i] > 0 {
				p.rowScale[i] = 1 / math.Sqrt(rowMin[i]*rowMax[i])
			}
		}

		for j := 0; j < n; j++ {
			lo, hi := math.Inf(1), 0.0
			for _, nz := range p.matrix[j] {
				v := math.Abs(nz.Val) * p.rowScale[nz.Row]
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			if hi > 0 {
				p.colScale[j] = 1 / math.Sqrt(lo*hi)
			}
		}
	}

	for i := range p.rowScale {
		p.rowScale[i] = roundPow2(p.rowScale[i])
	}
	for j := range p.colScale {
		p.colScale[j] = roundPow2(p.colScale[j])
	}
}

// Unscale resets every scale factor to 1, so Simplex runs on the problem
// as stored.
func (p *Problem) Unscale() {
	for i := range p.rowScale {
		p.rowScale[i] = 1
	}
	for j := range p.colScale {
		p.colScale[j] = 1
	}
}

func roundPow2(v float64) float64 {
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 1
	}
	return math.Exp2(math.Round(math.Log2(v)))
}

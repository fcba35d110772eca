package oracle

import "math"

const (
	// RoundDenominator is the largest denominator a rounded value may have.
	RoundDenominator = 1000
	// RoundEps is the largest change rounding may make, relative to the
	// magnitude of the value.
	RoundEps = 1e-9
)

// roundTo snaps v to the nearest rational with denominator at most
// RoundDenominator when one lies within RoundEps, and returns v otherwise.
// Candidates are the continued fraction convergents of |v|.
func roundTo(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	x := math.Abs(v)
	tol := RoundEps * math.Max(1, x)

	// h/k run through the convergents, starting from 0/1 and 1/0
	h0, h1 := 0.0, 1.0
	k0, k1 := 1.0, 0.0
	r := x
	for i := 0; i < 64; i++ {
		a := math.Floor(r)
		h2, k2 := a*h1+h0, a*k1+k0
		if k2 > RoundDenominator {
			break
		}
		h0, h1, k0, k1 = h1, h2, k1, k2
		if math.Abs(x-h1/k1) <= tol {
			if h1 == 0 {
				return 0
			}
			return math.Copysign(h1/k1, v)
		}
		frac := r - a
		if frac < 1e-15 {
			break
		}
		r = 1 / frac
	}
	return v
}

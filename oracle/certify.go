package oracle

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Facet is a supporting hyperplane: the normal coefficients of the
// objectives followed by the offset. A point y is on its positive side
// when Normal·y + Offset >= 0.
type Facet []float64

// Normal returns the normal coefficients.
func (f Facet) Normal() []float64 { return f[:len(f)-1] }

// Offset returns the constant term.
func (f Facet) Offset() float64 { return f[len(f)-1] }

// Eval evaluates the facet at the homogeneous point q, whose last
// coordinate multiplies the offset.
func (f Facet) Eval(q []float64) float64 { return floats.Dot(f, q) }

// EvalPoint evaluates the facet at the finite point y.
func (f Facet) EvalPoint(y []float64) float64 {
	return floats.Dot(f.Normal(), y) + f.Offset()
}

// certifier turns the duals of the objective rows into a checked facet.
type certifier struct {
	interior []float64
	eps      float64
	round    bool
}

// facet normalizes the dual vector g, computes the offset from the
// boundary point interior - lambda*d, and checks that query is on the
// non-positive and the interior point on the positive side.
func (c certifier) facet(g, d, query []float64, lambda float64) (Facet, *Error) {
	n := len(g)
	s := floats.Norm(g, 1)
	if s < c.eps {
		return nil, &Error{Kind: KindNumerical, Op: "Ask", Msg: "numerical problem, facet all zero"}
	}

	f := make(Facet, n+1)
	floats.ScaleTo(f[:n], 1/s, g)
	if c.round {
		for i := range f[:n] {
			f[i] = roundTo(f[i])
		}
	}

	boundary := make([]float64, n)
	floats.AddScaledTo(boundary, c.interior, -lambda, d)
	f[n] = -floats.Dot(f[:n], boundary)
	if c.round {
		f[n] = roundTo(f[n])
	}

	if v := f.Eval(query); v > 0 {
		return nil, &Error{Kind: KindNumerical, Op: "Ask",
			Msg: fmt.Sprintf("numerical error: vertex is on the negative side (%g)", v)}
	}
	if v := f.EvalPoint(c.interior); v < c.eps {
		return nil, &Error{Kind: KindNumerical, Op: "Ask",
			Msg: fmt.Sprintf("initial point is on the negative side (%g) of the next facet", v)}
	}
	return f, nil
}

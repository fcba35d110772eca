package oracle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTo(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"third", 1.0 / 3.0, 1.0 / 3.0},
		{"near half", 0.5 + 1e-12, 0.5},
		{"negative", -0.25 - 1e-11, -0.25},
		{"above one", 2.5 + 1e-10, 2.5},
		{"tiny", 1e-12, 0},
		{"zero", 0, 0},
		{"pi", math.Pi, math.Pi},
		{"no small denominator", 0.1234567, 0.1234567},
		{"too far", 0.5 + 1e-6, 0.5 + 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundTo(tt.in))
		})
	}
}

func TestRoundToKeepsSpecialValues(t *testing.T) {
	assert.True(t, math.IsNaN(roundTo(math.NaN())))
	assert.True(t, math.IsInf(roundTo(math.Inf(-1)), -1))
}

func TestRoundToClearsNegativeZero(t *testing.T) {
	assert.False(t, math.Signbit(roundTo(math.Copysign(0, -1))))
	assert.False(t, math.Signbit(roundTo(-1e-12)))
}

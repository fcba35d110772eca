package vlp

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bartolsthoorn/vlporacle/lp"
)

// triangle is the polyhedron x >= 0, y >= 0, x + y <= 1 with the interior
// point (0.3, 0.3).
const triangle = `c triangle
c   x >= 0, y >= 0, x + y <= 1
p vlp min 2 2 4 2 2
j 1 l 0
j 2 l 0
i 1 u 1
i 2 l 0
a 1 1 1
a 1 2 1
a 2 1 1
a 2 2 1
o 1 1 1
o 2 2 1
x 1 0.3
x 2 0.3
e
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "problem.vlp")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTriangle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	in, err := Load(writeFile(t, triangle), WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, 2, in.Rows)
	assert.Equal(t, 2, in.Cols)
	assert.Equal(t, 2, in.Objs)
	assert.False(t, in.Maximize)
	assert.Equal(t, "min", in.Direction())
	assert.Equal(t, []lp.Bound{lp.UpperBound(1), lp.LowerBound(0)}, in.RowBounds)
	assert.Equal(t, []lp.Bound{lp.LowerBound(0), lp.LowerBound(0)}, in.ColBounds)
	assert.Equal(t, []float64{0.3, 0.3}, in.Interior)
	assert.Equal(t, map[Cell]float64{
		{0, 0}: 1, {0, 1}: 1,
		{1, 0}: 1, {1, 1}: 1,
		{2, 0}: 1, {3, 1}: 1,
	}, in.Matrix)
	assert.Equal(t, []string{"triangle", "x >= 0, y >= 0, x + y <= 1"}, in.Comments)

	assert.Equal(t, 2, logs.FilterMessage("vlp comment").Len())
	assert.Equal(t, 1, logs.FilterMessage("vlp problem loaded").Len())
}

func TestReadNormalizesLines(t *testing.T) {
	src := "\n  P  VLP   MAX 2\t2 0 1 0\r\n\nJ 1 D -1 2\nj 2 f\nI 2 S 3\nO 1 2 4\nX 1 1\n"
	in, err := Read(strings.NewReader(src))
	require.NoError(t, err)

	assert.True(t, in.Maximize)
	assert.Equal(t, lp.DoubleBound(-1, 2), in.ColBounds[0])
	assert.Equal(t, lp.FreeBound(), in.ColBounds[1])
	assert.Equal(t, lp.FreeBound(), in.RowBounds[0])
	assert.Equal(t, lp.FixedBound(3), in.RowBounds[1])
	// objective coefficients of a max problem are negated
	assert.Equal(t, -4.0, in.Matrix[Cell{Row: in.ObjRow(0), Col: 1}])
}

func TestReadDefaults(t *testing.T) {
	in, err := Read(strings.NewReader("p vlp min 2 3 0 1 0\nx 1 1\n"))
	require.NoError(t, err)
	assert.Equal(t, lp.FreeBound(), in.RowBounds[1])
	assert.Equal(t, lp.FixedBound(0), in.ColBounds[2])
	assert.Empty(t, in.Matrix)
}

func TestReadLastEntryWins(t *testing.T) {
	src := "p vlp min 2 2 0 1 0\na 1 1 5\na 1 1 7\no 1 2 1\no 1 2 0\nx 1 1\n"
	in, err := Read(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 7.0, in.Matrix[Cell{0, 0}])
	assert.Equal(t, 0.0, in.Matrix[Cell{in.ObjRow(0), 1}])
}

func TestReadContinuesAfterEnd(t *testing.T) {
	// entries after e still apply
	src := "p vlp min 2 2 0 1 0\ne\nx 1 1\ne\n"
	in, err := Read(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, in.Interior)

	// and malformed ones still fail
	src = "p vlp min 2 2 0 1 0\nx 1 1\ne\nthis is not a vlp line\n"
	_, err = Read(strings.NewReader(src))
	assert.ErrorIs(t, err, ErrFormat)
	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 4, le.Line)
	assert.Equal(t, "unknown line", le.Msg)
}

func TestReadCommentsAfterProblemLine(t *testing.T) {
	src := "p vlp min 2 2 0 1 0\nc not echoed\nx 1 1\n"
	in, err := Read(strings.NewReader(src))
	require.NoError(t, err)
	assert.Empty(t, in.Comments)
}

func TestReadFormatErrors(t *testing.T) {
	const head = "p vlp min 2 2 0 1 0\n"
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"a before p", "c hello\na 1 1 1\n" + head, 2, "a line before p"},
		{"j before p", "j 1 f\n", 1, "j line before p"},
		{"second p", head + head, 2, "second p line"},
		{"bad direction", "p vlp mid 2 2 0 1 0\n", 1, "wrong p line"},
		{"short p", "p vlp min 2 2 0 1\n", 1, "wrong p line"},
		{"one row", "p vlp min 1 2 0 1 0\n", 1, "wrong p line"},
		{"no objective", "p vlp min 2 2 0 0 0\n", 1, "wrong p line"},
		{"unknown prefix", head + "q 1 2\n", 2, "unknown line"},
		{"free with value", head + "j 1 f 1\n", 2, "wrong j line"},
		{"lower without value", head + "i 1 l\n", 2, "wrong i line"},
		{"double with one value", head + "j 1 d 1\n", 2, "wrong j line"},
		{"unknown kind", head + "j 1 z 1\n", 2, "wrong j line"},
		{"column out of range", head + "j 3 f\n", 2, "wrong j line"},
		{"row out of range", head + "a 3 1 1\n", 2, "wrong a line"},
		{"zero index", head + "a 0 1 1\n", 2, "wrong a line"},
		{"objective out of range", head + "o 2 1 1\n", 2, "wrong o line"},
		{"bad number", head + "a 1 1 one\n", 2, "wrong a line"},
		{"interior out of range", head + "x 2 1\n", 2, "wrong x line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Read(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Nil(t, in)
			assert.True(t, errors.Is(err, ErrFormat))

			var le *LineError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.line, le.Line)
			assert.Equal(t, tt.msg, le.Msg)
		})
	}
}

func TestReadNoProblemLine(t *testing.T) {
	_, err := Read(strings.NewReader("c only a comment\n"))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadInteriorNotPositive(t *testing.T) {
	src := "p vlp min 2 2 0 2 0\nx 1 1\n"
	_, err := Read(strings.NewReader(src))
	assert.ErrorIs(t, err, ErrInterior)
	assert.Contains(t, err.Error(), "initial value[2]=0")

	src = "p vlp min 2 2 0 1 0\nx 1 0.001\n"
	_, err = Read(strings.NewReader(src), WithEpsilon(0.01))
	assert.ErrorIs(t, err, ErrInterior)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.vlp"))
	assert.ErrorIs(t, err, ErrOpen)
}

func TestLineErrorMessage(t *testing.T) {
	path := writeFile(t, "a 1 1 1\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, "vlp: "+path+":1: a line before p\n   a 1 1 1", err.Error())
}

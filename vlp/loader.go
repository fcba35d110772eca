// Package vlp reads the vlp text format describing a multi-objective
// linear program:
//
//	c <comment>
//	p vlp min|max <rows> <cols> <nz> <objs> <nz>
//	j <col> f | l <v> | u <v> | s <v> | d <lo> <up>
//	i <row> f | l <v> | u <v> | s <v> | d <lo> <up>
//	a <row> <col> <value>
//	o <obj> <col> <value>
//	x <obj> <value>
//	e
//
// Lines are read case-insensitively with runs of white space merged.
// Indices in the file are 1-based; everything in an Instance is 0-based.
package vlp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/vlporacle/lp"
)

// DefaultEpsilon is the default lower limit of interior point coordinates.
const DefaultEpsilon = 1e-8

// maxDim bounds rows+objs and cols+1 of a loadable problem.
const maxDim = 1 << 26

// Cell addresses one entry of the combined constraint and objective matrix.
type Cell struct {
	Row int
	Col int
}

// Instance is a parsed vlp problem.
type Instance struct {
	Rows int // number of constraint rows
	Cols int // number of columns
	Objs int // number of objectives

	// Maximize is set for a "max" problem. Objective coefficients in
	// Matrix are already negated in that case.
	Maximize bool

	// RowBounds and ColBounds default to free rows and columns fixed at
	// zero, as lines without an i or j entry leave them.
	RowBounds []lp.Bound
	ColBounds []lp.Bound

	// Matrix holds constraint coefficients in rows 0..Rows-1 and the
	// coefficients of objective k in row Rows+k.
	Matrix map[Cell]float64

	// Interior is the interior point, one coordinate per objective.
	Interior []float64

	// Comments holds the comment lines seen before the problem line.
	Comments []string
}

// ObjRow returns the matrix row of objective k.
func (in *Instance) ObjRow(k int) int { return in.Rows + k }

// Direction returns "min" or "max".
func (in *Instance) Direction() string {
	if in.Maximize {
		return "max"
	}
	return "min"
}

// Option configures Load and Read.
type Option func(*loadConfig)

type loadConfig struct {
	logger *zap.Logger
	eps    float64
}

// WithLogger sets the logger receiving comment lines and load summaries.
func WithLogger(l *zap.Logger) Option {
	return func(c *loadConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEpsilon sets the lower limit every interior point coordinate must
// reach. Non-positive values keep DefaultEpsilon.
func WithEpsilon(eps float64) Option {
	return func(c *loadConfig) {
		if eps > 0 {
			c.eps = eps
		}
	}
}

// Load reads a vlp file.
func Load(path string, opts ...Option) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrOpen, path, err)
	}
	defer f.Close()
	return read(f, path, opts)
}

// Read reads a vlp problem from r.
func Read(r io.Reader, opts ...Option) (*Instance, error) {
	return read(r, "", opts)
}

func read(r io.Reader, path string, opts []Option) (*Instance, error) {
	cfg := &loadConfig{logger: zap.NewNop(), eps: DefaultEpsilon}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &parser{path: path, log: cfg.logger}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		p.lineNo++
		fields := normalize(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if err := p.line(fields); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrOpen, path, err)
	}

	in := p.in
	if in == nil {
		return nil, fmt.Errorf("%w: no 'p' line in %s", ErrFormat, nameOf(path))
	}
	for k, v := range in.Interior {
		if !(v >= cfg.eps) {
			return nil, fmt.Errorf("%w: initial value[%d]=%g not positive", ErrInterior, k+1, v)
		}
	}

	cfg.logger.Debug("vlp problem loaded",
		zap.String("file", nameOf(path)),
		zap.String("direction", in.Direction()),
		zap.Int("rows", in.Rows),
		zap.Int("cols", in.Cols),
		zap.Int("objs", in.Objs),
		zap.Int("nonzeros", len(in.Matrix)),
	)
	return in, nil
}

// normalize lowercases a line, drops control characters and splits it
// at white space.
func normalize(line string) []string {
	line = strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r < ' ' || r > '~':
			return -1
		case 'A' <= r && r <= 'Z':
			return r + 'a' - 'A'
		}
		return r
	}, line)
	return strings.Fields(line)
}

func nameOf(path string) string {
	if path == "" {
		return "<input>"
	}
	return path
}

type parser struct {
	path   string
	log    *zap.Logger
	lineNo int
	fields []string

	in       *Instance
	dir      float64
	comments []string
}

func (p *parser) fail(format string, args ...any) error {
	return &LineError{
		Path: p.path,
		Line: p.lineNo,
		Text: strings.Join(p.fields, " "),
		Msg:  fmt.Sprintf(format, args...),
	}
}

// line handles one normalized line. The end marker is accepted anywhere
// and does not stop reading.
func (p *parser) line(fields []string) error {
	p.fields = fields
	kind := fields[0][0]
	switch kind {
	case 'c':
		if p.in == nil {
			text := strings.TrimSpace(strings.Join(fields, " ")[1:])
			if text != "" {
				p.log.Warn("vlp comment", zap.String("comment", text))
				p.comments = append(p.comments, text)
			}
		}
		return nil
	case 'e':
		return nil
	case 'p':
		return p.problem()
	case 'j', 'i', 'a', 'o', 'x':
		if p.in == nil {
			return p.fail("%c line before p", kind)
		}
	default:
		return p.fail("unknown line")
	}

	switch kind {
	case 'j':
		j, b, err := p.bound(p.in.Cols)
		if err != nil {
			return err
		}
		p.in.ColBounds[j] = b
	case 'i':
		i, b, err := p.bound(p.in.Rows)
		if err != nil {
			return err
		}
		p.in.RowBounds[i] = b
	case 'a':
		i, j, v, err := p.entry(p.in.Rows)
		if err != nil {
			return err
		}
		p.in.Matrix[Cell{Row: i, Col: j}] = v
	case 'o':
		k, j, v, err := p.entry(p.in.Objs)
		if err != nil {
			return err
		}
		p.in.Matrix[Cell{Row: p.in.ObjRow(k), Col: j}] = p.dir * v
	case 'x':
		if len(fields) != 3 {
			return p.fail("wrong x line")
		}
		k, ok := p.index(fields[1], p.in.Objs)
		v, vok := p.number(fields[2])
		if !ok || !vok {
			return p.fail("wrong x line")
		}
		p.in.Interior[k] = v
	}
	return nil
}

// problem parses "p [vlp] min|max rows cols nz objs nz".
func (p *parser) problem() error {
	if p.in != nil {
		return p.fail("second p line")
	}
	args := p.fields[1:]
	if len(args) > 0 && args[0] == "vlp" {
		args = args[1:]
	}
	if len(args) != 6 || (args[0] != "min" && args[0] != "max") {
		return p.fail("wrong p line")
	}
	var dims [5]int
	for n, s := range args[1:] {
		v, err := strconv.Atoi(s)
		if err != nil {
			return p.fail("wrong p line")
		}
		dims[n] = v
	}
	rows, cols, objs := dims[0], dims[1], dims[3]
	if rows <= 1 || cols <= 1 || objs < 1 {
		return p.fail("wrong p line")
	}
	if rows+objs > maxDim || cols+1 > maxDim {
		return fmt.Errorf("%w: %d rows, %d columns, %d objectives", ErrTooLarge, rows, cols, objs)
	}

	in := &Instance{
		Rows:      rows,
		Cols:      cols,
		Objs:      objs,
		Maximize:  args[0] == "max",
		RowBounds: make([]lp.Bound, rows),
		ColBounds: make([]lp.Bound, cols),
		Matrix:    make(map[Cell]float64),
		Interior:  make([]float64, objs),
		Comments:  p.comments,
	}
	for i := range in.RowBounds {
		in.RowBounds[i] = lp.FreeBound()
	}
	for j := range in.ColBounds {
		in.ColBounds[j] = lp.FixedBound(0)
	}
	p.dir = 1
	if in.Maximize {
		p.dir = -1
	}
	p.in = in
	return nil
}

// bound parses "j|i <idx> <kind> [v1 [v2]]".
func (p *parser) bound(limit int) (int, lp.Bound, error) {
	f := p.fields
	wrong := func() (int, lp.Bound, error) {
		return 0, lp.Bound{}, p.fail("wrong %c line", f[0][0])
	}
	if len(f) < 3 || len(f[2]) != 1 {
		return wrong()
	}
	idx, ok := p.index(f[1], limit)
	if !ok {
		return wrong()
	}
	vals := make([]float64, 0, 2)
	for _, s := range f[3:] {
		v, ok := p.number(s)
		if !ok {
			return wrong()
		}
		vals = append(vals, v)
	}

	var b lp.Bound
	switch {
	case f[2] == "f" && len(vals) == 0:
		b = lp.FreeBound()
	case f[2] == "l" && len(vals) == 1:
		b = lp.LowerBound(vals[0])
	case f[2] == "u" && len(vals) == 1:
		b = lp.UpperBound(vals[0])
	case f[2] == "s" && len(vals) == 1:
		b = lp.FixedBound(vals[0])
	case f[2] == "d" && len(vals) == 2:
		b = lp.DoubleBound(vals[0], vals[1])
	default:
		return wrong()
	}
	return idx, b, nil
}

// entry parses "a|o <idx> <col> <value>".
func (p *parser) entry(limit int) (int, int, float64, error) {
	f := p.fields
	if len(f) != 4 {
		return 0, 0, 0, p.fail("wrong %c line", f[0][0])
	}
	i, iok := p.index(f[1], limit)
	j, jok := p.index(f[2], p.in.Cols)
	v, vok := p.number(f[3])
	if !iok || !jok || !vok {
		return 0, 0, 0, p.fail("wrong %c line", f[0][0])
	}
	return i, j, v, nil
}

// index parses a 1-based index in 1..limit and returns it 0-based.
func (p *parser) index(s string, limit int) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > limit {
		return 0, false
	}
	return v - 1, true
}

func (p *parser) number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

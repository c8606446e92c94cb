package shape

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// dlib marks special float values with reserved exponents.
const (
	expInf  = 32000
	expNInf = 32001
	expNaN  = 32002
)

// maxPrealloc bounds up-front allocations sized by lengths read from the
// stream; longer sequences grow as they are read.
const maxPrealloc = 1 << 16

var (
	ErrCorrupt            = errors.New("corrupt shape predictor data")
	ErrUnsupportedVersion = errors.New("unsupported shape predictor version")
)

// reader decodes the dlib portable serialization format.
type reader struct {
	r *bufio.Reader
}

func newReader(r io.Reader) *reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &reader{r: br}
	}
	return &reader{r: bufio.NewReaderSize(r, 1<<20)}
}

// readInt reads a variable-length integer: one control byte (0x80 = negative,
// low nibble = byte count) followed by little-endian magnitude bytes.
func (d *reader) readInt() (int64, error) {
	ctrl, err := d.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: read int control byte: %v", ErrCorrupt, err)
	}
	negative := ctrl&0x80 != 0
	size := int(ctrl & 0x0F)
	if size == 0 || size > 8 {
		return 0, fmt.Errorf("%w: invalid int size %d", ErrCorrupt, size)
	}

	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:size]); err != nil {
		return 0, fmt.Errorf("%w: read int body: %v", ErrCorrupt, err)
	}

	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	if negative {
		return -int64(v), nil
	}
	return int64(v), nil
}

func (d *reader) readUint() (int, error) {
	v, err := d.readInt()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: unsigned value out of range: %d", ErrCorrupt, v)
	}
	return int(v), nil
}

// readFloat reads either the binary (mantissa, exponent) encoding or the legacy
// ASCII encoding, depending on the first byte.
func (d *reader) readFloat() (float32, error) {
	peek, err := d.r.Peek(1)
	if err != nil {
		return 0, fmt.Errorf("%w: read float: %v", ErrCorrupt, err)
	}
	if peek[0]&0x70 != 0 {
		return d.readASCIIFloat()
	}

	mantissa, err := d.readInt()
	if err != nil {
		return 0, err
	}
	exponent, err := d.readInt()
	if err != nil {
		return 0, err
	}

	switch exponent {
	case expInf:
		return float32(math.Inf(1)), nil
	case expNInf:
		return float32(math.Inf(-1)), nil
	case expNaN:
		return float32(math.NaN()), nil
	}
	if exponent < math.MinInt16 || exponent > math.MaxInt16 {
		return 0, fmt.Errorf("%w: float exponent out of range: %d", ErrCorrupt, exponent)
	}
	return float32(math.Ldexp(float64(mantissa), int(exponent))), nil
}

func (d *reader) readASCIIFloat() (float32, error) {
	token, err := d.r.ReadString(' ')
	if err != nil {
		return 0, fmt.Errorf("%w: read ascii float: %v", ErrCorrupt, err)
	}
	token = token[:len(token)-1]

	switch token {
	case "inf":
		return float32(math.Inf(1)), nil
	case "ninf", "-inf":
		return float32(math.Inf(-1)), nil
	case "nan":
		return float32(math.NaN()), nil
	}
	v, err := strconv.ParseFloat(token, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: parse ascii float %q: %v", ErrCorrupt, token, err)
	}
	return float32(v), nil
}

// readColumn reads a column vector (matrix<float,0,1>).
func (d *reader) readColumn() ([]float32, error) {
	rows, err := d.readInt()
	if err != nil {
		return nil, err
	}
	cols, err := d.readInt()
	if err != nil {
		return nil, err
	}
	// negative dimensions mark the newer matrix format
	if rows < 0 || cols < 0 {
		rows, cols = -rows, -cols
	}
	n := rows * cols
	if cols != 1 && n != 0 {
		return nil, fmt.Errorf("%w: expected column vector, got %dx%d", ErrCorrupt, rows, cols)
	}
	if rows > math.MaxInt32 {
		return nil, fmt.Errorf("%w: column too long: %d", ErrCorrupt, rows)
	}

	// grow while reading so a corrupt length fails on EOF, not on allocation
	v := make([]float32, 0, min(n, maxPrealloc))
	for i := int64(0); i < n; i++ {
		f, err := d.readFloat()
		if err != nil {
			return nil, err
		}
		v = append(v, f)
	}
	return v, nil
}

func (d *reader) readLength() (int, error) {
	n, err := d.readUint()
	if err != nil {
		return 0, fmt.Errorf("read length: %w", err)
	}
	return n, nil
}

func (d *reader) readTree(shapeLen int) (Tree, error) {
	n, err := d.readLength()
	if err != nil {
		return Tree{}, err
	}
	splits := make([]Split, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		var s Split
		if s.Idx1, err = d.readUint(); err != nil {
			return Tree{}, err
		}
		if s.Idx2, err = d.readUint(); err != nil {
			return Tree{}, err
		}
		if s.Thresh, err = d.readFloat(); err != nil {
			return Tree{}, err
		}
		splits = append(splits, s)
	}

	n, err = d.readLength()
	if err != nil {
		return Tree{}, err
	}
	leaves := make([][]float32, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		leaf, err := d.readColumn()
		if err != nil {
			return Tree{}, err
		}
		if len(leaf) != shapeLen {
			return Tree{}, fmt.Errorf("%w: leaf has %d values, shape has %d", ErrCorrupt, len(leaf), shapeLen)
		}
		leaves = append(leaves, leaf)
	}

	return Tree{Splits: splits, Leaves: leaves}, nil
}

// Decode reads a serialized dlib shape_predictor.
func Decode(r io.Reader) (*Predictor, error) {
	d := newReader(r)

	version, err := d.readInt()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	initial, err := d.readColumn()
	if err != nil {
		return nil, fmt.Errorf("read initial shape: %w", err)
	}

	numLevels, err := d.readLength()
	if err != nil {
		return nil, err
	}
	levels := make([]Level, 0, min(numLevels, maxPrealloc))
	for i := 0; i < numLevels; i++ {
		numTrees, err := d.readLength()
		if err != nil {
			return nil, err
		}
		forest := make([]Tree, 0, min(numTrees, maxPrealloc))
		for j := 0; j < numTrees; j++ {
			t, err := d.readTree(len(initial))
			if err != nil {
				return nil, fmt.Errorf("level %d tree %d: %w", i, j, err)
			}
			forest = append(forest, t)
		}
		levels = append(levels, Level{Forest: forest})
	}

	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	if n != numLevels {
		return nil, fmt.Errorf("%w: %d anchor sets for %d levels", ErrCorrupt, n, numLevels)
	}
	for i := range levels {
		count, err := d.readLength()
		if err != nil {
			return nil, err
		}
		levels[i].Anchors = make([]int, 0, min(count, maxPrealloc))
		for j := 0; j < count; j++ {
			a, err := d.readUint()
			if err != nil {
				return nil, err
			}
			levels[i].Anchors = append(levels[i].Anchors, a)
		}
	}

	n, err = d.readLength()
	if err != nil {
		return nil, err
	}
	if n != numLevels {
		return nil, fmt.Errorf("%w: %d delta sets for %d levels", ErrCorrupt, n, numLevels)
	}
	for i := range levels {
		count, err := d.readLength()
		if err != nil {
			return nil, err
		}
		levels[i].Deltas = make([]Vec, 0, min(count, maxPrealloc))
		for j := 0; j < count; j++ {
			var v Vec
			if v.X, err = d.readFloat(); err != nil {
				return nil, err
			}
			if v.Y, err = d.readFloat(); err != nil {
				return nil, err
			}
			levels[i].Deltas = append(levels[i].Deltas, v)
		}
	}

	return New(initial, levels)
}

// writer is the inverse of reader; it always emits the binary float format.
type writer struct {
	w   *bufio.Writer
	err error
}

func (e *writer) writeInt(v int64) {
	if e.err != nil {
		return
	}
	var ctrl byte
	u := uint64(v)
	if v < 0 {
		ctrl = 0x80
		u = uint64(-v)
	}
	var buf [9]byte
	size := 0
	for {
		size++
		buf[size] = byte(u)
		u >>= 8
		if u == 0 {
			break
		}
	}
	buf[0] = ctrl | byte(size)
	_, e.err = e.w.Write(buf[:size+1])
}

func (e *writer) writeFloat(f float32) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		e.writeInt(0)
		e.writeInt(expNaN)
		return
	case math.IsInf(v, 1):
		e.writeInt(0)
		e.writeInt(expInf)
		return
	case math.IsInf(v, -1):
		e.writeInt(0)
		e.writeInt(expNInf)
		return
	}
	frac, exp := math.Frexp(v)
	// float32 has a 24-bit significand
	mantissa := int64(frac * (1 << 24))
	e.writeInt(mantissa)
	e.writeInt(int64(exp - 24))
}

func (e *writer) writeColumn(v []float32) {
	e.writeInt(-int64(len(v)))
	e.writeInt(-1)
	for _, f := range v {
		e.writeFloat(f)
	}
}

// Encode writes p in the dlib shape_predictor format accepted by Decode.
func Encode(w io.Writer, p *Predictor) error {
	e := &writer{w: bufio.NewWriter(w)}

	e.writeInt(1)
	e.writeColumn(p.initialShape)

	e.writeInt(int64(len(p.levels)))
	for _, level := range p.levels {
		e.writeInt(int64(len(level.Forest)))
		for _, t := range level.Forest {
			e.writeInt(int64(len(t.Splits)))
			for _, s := range t.Splits {
				e.writeInt(int64(s.Idx1))
				e.writeInt(int64(s.Idx2))
				e.writeFloat(s.Thresh)
			}
			e.writeInt(int64(len(t.Leaves)))
			for _, leaf := range t.Leaves {
				e.writeColumn(leaf)
			}
		}
	}

	e.writeInt(int64(len(p.levels)))
	for _, level := range p.levels {
		e.writeInt(int64(len(level.Anchors)))
		for _, a := range level.Anchors {
			e.writeInt(int64(a))
		}
	}

	e.writeInt(int64(len(p.levels)))
	for _, level := range p.levels {
		e.writeInt(int64(len(level.Deltas)))
		for _, d := range level.Deltas {
			e.writeFloat(d.X)
			e.writeFloat(d.Y)
		}
	}

	if e.err != nil {
		return fmt.Errorf("encode shape predictor: %w", e.err)
	}
	return e.w.Flush()
}

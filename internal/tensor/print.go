package tensor

import (
	"encoding/binary"
	"io"
	"strconv"
	"strings"
)

// Fprint writes the elements of a to w in nested-bracket form, one line per
// innermost row. Every element is right-aligned to the widest one, and
// sub-arrays of rank r are separated by r-1 blank lines.
func (a *Array) Fprint(w io.Writer) error {
	s, err := a.Sprint()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s+"\n")
	return err
}

// Sprint returns the text Fprint writes, without the trailing newline.
func (a *Array) Sprint() (string, error) {
	if err := a.Validate(); err != nil {
		return "", wrapOp("print", err)
	}
	elems := make([]string, 0, a.size)
	a.walk(0, a.offset, func(off int) {
		elems = append(elems, formatElem(a.buf[off:off+a.dtype.Size()], a.dtype))
	})
	width := 0
	for _, e := range elems {
		width = max(width, len(e))
	}

	p := printer{shape: a.shape, elems: elems, width: width}
	p.layout(0)
	return p.sb.String(), nil
}

// walk visits the byte offset of every element in row-major order.
func (a *Array) walk(dim, off int, visit func(int)) {
	for i := 0; i < a.shape[dim]; i++ {
		if dim == len(a.shape)-1 {
			visit(off)
		} else {
			a.walk(dim+1, off, visit)
		}
		off += a.strides[dim]
	}
}

type printer struct {
	sb    strings.Builder
	shape Shape
	elems []string
	width int
	next  int
}

func (p *printer) layout(dim int) {
	last := len(p.shape) - 1
	p.sb.WriteByte('[')
	for i := 0; i < p.shape[dim]; i++ {
		if dim == last {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			e := p.elems[p.next]
			p.next++
			p.sb.WriteString(strings.Repeat(" ", p.width-len(e)))
			p.sb.WriteString(e)
			continue
		}
		if i > 0 {
			p.sb.WriteByte(',')
			p.sb.WriteString(strings.Repeat("\n", last-dim))
			p.sb.WriteString(strings.Repeat(" ", dim+1))
		}
		p.layout(dim + 1)
	}
	p.sb.WriteByte(']')
}

// formatElem renders integers exactly and floats with six significant digits.
func formatElem(b []byte, dtype DataType) string {
	switch dtype {
	case Int8:
		return strconv.FormatInt(int64(int8(b[0])), 10)
	case Int16:
		return strconv.FormatInt(int64(int16(binary.NativeEndian.Uint16(b))), 10)
	case Int32:
		return strconv.FormatInt(int64(int32(binary.NativeEndian.Uint32(b))), 10)
	case Int64:
		return strconv.FormatInt(int64(binary.NativeEndian.Uint64(b)), 10)
	case Uint8:
		return strconv.FormatUint(uint64(b[0]), 10)
	case Uint16:
		return strconv.FormatUint(uint64(binary.NativeEndian.Uint16(b)), 10)
	case Uint32:
		return strconv.FormatUint(uint64(binary.NativeEndian.Uint32(b)), 10)
	case Uint64:
		return strconv.FormatUint(binary.NativeEndian.Uint64(b), 10)
	case Float32:
		return strconv.FormatFloat(loadFloat(b, dtype), 'g', 6, 32)
	default:
		return strconv.FormatFloat(loadFloat(b, dtype), 'g', 6, 64)
	}
}

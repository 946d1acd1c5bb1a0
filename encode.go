package bipf

import (
	"encoding/binary"
	"math"
)

// encoder runs the two encoding passes. measure records the body length of
// every container in pre-order; write consumes them in the same order, so
// nested bodies are measured once.
type encoder struct {
	opt   Options
	sizes []int
	next  int
}

// measure returns the framed size of v. With record set, container body
// lengths are appended to e.sizes.
func (e *encoder) measure(v Value, depth int, record bool) (int, error) {
	var body int
	switch v.kind {
	case KindNull:
		body = 0
	case KindBool:
		body = 1
	case KindInt:
		w, err := e.opt.intLayout(int64(v.num))
		if err != nil {
			return 0, err
		}
		if w == 0 {
			return TagSize(8, TypeDouble) + 8, nil
		}
		body = w
	case KindDouble:
		body = 8
	case KindString:
		body = len(v.str)
	case KindBuffer:
		body = len(v.bin)
	case KindArray, KindObject:
		if depth >= e.opt.maxDepth() {
			return 0, valueErrf(ErrTooDeep, "more than %d levels", e.opt.maxDepth())
		}
		slot := -1
		if record {
			slot = len(e.sizes)
			e.sizes = append(e.sizes, 0)
		}
		if v.kind == KindArray {
			for _, item := range v.items {
				n, err := e.measure(item, depth+1, record)
				if err != nil {
					return 0, err
				}
				body += n
			}
		} else {
			for i, f := range v.fields {
				if k := f.Key.kind; k != KindString && k != KindBuffer {
					return 0, valueErrf(ErrInvalidKey, "field %d has a %v key", i, k)
				}
				n, err := e.measure(f.Key, depth+1, record)
				if err != nil {
					return 0, err
				}
				body += n
				n, err = e.measure(f.Value, depth+1, record)
				if err != nil {
					return 0, err
				}
				body += n
			}
		}
		if record {
			e.sizes[slot] = body
		}
	default:
		return 0, valueErrf(ErrUnsupportedValue, "invalid kind %v", v.kind)
	}
	return TagSize(body, v.kind.Type()) + body, nil
}

// write encodes v at buf[off:], which the caller has sized using measure.
func (e *encoder) write(buf []byte, off int, v Value) int {
	switch v.kind {
	case KindNull:
		off += binary.PutUvarint(buf[off:], packTag(0, TypeBoolNull))
	case KindBool:
		off += binary.PutUvarint(buf[off:], packTag(1, TypeBoolNull))
		buf[off] = byte(v.num)
		off++
	case KindInt:
		w, _ := e.opt.intLayout(int64(v.num))
		if w == 0 {
			off += binary.PutUvarint(buf[off:], packTag(8, TypeDouble))
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(float64(int64(v.num))))
			off += 8
			break
		}
		off += binary.PutUvarint(buf[off:], packTag(w, TypeInt))
		putIntLE(buf[off:], int64(v.num), w)
		off += w
	case KindDouble:
		off += binary.PutUvarint(buf[off:], packTag(8, TypeDouble))
		binary.LittleEndian.PutUint64(buf[off:], v.num)
		off += 8
	case KindString:
		off += binary.PutUvarint(buf[off:], packTag(len(v.str), TypeString))
		off += copy(buf[off:], v.str)
	case KindBuffer:
		off += binary.PutUvarint(buf[off:], packTag(len(v.bin), TypeBuffer))
		off += copy(buf[off:], v.bin)
	case KindArray:
		body := e.sizes[e.next]
		e.next++
		off += binary.PutUvarint(buf[off:], packTag(body, TypeArray))
		for _, item := range v.items {
			off = e.write(buf, off, item)
		}
	case KindObject:
		body := e.sizes[e.next]
		e.next++
		off += binary.PutUvarint(buf[off:], packTag(body, TypeObject))
		for _, f := range v.fields {
			off = e.write(buf, off, f.Key)
			off = e.write(buf, off, f.Value)
		}
	}
	return off
}

// SizeOf returns the number of bytes Encode writes for v. It does not
// validate v; values that Encode rejects report the size they would have
// if they were valid.
func (o Options) SizeOf(v Value) int {
	var body int
	switch v.kind {
	case KindBool:
		body = 1
	case KindInt:
		w, err := o.intLayout(int64(v.num))
		if err != nil {
			w = 4
		} else if w == 0 {
			return TagSize(8, TypeDouble) + 8
		}
		body = w
	case KindDouble:
		body = 8
	case KindString:
		body = len(v.str)
	case KindBuffer:
		body = len(v.bin)
	case KindArray:
		for _, item := range v.items {
			body += o.SizeOf(item)
		}
	case KindObject:
		for _, f := range v.fields {
			body += o.SizeOf(f.Key) + o.SizeOf(f.Value)
		}
	}
	return TagSize(body, v.kind.Type()) + body
}

// Encode writes v at buf[off:] and returns the offset just past it. If the
// value does not fit, it fails with ErrBufferTooSmall and writes nothing.
func (o Options) Encode(v Value, buf []byte, off int) (int, error) {
	e := getEncoder(o)
	defer releaseEncoder(e)
	n, err := e.measure(v, 0, true)
	if err != nil {
		return off, err
	}
	if off < 0 || off > len(buf) || len(buf)-off < n {
		return off, valueErrf(ErrBufferTooSmall, "need %d bytes at offset %d, buffer has %d", n, off, len(buf))
	}
	return e.write(buf, off, v), nil
}

// Append appends the encoding of v to buf.
func (o Options) Append(buf []byte, v Value) ([]byte, error) {
	e := getEncoder(o)
	defer releaseEncoder(e)
	n, err := e.measure(v, 0, true)
	if err != nil {
		return buf, err
	}
	off, buf := grow(buf, n)
	e.write(buf, off, v)
	return buf, nil
}

// AllocAndEncode returns a new buffer of exactly SizeOf(v) bytes holding v.
func (o Options) AllocAndEncode(v Value) ([]byte, error) {
	e := getEncoder(o)
	defer releaseEncoder(e)
	n, err := e.measure(v, 0, true)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	e.write(buf, 0, v)
	return buf, nil
}

func SizeOf(v Value) int {
	return DefaultOptions.SizeOf(v)
}

func Encode(v Value, buf []byte, off int) (int, error) {
	return DefaultOptions.Encode(v, buf, off)
}

func Append(buf []byte, v Value) ([]byte, error) {
	return DefaultOptions.Append(buf, v)
}

func AllocAndEncode(v Value) ([]byte, error) {
	return DefaultOptions.AllocAndEncode(v)
}

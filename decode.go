package bipf

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf8"
)

type decoder struct {
	buf      []byte
	opt      Options
	maxDepth int
}

// Decode decodes the value whose tag starts at buf[off:] and returns it
// together with the offset just past it.
func (o Options) Decode(buf []byte, off int) (Value, int, error) {
	tag, err := readFramed(buf, off, len(buf))
	if err != nil {
		return Value{}, off, err
	}
	d := decoder{buf: buf, opt: o, maxDepth: o.maxDepth()}
	v, err := d.body(off, tag, 0)
	if err != nil {
		return Value{}, off, err
	}
	return v, tag.End(off), nil
}

func Decode(buf []byte, off int) (Value, int, error) {
	return DefaultOptions.Decode(buf, off)
}

func (d *decoder) child(off, end int) (Tag, error) {
	return readChild(d.buf, off, end)
}

func (d *decoder) body(off int, tag Tag, depth int) (Value, error) {
	start := tag.Body(off)
	end := start + tag.Len
	b := d.buf[start:end]

	switch tag.Type {
	case TypeString:
		s, err := d.opt.decodeString(d.buf, off, b)
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil

	case TypeBuffer:
		return Bytes(bytes.Clone(b)), nil

	case TypeInt:
		v, ok := readIntLE(b)
		if !ok {
			return Value{}, dataErrf(d.buf, off, ErrInvalidBody, "INT of %d bytes", len(b))
		}
		return Int(v), nil

	case TypeDouble:
		if len(b) != 8 {
			return Value{}, dataErrf(d.buf, off, ErrInvalidBody, "DOUBLE of %d bytes", len(b))
		}
		return Value{kind: KindDouble, num: binary.LittleEndian.Uint64(b)}, nil

	case TypeBoolNull:
		return decodeBoolNull(d.buf, off, b)

	case TypeArray:
		if depth >= d.maxDepth {
			return Value{}, dataErrf(d.buf, off, ErrTooDeep, "more than %d levels", d.maxDepth)
		}
		var items []Value
		for pos := start; pos < end; {
			ct, err := d.child(pos, end)
			if err != nil {
				return Value{}, err
			}
			item, err := d.body(pos, ct, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
			pos = ct.End(pos)
		}
		return Array(items...), nil

	case TypeObject:
		if depth >= d.maxDepth {
			return Value{}, dataErrf(d.buf, off, ErrTooDeep, "more than %d levels", d.maxDepth)
		}
		var fields []Field
		for pos := start; pos < end; {
			kt, err := d.child(pos, end)
			if err != nil {
				return Value{}, err
			}
			if kt.Type != TypeString && kt.Type != TypeBuffer {
				return Value{}, dataErrf(d.buf, pos, ErrInvalidKey, "key is %v", kt.Type)
			}
			key, err := d.body(pos, kt, depth+1)
			if err != nil {
				return Value{}, err
			}
			pos = kt.End(pos)

			vt, err := d.child(pos, end)
			if err != nil {
				return Value{}, err
			}
			val, err := d.body(pos, vt, depth+1)
			if err != nil {
				return Value{}, err
			}
			pos = vt.End(pos)

			fields = append(fields, Field{key, val})
		}
		return Object(fields...), nil

	default:
		return Value{}, dataErrf(d.buf, off, ErrUnknownType, "type %d", tag.Type)
	}
}

func (o Options) decodeString(buf []byte, off int, b []byte) (string, error) {
	if utf8.Valid(b) {
		return string(b), nil
	}
	if o.Strings == UTF8Replace {
		return strings.ToValidUTF8(string(b), "\uFFFD"), nil
	}
	return "", dataErrf(buf, off, ErrInvalidUTF8, "")
}

func decodeBoolNull(buf []byte, off int, b []byte) (Value, error) {
	switch len(b) {
	case 0:
		return Null(), nil
	case 1:
		switch b[0] {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		}
		return Value{}, dataErrf(buf, off, ErrInvalidBody, "BOOLNULL byte %d", b[0])
	default:
		return Value{}, dataErrf(buf, off, ErrInvalidBody, "BOOLNULL of %d bytes", len(b))
	}
}

// TypeAt returns the type of the value at off after checking that its tag
// is well-formed and its body fits into buf.
func TypeAt(buf []byte, off int) (Type, error) {
	tag, err := readFramed(buf, off, len(buf))
	if err != nil {
		return 0, err
	}
	if !tag.Type.Valid() {
		return tag.Type, dataErrf(buf, off, ErrUnknownType, "type %d", tag.Type)
	}
	return tag.Type, nil
}

// Skip returns the offset just past the value at off without looking into
// its body.
func Skip(buf []byte, off int) (int, error) {
	tag, err := readFramed(buf, off, len(buf))
	if err != nil {
		return off, err
	}
	return tag.End(off), nil
}

// DecodeRaw returns the type and body of the value at off. The body aliases
// buf.
func DecodeRaw(buf []byte, off int) (Type, []byte, error) {
	tag, err := readFramed(buf, off, len(buf))
	if err != nil {
		return 0, nil, err
	}
	start := tag.Body(off)
	return tag.Type, buf[start : start+tag.Len : start+tag.Len], nil
}

func expectType(buf []byte, off int, want Type) ([]byte, error) {
	typ, b, err := DecodeRaw(buf, off)
	if err != nil {
		return nil, err
	}
	if typ != want {
		return nil, dataErrf(buf, off, ErrTypeMismatch, "%v instead of %v", typ, want)
	}
	return b, nil
}

// DecodeString decodes a STRING value at off.
func (o Options) DecodeString(buf []byte, off int) (string, error) {
	b, err := expectType(buf, off, TypeString)
	if err != nil {
		return "", err
	}
	return o.decodeString(buf, off, b)
}

func DecodeString(buf []byte, off int) (string, error) {
	return DefaultOptions.DecodeString(buf, off)
}

// DecodeBytes returns the body of a BUFFER value at off without copying.
func DecodeBytes(buf []byte, off int) ([]byte, error) {
	return expectType(buf, off, TypeBuffer)
}

// DecodeInt decodes an INT value at off.
func DecodeInt(buf []byte, off int) (int64, error) {
	b, err := expectType(buf, off, TypeInt)
	if err != nil {
		return 0, err
	}
	v, ok := readIntLE(b)
	if !ok {
		return 0, dataErrf(buf, off, ErrInvalidBody, "INT of %d bytes", len(b))
	}
	return v, nil
}

// DecodeDouble decodes a DOUBLE value at off. INT values are accepted too
// and converted.
func DecodeDouble(buf []byte, off int) (float64, error) {
	typ, b, err := DecodeRaw(buf, off)
	if err != nil {
		return 0, err
	}
	switch typ {
	case TypeDouble:
		if len(b) != 8 {
			return 0, dataErrf(buf, off, ErrInvalidBody, "DOUBLE of %d bytes", len(b))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case TypeInt:
		v, ok := readIntLE(b)
		if !ok {
			return 0, dataErrf(buf, off, ErrInvalidBody, "INT of %d bytes", len(b))
		}
		return float64(v), nil
	default:
		return 0, dataErrf(buf, off, ErrTypeMismatch, "%v instead of DOUBLE", typ)
	}
}

// DecodeBool decodes a boolean at off. Null is a type mismatch.
func DecodeBool(buf []byte, off int) (bool, error) {
	b, err := expectType(buf, off, TypeBoolNull)
	if err != nil {
		return false, err
	}
	v, err := decodeBoolNull(buf, off, b)
	if err != nil {
		return false, err
	}
	if v.kind != KindBool {
		return false, dataErrf(buf, off, ErrTypeMismatch, "null instead of bool")
	}
	return v.num != 0, nil
}

// IsNull reports whether the value at off is null.
func IsNull(buf []byte, off int) (bool, error) {
	typ, b, err := DecodeRaw(buf, off)
	if err != nil {
		return false, err
	}
	return typ == TypeBoolNull && len(b) == 0, nil
}

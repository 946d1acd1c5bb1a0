package bipf

import (
	"bytes"
	"fmt"
)

// NotFound is returned by seeks when the key or index is absent, or when
// the value at the given offset is not a container of the right type.
const NotFound = -1

// FindKeyBytes returns the offset of the tag of the value stored under key
// in the OBJECT at off. Keys are compared as bytes, so STRING and BUFFER
// keys match interchangeably. A miss, a non-object and a negative off all
// return (NotFound, nil); malformed framing met during the walk is an error.
func FindKeyBytes(buf []byte, off int, key []byte) (int, error) {
	if off < 0 {
		return NotFound, nil
	}
	tag, err := readFramed(buf, off, len(buf))
	if err != nil {
		return NotFound, err
	}
	if tag.Type != TypeObject {
		return NotFound, nil
	}
	pos := tag.Body(off)
	end := pos + tag.Len
	for pos < end {
		kt, err := readChild(buf, pos, end)
		if err != nil {
			return NotFound, err
		}
		if kt.Type != TypeString && kt.Type != TypeBuffer {
			return NotFound, dataErrf(buf, pos, ErrInvalidKey, "key is %v", kt.Type)
		}
		vpos := kt.End(pos)
		vt, err := readChild(buf, vpos, end)
		if err != nil {
			return NotFound, err
		}
		if bytes.Equal(buf[kt.Body(pos):vpos], key) {
			return vpos, nil
		}
		pos = vt.End(vpos)
	}
	return NotFound, nil
}

func FindKey(buf []byte, off int, key string) (int, error) {
	return FindKeyBytes(buf, off, unsafeBytesFromString(key))
}

// FindIndex returns the offset of the index-th element of the ARRAY at off,
// skipping preceding elements by their tags.
func FindIndex(buf []byte, off int, index int) (int, error) {
	if off < 0 || index < 0 {
		return NotFound, nil
	}
	tag, err := readFramed(buf, off, len(buf))
	if err != nil {
		return NotFound, err
	}
	if tag.Type != TypeArray {
		return NotFound, nil
	}
	pos := tag.Body(off)
	end := pos + tag.Len
	for i := 0; pos < end; i++ {
		ct, err := readChild(buf, pos, end)
		if err != nil {
			return NotFound, err
		}
		if i == index {
			return pos, nil
		}
		pos = ct.End(pos)
	}
	return NotFound, nil
}

// FindPath applies FindKey, FindKeyBytes or FindIndex for each path segment,
// which must be a string, a []byte or an int.
func FindPath(buf []byte, off int, path ...any) (int, error) {
	var err error
	for _, seg := range path {
		if off < 0 {
			return NotFound, nil
		}
		switch seg := seg.(type) {
		case string:
			off, err = FindKey(buf, off, seg)
		case []byte:
			off, err = FindKeyBytes(buf, off, seg)
		case int:
			off, err = FindIndex(buf, off, seg)
		default:
			return NotFound, fmt.Errorf("%w: path segment of type %T", ErrUnsupportedValue, seg)
		}
		if err != nil {
			return NotFound, err
		}
	}
	return off, nil
}

// SeekKey is FindKey with errors folded into NotFound, for chaining:
//
//	off := SeekKey(buf, SeekKey(buf, 0, "dependencies"), "varint")
func SeekKey(buf []byte, off int, key string) int {
	off, _ = FindKey(buf, off, key)
	return off
}

// SeekKeyBytes is FindKeyBytes with errors folded into NotFound.
func SeekKeyBytes(buf []byte, off int, key []byte) int {
	off, _ = FindKeyBytes(buf, off, key)
	return off
}

// SeekIndex is FindIndex with errors folded into NotFound.
func SeekIndex(buf []byte, off int, index int) int {
	off, _ = FindIndex(buf, off, index)
	return off
}

// SeekPath is FindPath with errors folded into NotFound.
func SeekPath(buf []byte, off int, path ...any) int {
	off, _ = FindPath(buf, off, path...)
	return off
}

// Lookup seeks path from off and decodes the value found there. Absence is
// reported as false with a nil error.
func (o Options) Lookup(buf []byte, off int, path ...any) (Value, bool, error) {
	off, err := FindPath(buf, off, path...)
	if err != nil || off == NotFound {
		return Value{}, false, err
	}
	v, _, err := o.Decode(buf, off)
	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

func Lookup(buf []byte, off int, path ...any) (Value, bool, error) {
	return DefaultOptions.Lookup(buf, off, path...)
}

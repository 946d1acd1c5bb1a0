package bipf

import "iter"

// Walk calls fn for each child of the ARRAY or OBJECT at off, in order,
// without decoding. For objects, key is the raw key body (aliasing buf) and
// off is the offset of the value's tag; for arrays, key is nil. Returning
// false from fn stops the walk. A non-container is ErrTypeMismatch.
func Walk(buf []byte, off int, fn func(key []byte, off int) bool) error {
	tag, err := readFramed(buf, off, len(buf))
	if err != nil {
		return err
	}
	pos := tag.Body(off)
	end := pos + tag.Len
	switch tag.Type {
	case TypeArray:
		for pos < end {
			ct, err := readChild(buf, pos, end)
			if err != nil {
				return err
			}
			if !fn(nil, pos) {
				return nil
			}
			pos = ct.End(pos)
		}
	case TypeObject:
		for pos < end {
			kt, err := readChild(buf, pos, end)
			if err != nil {
				return err
			}
			if kt.Type != TypeString && kt.Type != TypeBuffer {
				return dataErrf(buf, pos, ErrInvalidKey, "key is %v", kt.Type)
			}
			vpos := kt.End(pos)
			vt, err := readChild(buf, vpos, end)
			if err != nil {
				return err
			}
			if !fn(buf[kt.Body(pos):vpos:vpos], vpos) {
				return nil
			}
			pos = vt.End(vpos)
		}
	default:
		return dataErrf(buf, off, ErrTypeMismatch, "%v is not a container", tag.Type)
	}
	return nil
}

// Len returns the number of elements or fields of the container at off.
func Len(buf []byte, off int) (int, error) {
	var n int
	err := Walk(buf, off, func([]byte, int) bool {
		n++
		return true
	})
	return n, err
}

// Entries iterates over the keys and value offsets of the OBJECT at off.
// Iteration stops quietly at the first framing error; use Walk to see it.
func Entries(buf []byte, off int) iter.Seq2[[]byte, int] {
	return func(yield func([]byte, int) bool) {
		_ = Walk(buf, off, yield)
	}
}

// Elements iterates over the indices and offsets of the ARRAY at off.
func Elements(buf []byte, off int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		var i int
		_ = Walk(buf, off, func(_ []byte, off int) bool {
			ok := yield(i, off)
			i++
			return ok
		})
	}
}

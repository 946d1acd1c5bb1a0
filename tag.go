package bipf

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Type is the 3-bit wire type stored in the low bits of a tag.
type Type uint8

const (
	TypeString Type = iota
	TypeBuffer
	TypeInt
	TypeDouble
	TypeArray
	TypeObject
	TypeBoolNull
	typeReserved

	typeBits = 3
	typeMask = 1<<typeBits - 1

	// maxBodyLen is the largest body length whose tag fits in a uint64.
	maxBodyLen = math.MaxUint64 >> typeBits
)

var typeNames = [...]string{
	TypeString:   "STRING",
	TypeBuffer:   "BUFFER",
	TypeInt:      "INT",
	TypeDouble:   "DOUBLE",
	TypeArray:    "ARRAY",
	TypeObject:   "OBJECT",
	TypeBoolNull: "BOOLNULL",
	typeReserved: "RESERVED",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the seven defined wire types.
func (t Type) Valid() bool {
	return t < typeReserved
}

// IsContainer reports whether values of this type hold framed children.
func (t Type) IsContainer() bool {
	return t == TypeArray || t == TypeObject
}

// Tag is a decoded value header.
type Tag struct {
	Len        int // body length in bytes
	Type       Type
	HeaderSize int // bytes occupied by the tag itself
}

// End returns the offset just past the value whose tag starts at off.
func (t Tag) End(off int) int {
	return off + t.HeaderSize + t.Len
}

// Body returns the offset of the first body byte of the value whose tag
// starts at off.
func (t Tag) Body(off int) int {
	return off + t.HeaderSize
}

func packTag(bodyLen int, t Type) uint64 {
	if bodyLen < 0 || uint64(bodyLen) > maxBodyLen {
		panic("body length out of range")
	}
	return uint64(bodyLen)<<typeBits | uint64(t)
}

func uvarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// TagSize returns the number of bytes needed for the tag of a value with
// the given body length and type.
func TagSize(bodyLen int, t Type) int {
	return uvarintSize(packTag(bodyLen, t))
}

// WriteTag writes a tag at buf[off:] and returns the number of bytes written.
func WriteTag(buf []byte, off, bodyLen int, t Type) (int, error) {
	v := packTag(bodyLen, t)
	n := uvarintSize(v)
	if off < 0 || len(buf)-off < n {
		return 0, dataErrf(buf, off, ErrBufferTooSmall, "tag needs %d bytes", n)
	}
	return binary.PutUvarint(buf[off:], v), nil
}

// AppendTag appends a tag to buf.
func AppendTag(buf []byte, bodyLen int, t Type) []byte {
	return appendUvarint(buf, packTag(bodyLen, t))
}

// ReadTag decodes the tag at buf[off:]. It does not check that the body fits
// into buf; see Tag.End.
func ReadTag(buf []byte, off int) (Tag, error) {
	if off < 0 || off >= len(buf) {
		return Tag{}, dataErrf(buf, off, ErrMalformedTag, "no data")
	}
	v, n := binary.Uvarint(buf[off:])
	if n == 0 {
		return Tag{}, dataErrf(buf, off, ErrMalformedTag, "unterminated uvarint")
	} else if n < 0 {
		return Tag{}, dataErrf(buf, off, ErrMalformedTag, "uvarint overflows 64 bits")
	}
	bodyLen := v >> typeBits
	if bodyLen > math.MaxInt-uint64(n) {
		return Tag{}, dataErrf(buf, off, ErrMalformedTag, "body length %d does not fit into int", bodyLen)
	}
	return Tag{
		Len:        int(bodyLen),
		Type:       Type(v & typeMask),
		HeaderSize: n,
	}, nil
}

// readFramed reads the tag at off and checks that the whole value fits below
// limit. Violations are reported as ErrMalformedTag / ErrTruncatedInput.
func readFramed(buf []byte, off, limit int) (Tag, error) {
	tag, err := ReadTag(buf[:limit], off)
	if err != nil {
		return tag, err
	}
	if tag.Len > limit-off-tag.HeaderSize {
		return tag, dataErrf(buf, off, ErrTruncatedInput, "%v body of %d bytes, only %d available", tag.Type, tag.Len, limit-off-tag.HeaderSize)
	}
	return tag, nil
}

// readChild reads the tag of the next child of a container body ending at
// end. An exhausted body is ErrOverrunChild (a child was required), bytes
// that do not form a tag are ErrTrailingGarbage.
func readChild(buf []byte, off, end int) (Tag, error) {
	if off >= end {
		return Tag{}, dataErrf(buf, off, ErrOverrunChild, "container body exhausted")
	}
	tag, err := ReadTag(buf[:end], off)
	if err != nil {
		return tag, dataErrf(buf, off, ErrTrailingGarbage, "%d bytes left in container do not form a tag", end-off)
	}
	if tag.Len > end-off-tag.HeaderSize {
		return tag, dataErrf(buf, off, ErrOverrunChild, "%v child of %d bytes, container has %d left", tag.Type, tag.Len, end-off-tag.HeaderSize)
	}
	return tag, nil
}

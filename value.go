package bipf

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value. Unlike Type, it separates
// null from booleans.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindBuffer
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindDouble: "double",
	KindString: "string",
	KindBuffer: "buffer",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Type returns the wire type used for values of this kind.
func (k Kind) Type() Type {
	switch k {
	case KindNull, KindBool:
		return TypeBoolNull
	case KindInt:
		return TypeInt
	case KindDouble:
		return TypeDouble
	case KindString:
		return TypeString
	case KindBuffer:
		return TypeBuffer
	case KindArray:
		return TypeArray
	case KindObject:
		return TypeObject
	default:
		panic("invalid kind")
	}
}

// Value is an immutable decoded value. The zero Value is null.
type Value struct {
	kind   Kind
	num    uint64 // int64 bits, float64 bits or bool
	str    string
	bin    []byte
	items  []Value
	fields []Field
}

// Field is a key/value pair of an object. Key is a string or buffer Value.
type Field struct {
	Key   Value
	Value Value
}

func Null() Value            { return Value{} }
func Int(v int64) Value      { return Value{kind: KindInt, num: uint64(v)} }
func Double(v float64) Value { return Value{kind: KindDouble, num: math.Float64bits(v)} }
func Str(v string) Value     { return Value{kind: KindString, str: v} }
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: items}
}
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: fields}
}

func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool}
}

// Bytes returns a buffer Value. The slice is not copied.
func Bytes(v []byte) Value {
	if v == nil {
		v = []byte{}
	}
	return Value{kind: KindBuffer, bin: v}
}

// KV returns a field with a string key.
func KV(key string, v Value) Field {
	return Field{Str(key), v}
}

// BKV returns a field with a buffer key.
func BKV(key []byte, v Value) Field {
	return Field{Bytes(key), v}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) Type() Type   { return v.kind.Type() }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	return v.num != 0, v.kind == KindBool
}

func (v Value) AsInt() (int64, bool) {
	return int64(v.num), v.kind == KindInt
}

func (v Value) AsDouble() (float64, bool) {
	return math.Float64frombits(v.num), v.kind == KindDouble
}

// AsNumber returns ints and doubles as float64.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(int64(v.num)), true
	case KindDouble:
		return math.Float64frombits(v.num), true
	default:
		return 0, false
	}
}

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsBytes() ([]byte, bool) {
	return v.bin, v.kind == KindBuffer
}

// KeyBytes returns the raw bytes of a string or buffer value, which is how
// object keys are compared.
func (v Value) KeyBytes() ([]byte, bool) {
	switch v.kind {
	case KindString:
		return unsafeBytesFromString(v.str), true
	case KindBuffer:
		return v.bin, true
	default:
		return nil, false
	}
}

// Len returns the number of array items or object fields, the byte length
// of strings and buffers, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	case KindString:
		return len(v.str)
	case KindBuffer:
		return len(v.bin)
	default:
		return 0
	}
}

// Items returns the elements of an array. The slice must not be modified.
func (v Value) Items() []Value {
	return v.items
}

// Fields returns the fields of an object in encoded order. The slice must
// not be modified.
func (v Value) Fields() []Field {
	return v.fields
}

// Index returns the i-th array element.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Get returns the value of the first field whose key bytes equal key.
func (v Value) Get(key string) (Value, bool) {
	return v.GetBytes(unsafeBytesFromString(key))
}

func (v Value) GetBytes(key []byte) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, f := range v.fields {
		if k, ok := f.Key.KeyBytes(); ok && bytes.Equal(k, key) {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Equal reports structural equality. Doubles are compared bitwise, so NaN
// equals itself, and a string never equals a buffer with the same bytes.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool, KindInt, KindDouble:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBuffer:
		return bytes.Equal(v.bin, o.bin)
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if !v.fields[i].Key.Equal(o.fields[i].Key) || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders v as JSON-like text. Buffers are shown as <hex>.
func (v Value) String() string {
	var buf strings.Builder
	v.format(&buf)
	return buf.String()
}

func (v Value) format(buf *strings.Builder) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.num != 0))
	case KindInt:
		buf.WriteString(strconv.FormatInt(int64(v.num), 10))
	case KindDouble:
		f := math.Float64frombits(v.num)
		s := strconv.FormatFloat(f, 'g', -1, 64)
		buf.WriteString(s)
		if !strings.ContainsAny(s, ".eEIN") {
			buf.WriteString(".0")
		}
	case KindString:
		buf.WriteString(strconv.Quote(v.str))
	case KindBuffer:
		buf.WriteByte('<')
		buf.WriteString(hex.EncodeToString(v.bin))
		buf.WriteByte('>')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteString(", ")
			}
			item.format(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteString(", ")
			}
			f.Key.format(buf)
			buf.WriteString(": ")
			f.Value.format(buf)
		}
		buf.WriteByte('}')
	}
}


package bipf

import (
	"bytes"
	"math"
	"reflect"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode

	_ cbor.Marshaler   = Value{}
	_ cbor.Unmarshaler = (*Value)(nil)
)

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bipf: CBOR encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[any]any(nil)),
		IntDec:          cbor.IntDecConvertSignedOrFail,
		MaxNestedLevels: 256,
	}.DecMode()
	if err != nil {
		panic("bipf: CBOR decoder initialization failed: " + err.Error())
	}
}

const (
	cborMajorArray = 4
	cborMajorMap   = 5
)

// MarshalCBOR encodes v as CBOR. Object fields keep their order; everything
// below the container headers goes through Core Deterministic Encoding.
func (v Value) MarshalCBOR() ([]byte, error) {
	return v.appendCBOR(nil)
}

func (v Value) appendCBOR(buf []byte) ([]byte, error) {
	var scalar any
	switch v.kind {
	case KindNull:
		scalar = nil
	case KindBool:
		scalar = v.num != 0
	case KindInt:
		scalar = int64(v.num)
	case KindDouble:
		scalar = math.Float64frombits(v.num)
	case KindString:
		scalar = v.str
	case KindBuffer:
		scalar = v.bin
	case KindArray:
		buf = appendCBORHead(buf, cborMajorArray, uint64(len(v.items)))
		for _, item := range v.items {
			var err error
			buf, err = item.appendCBOR(buf)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case KindObject:
		buf = appendCBORHead(buf, cborMajorMap, uint64(len(v.fields)))
		for _, f := range v.fields {
			if k := f.Key.kind; k != KindString && k != KindBuffer {
				return nil, valueErrf(ErrInvalidKey, "%v key", k)
			}
			var err error
			buf, err = f.Key.appendCBOR(buf)
			if err != nil {
				return nil, err
			}
			buf, err = f.Value.appendCBOR(buf)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, valueErrf(ErrUnsupportedValue, "invalid kind %v", v.kind)
	}
	raw, err := cborEncMode.Marshal(scalar)
	if err != nil {
		return nil, err
	}
	return append(buf, raw...), nil
}

func appendCBORHead(buf []byte, major byte, n uint64) []byte {
	m := major << 5
	switch {
	case n < 24:
		return append(buf, m|byte(n))
	case n <= math.MaxUint8:
		return append(buf, m|24, byte(n))
	case n <= math.MaxUint16:
		return append(buf, m|25, byte(n>>8), byte(n))
	case n <= math.MaxUint32:
		return append(buf, m|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		return append(buf, m|27, byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32), byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}

// UnmarshalCBOR decodes one CBOR item. Maps carry no order, so object
// fields come out sorted by key bytes, string keys before buffer keys with
// the same bytes. Keys must be text or byte strings. Tags and integers
// outside int64 are rejected.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var x any
	if err := cborDecMode.Unmarshal(data, &x); err != nil {
		return err
	}
	r, err := fromCBORItem(x)
	if err != nil {
		return err
	}
	*v = r
	return nil
}

func fromCBORItem(x any) (Value, error) {
	switch x := x.(type) {
	case []any:
		items := make([]Value, len(x))
		for i, el := range x {
			v, err := fromCBORItem(el)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[any]any:
		fields := make([]Field, 0, len(x))
		for k, el := range x {
			var key Value
			switch k := k.(type) {
			case string:
				key = Str(k)
			case cbor.ByteString:
				key = Bytes([]byte(k))
			default:
				return Value{}, valueErrf(ErrInvalidKey, "CBOR map key of type %T", k)
			}
			v, err := fromCBORItem(el)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{key, v})
		}
		slices.SortFunc(fields, compareFieldKeys)
		return Object(fields...), nil
	default:
		return FromNative(x)
	}
}

func compareFieldKeys(a, b Field) int {
	ka, _ := a.Key.KeyBytes()
	kb, _ := b.Key.KeyBytes()
	if c := bytes.Compare(ka, kb); c != 0 {
		return c
	}
	return int(a.Key.kind) - int(b.Key.kind)
}

// FromCBOR converts one CBOR item to a Value.
func FromCBOR(data []byte) (Value, error) {
	var v Value
	err := v.UnmarshalCBOR(data)
	return v, err
}

// ToCBOR converts v to CBOR.
func ToCBOR(v Value) ([]byte, error) {
	return v.MarshalCBOR()
}

package bipf

import (
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack writes v as MessagePack. Strings become str, buffers bin,
// and object fields are written in their encoded order.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.num != 0)
	case KindInt:
		return enc.EncodeInt(int64(v.num))
	case KindDouble:
		return enc.EncodeFloat64(math.Float64frombits(v.num))
	case KindString:
		return enc.EncodeString(v.str)
	case KindBuffer:
		return enc.EncodeBytes(v.bin)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.items)); err != nil {
			return err
		}
		for _, item := range v.items {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		if err := enc.EncodeMapLen(len(v.fields)); err != nil {
			return err
		}
		for _, f := range v.fields {
			if k := f.Key.kind; k != KindString && k != KindBuffer {
				return valueErrf(ErrInvalidKey, "%v key", k)
			}
			if err := f.Key.EncodeMsgpack(enc); err != nil {
				return err
			}
			if err := f.Value.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	default:
		return valueErrf(ErrUnsupportedValue, "invalid kind %v", v.kind)
	}
}

// DecodeMsgpack reads one MessagePack value, keeping map order. Extension
// types and unsigned integers above math.MaxInt64 are rejected.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	r, err := decodeMsgpackValue(dec, 0)
	if err != nil {
		return err
	}
	*v = r
	return nil
}

func decodeMsgpackValue(dec *msgpack.Decoder, depth int) (Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, err
	}
	switch {
	case c == msgpcode.Nil:
		return Null(), dec.DecodeNil()
	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		return Bool(b), err
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		return Double(f), err
	case c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return Value{}, err
		}
		return fromUint(u)
	case msgpcode.IsFixedNum(c) || (c >= msgpcode.Uint8 && c <= msgpcode.Int64):
		n, err := dec.DecodeInt64()
		return Int(n), err
	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		return Str(s), err
	case msgpcode.IsBin(c):
		b, err := dec.DecodeBytes()
		return Bytes(b), err
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		if depth >= DefaultMaxDepth {
			return Value{}, valueErrf(ErrTooDeep, "more than %d levels", DefaultMaxDepth)
		}
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			item, err := decodeMsgpackValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Array(items...), nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		if depth >= DefaultMaxDepth {
			return Value{}, valueErrf(ErrTooDeep, "more than %d levels", DefaultMaxDepth)
		}
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, err
		}
		fields := make([]Field, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			key, err := decodeMsgpackValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			if k := key.kind; k != KindString && k != KindBuffer {
				return Value{}, valueErrf(ErrInvalidKey, "msgpack map key is %v", k)
			}
			val, err := decodeMsgpackValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{key, val})
		}
		return Object(fields...), nil
	default:
		return Value{}, valueErrf(ErrUnsupportedValue, "msgpack code 0x%02x", c)
	}
}

// FromMsgpack converts one MessagePack value to a Value.
func FromMsgpack(data []byte) (Value, error) {
	var v Value
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return Value{}, fmt.Errorf("msgpack: %w", err)
	}
	return v, nil
}

// ToMsgpack converts v to MessagePack.
func ToMsgpack(v Value) ([]byte, error) {
	return msgpack.Marshal(v)
}

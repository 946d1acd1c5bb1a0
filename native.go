package bipf

import (
	"math"
	"slices"
)

// Marshaler is implemented by types that convert themselves to a Value.
type Marshaler interface {
	MarshalBIPF() (Value, error)
}

// FromNative converts a plain Go value to a Value. Supported inputs: nil,
// bool, signed and unsigned integers, float32/64, string, []byte, []any,
// []string, map[string]any, map[string]string, Value, []Field and
// Marshaler. Go maps are converted with keys in sorted order, so equal maps
// always encode to equal bytes.
func FromNative(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case Marshaler:
		return x.MarshalBIPF()
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case float32:
		return Double(float64(x)), nil
	case float64:
		return Double(x), nil
	case string:
		return Str(x), nil
	case []byte:
		return Bytes(x), nil
	case []string:
		items := make([]Value, len(x))
		for i, s := range x {
			items[i] = Str(s)
		}
		return Array(items...), nil
	case []any:
		items := make([]Value, len(x))
		for i, el := range x {
			v, err := FromNative(el)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case []Field:
		return Object(x...), nil
	case map[string]any:
		keys := sortedKeys(x)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			v, err := FromNative(x[k])
			if err != nil {
				return Value{}, err
			}
			fields[i] = KV(k, v)
		}
		return Object(fields...), nil
	case map[string]string:
		keys := sortedKeys(x)
		fields := make([]Field, len(keys))
		for i, k := range keys {
			fields[i] = KV(k, Str(x[k]))
		}
		return Object(fields...), nil
	default:
		return Value{}, valueErrf(ErrUnsupportedValue, "%T", x)
	}
}

func fromUint(v uint64) (Value, error) {
	if v > math.MaxInt64 {
		return Value{}, valueErrf(ErrIntOverflow, "%d does not fit into int64", v)
	}
	return Int(int64(v)), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ToNative converts v to plain Go values: nil, bool, int64, float64, string,
// []byte, []any and map[string]any. Buffer keys become strings; for
// duplicate keys the first occurrence wins, the same one a seek finds.
func ToNative(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.num != 0
	case KindInt:
		return int64(v.num)
	case KindDouble:
		return math.Float64frombits(v.num)
	case KindString:
		return v.str
	case KindBuffer:
		return v.bin
	case KindArray:
		items := make([]any, len(v.items))
		for i, item := range v.items {
			items[i] = ToNative(item)
		}
		return items
	case KindObject:
		m := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			k, _ := f.Key.KeyBytes()
			if _, dup := m[string(k)]; dup {
				continue
			}
			m[string(k)] = ToNative(f.Value)
		}
		return m
	default:
		return nil
	}
}

// Marshal converts x with FromNative and encodes it.
func (o Options) Marshal(x any) ([]byte, error) {
	v, err := FromNative(x)
	if err != nil {
		return nil, err
	}
	return o.AllocAndEncode(v)
}

// Unmarshal decodes exactly one value spanning all of data and converts it
// with ToNative.
func (o Options) Unmarshal(data []byte) (any, error) {
	v, next, err := o.Decode(data, 0)
	if err != nil {
		return nil, err
	}
	if next != len(data) {
		return nil, dataErrf(data, next, ErrTrailingGarbage, "%d bytes after the value", len(data)-next)
	}
	return ToNative(v), nil
}

func Marshal(x any) ([]byte, error) {
	return DefaultOptions.Marshal(x)
}

func Unmarshal(data []byte) (any, error) {
	return DefaultOptions.Unmarshal(data)
}

package bipf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/tidwall/jsonc"
)

var (
	_ json.Marshaler   = Value{}
	_ json.Unmarshaler = (*Value)(nil)
)

// FromJSON converts one JSON value to a Value. Comments and trailing commas
// are accepted. Object fields keep their textual order, numbers without a
// fraction or exponent that fit into int64 become INT and all other numbers
// become DOUBLE.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	v, err := decodeJSONValue(dec, 0)
	if err != nil {
		return Value{}, fmt.Errorf("json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("json: %w", ErrTrailingGarbage)
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return Value{}, io.ErrUnexpectedEOF
	} else if err != nil {
		return Value{}, err
	}
	switch tok := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(tok), nil
	case string:
		return Str(tok), nil
	case json.Number:
		return jsonNumber(tok)
	case json.Delim:
		if depth >= DefaultMaxDepth {
			return Value{}, valueErrf(ErrTooDeep, "more than %d levels", DefaultMaxDepth)
		}
		switch tok {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeJSONValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Array(items...), nil
		case '{':
			var fields []Field
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, valueErrf(ErrInvalidKey, "%T key", kt)
				}
				val, err := decodeJSONValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, KV(key, val))
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Object(fields...), nil
		}
	}
	return Value{}, valueErrf(ErrUnsupportedValue, "unexpected JSON token %v", tok)
}

func jsonNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, err
	}
	if math.IsInf(f, 0) {
		return Value{}, valueErrf(ErrUnsupportedValue, "number %s is out of range", n)
	}
	return Double(f), nil
}

// ToJSON converts v to compact JSON. Buffers become base64 strings and
// buffer keys are used as string keys. Doubles always carry a fraction or an
// exponent, so they come back as DOUBLE from FromJSON. NaN and infinities
// cannot be represented and fail with ErrUnsupportedValue.
func ToJSON(v Value) ([]byte, error) {
	return v.appendJSON(nil)
}

func (v Value) appendJSON(buf []byte) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.num != 0), nil
	case KindInt:
		return strconv.AppendInt(buf, int64(v.num), 10), nil
	case KindDouble:
		f := math.Float64frombits(v.num)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, valueErrf(ErrUnsupportedValue, "%v in JSON", f)
		}
		raw, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf = append(buf, raw...)
		if !bytes.ContainsAny(raw, ".eE") {
			buf = append(buf, ".0"...)
		}
		return buf, nil
	case KindString:
		return appendJSONString(buf, v.str)
	case KindBuffer:
		raw, err := json.Marshal(v.bin)
		if err != nil {
			return nil, err
		}
		if v.bin == nil {
			raw = []byte(`""`)
		}
		return append(buf, raw...), nil
	case KindArray:
		buf = append(buf, '[')
		for i, item := range v.items {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = item.appendJSON(buf)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		buf = append(buf, '{')
		for i, f := range v.fields {
			if i > 0 {
				buf = append(buf, ',')
			}
			k, ok := f.Key.KeyBytes()
			if !ok {
				return nil, valueErrf(ErrInvalidKey, "%v key", f.Key.kind)
			}
			var err error
			buf, err = appendJSONString(buf, string(k))
			if err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			buf, err = f.Value.appendJSON(buf)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	default:
		return nil, valueErrf(ErrUnsupportedValue, "invalid kind %v", v.kind)
	}
}

func appendJSONString(buf []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, valueErrf(ErrInvalidUTF8, "string %q in JSON", s)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(buf, raw...), nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return ToJSON(v)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	r, err := FromJSON(data)
	if err != nil {
		return err
	}
	*v = r
	return nil
}

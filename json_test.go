package bipf

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// jsonSample is sample without buffers, which JSON cannot carry.
var jsonSample = Object(
	KV("name", Str("bipf")),
	KV("private", Bool(false)),
	KV("big", Int(1<<40)),
	KV("ratio", Double(0.25)),
	KV("whole", Double(3)),
	KV("license", Null()),
	KV("keywords", Array(Str("binary"), Array(), Object())),
	KV("unicode", Str("héllo, 世界 <&>")),
)

func TestFromJSON(t *testing.T) {
	tests := []struct {
		in string
		v  Value
	}{
		{`null`, Null()},
		{` true `, Bool(true)},
		{`-3`, Int(-3)},
		{`1.5`, Double(1.5)},
		{`1.0`, Double(1)},
		{`1e2`, Double(100)},
		{`12345678901234567890`, Double(12345678901234567890)},
		{`"aé"`, Str("aé")},
		{`[]`, Array()},
		{`{}`, Object()},
		{`{"b": 1, "a": [2, "x"]}`, Object(KV("b", Int(1)), KV("a", Array(Int(2), Str("x"))))},
		{`{"a": 1, "a": 2}`, Object(KV("a", Int(1)), KV("a", Int(2)))},
		{"// header\n{\"a\": 1, /* inline */ \"b\": [2,],}", Object(KV("a", Int(1)), KV("b", Array(Int(2))))},
	}
	for _, tt := range tests {
		v, err := FromJSON([]byte(tt.in))
		if err != nil {
			t.Errorf("FromJSON(%s) failed: %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.v, v); diff != "" {
			t.Errorf("FromJSON(%s) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestFromJSON_errors(t *testing.T) {
	tests := []struct {
		in  string
		err error
	}{
		{``, nil},
		{`[1`, nil},
		{`{1: 2}`, nil},
		{`1 2`, ErrTrailingGarbage},
		{`1e999`, ErrUnsupportedValue},
	}
	for _, tt := range tests {
		v, err := FromJSON([]byte(tt.in))
		if err == nil {
			t.Errorf("FromJSON(%q) = %v, wanted error", tt.in, v)
			continue
		}
		if tt.err != nil && !errors.Is(err, tt.err) {
			t.Errorf("FromJSON(%q) error = %v, wanted %v", tt.in, err, tt.err)
		}
	}
}

func TestToJSON(t *testing.T) {
	tests := []struct {
		v    Value
		json string
	}{
		{Null(), `null`},
		{Bool(false), `false`},
		{Int(-42), `-42`},
		{Double(2), `2.0`},
		{Double(0.25), `0.25`},
		{Double(1e21), `1e+21`},
		{Str("<a>"), `"\u003ca\u003e"`},
		{Bytes([]byte("hi")), `"aGk="`},
		{Bytes(nil), `""`},
		{Array(Int(1), Array()), `[1,[]]`},
		{Object(KV("b", Int(1)), BKV([]byte("a"), Null())), `{"b":1,"a":null}`},
	}
	for _, tt := range tests {
		b, err := ToJSON(tt.v)
		if err != nil {
			t.Errorf("ToJSON(%v) failed: %v", tt.v, err)
			continue
		}
		if a := string(b); a != tt.json {
			t.Errorf("ToJSON(%v) = %s, wanted %s", tt.v, a, tt.json)
		}
	}
}

func TestToJSON_errors(t *testing.T) {
	tests := []struct {
		v   Value
		err error
	}{
		{Double(math.NaN()), ErrUnsupportedValue},
		{Array(Double(math.Inf(-1))), ErrUnsupportedValue},
		{Str("\xff"), ErrInvalidUTF8},
		{Object(Field{Int(1), Null()}), ErrInvalidKey},
	}
	for _, tt := range tests {
		_, err := ToJSON(tt.v)
		if !errors.Is(err, tt.err) {
			t.Errorf("ToJSON(%v) error = %v, wanted %v", tt.v, err, tt.err)
		}
	}
}

func TestJSON_roundTrip(t *testing.T) {
	b, err := ToJSON(jsonSample)
	if err != nil {
		t.Fatal(err)
	}
	v, err := FromJSON(b)
	if err != nil {
		t.Fatalf("FromJSON(%s) failed: %v", b, err)
	}
	if diff := cmp.Diff(jsonSample, v); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON_embedded(t *testing.T) {
	type envelope struct {
		ID  string `json:"id"`
		Doc Value  `json:"doc"`
	}
	in := envelope{ID: "x", Doc: Object(KV("z", Int(1)), KV("a", Array(Bool(true))))}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if a, e := string(b), `{"id":"x","doc":{"z":1,"a":[true]}}`; a != e {
		t.Errorf("json.Marshal = %s, wanted %s", a, e)
	}
	var out envelope
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("json.Unmarshal mismatch (-want +got):\n%s", diff)
	}
}

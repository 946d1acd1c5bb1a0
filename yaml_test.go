package bipf

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestFromYAML(t *testing.T) {
	tests := []struct {
		in string
		v  Value
	}{
		{``, Null()},
		{`~`, Null()},
		{`yes`, Str("yes")},
		{`true`, Bool(true)},
		{`0x10`, Int(16)},
		{`2.5`, Double(2.5)},
		{`.inf`, Double(math.Inf(1))},
		{`"42"`, Str("42")},
		{`!!binary aGk=`, Bytes([]byte("hi"))},
		{`2001-12-14`, Str("2001-12-14")},
		{"b: 1\na: [x, null]\n", Object(KV("b", Int(1)), KV("a", Array(Str("x"), Null())))},
		{"1: one\ntrue: yes\n", Object(KV("1", Str("one")), KV("true", Str("yes")))},
		{"a: &x [1]\nb: *x\n", Object(KV("a", Array(Int(1))), KV("b", Array(Int(1))))},
		{"!!binary aGk=: 1\n", Object(BKV([]byte("hi"), Int(1)))},
	}
	for _, tt := range tests {
		v, err := FromYAML([]byte(tt.in))
		if err != nil {
			t.Errorf("FromYAML(%q) failed: %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.v, v); diff != "" {
			t.Errorf("FromYAML(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestFromYAML_errors(t *testing.T) {
	tests := []struct {
		in  string
		err error
	}{
		{"[1", nil},
		{"!custom x", ErrUnsupportedValue},
		{"? [a, b]\n: 1\n", ErrInvalidKey},
		{"base: &b {x: 1}\nother:\n  <<: *b\n", ErrInvalidKey},
	}
	for _, tt := range tests {
		v, err := FromYAML([]byte(tt.in))
		if err == nil {
			t.Errorf("FromYAML(%q) = %v, wanted error", tt.in, v)
			continue
		}
		if tt.err != nil && !errors.Is(err, tt.err) {
			t.Errorf("FromYAML(%q) error = %v, wanted %v", tt.in, err, tt.err)
		}
	}
}

func TestToYAML(t *testing.T) {
	tests := []struct {
		v    Value
		yaml string
	}{
		{Object(KV("a", Int(1))), "a: 1\n"},
		{Object(KV("b", Bool(true)), KV("a", Null())), "b: true\na: null\n"},
		{Object(KV("f", Double(1.5))), "f: 1.5\n"},
	}
	for _, tt := range tests {
		b, err := ToYAML(tt.v)
		if err != nil {
			t.Errorf("ToYAML(%v) failed: %v", tt.v, err)
			continue
		}
		if a := string(b); a != tt.yaml {
			t.Errorf("ToYAML(%v) = %q, wanted %q", tt.v, a, tt.yaml)
		}
	}

	b, err := ToYAML(Object(BKV([]byte("hi"), Int(1))))
	if err != nil {
		t.Fatal(err)
	}
	if a, e := string(b), "!!binary aGk=: 1\n"; a != e {
		t.Errorf("ToYAML with buffer key = %q, wanted %q", a, e)
	}

	_, err = ToYAML(Array(Object(Field{Double(1), Null()})))
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("ToYAML with double key = %v, wanted ErrInvalidKey", err)
	}
}

func TestYAML_roundTrip(t *testing.T) {
	tests := []Value{
		jsonSample,
		Str("true"),
		Str("123"),
		Str(""),
		Double(2),
		Double(-1e300),
		Double(math.Inf(-1)),
		Bytes([]byte{0, 1, 2, 0xff}),
		Array(Array(Array()), Object()),
		Object(KV("multi", Str("line one\nline two\n"))),
		Object(BKV([]byte("raw"), Int(1)), KV("s", Str("x"))),
		Object(KV("k", Int(1)), BKV([]byte("k"), Int(2))),
		Object(BKV([]byte{0xff, 0xfe}, Array(Bytes([]byte{0xff})))),
	}
	for _, v := range tests {
		b, err := ToYAML(v)
		if err != nil {
			t.Errorf("ToYAML(%v) failed: %v", v, err)
			continue
		}
		back, err := FromYAML(b)
		if err != nil {
			t.Errorf("FromYAML(%q) failed: %v", b, err)
			continue
		}
		if diff := cmp.Diff(v, back); diff != "" {
			t.Errorf("YAML round trip of %v via %q mismatch (-want +got):\n%s", v, b, diff)
		}
	}
}

func TestYAML_embedded(t *testing.T) {
	type config struct {
		Name  string `yaml:"name"`
		Extra Value  `yaml:"extra"`
	}
	var c config
	err := yaml.Unmarshal([]byte("name: demo\nextra:\n  z: [1, 2]\n  a: x\n"), &c)
	if err != nil {
		t.Fatal(err)
	}
	want := Object(KV("z", Array(Int(1), Int(2))), KV("a", Str("x")))
	if diff := cmp.Diff(want, c.Extra); diff != "" {
		t.Errorf("Extra mismatch (-want +got):\n%s", diff)
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var back config
	if err := yaml.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(c, back); diff != "" {
		t.Errorf("re-read config mismatch (-want +got):\n%s", diff)
	}
}

package bipf

import (
	"math"
	"testing"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		v Value
		e string
	}{
		{Null(), "null"},
		{Bool(true), "true"},
		{Int(-42), "-42"},
		{Double(2), "2.0"},
		{Double(0.5), "0.5"},
		{Double(math.Inf(1)), "+Inf"},
		{Double(1e100), "1e+100"},
		{Str("a\"b"), `"a\"b"`},
		{Bytes([]byte{0xca, 0xfe}), "<cafe>"},
		{Array(Int(1), Null()), "[1, null]"},
		{Object(KV("a", Int(1)), BKV([]byte("b"), Array())), `{"a": 1, <62>: []}`},
	}
	for _, tt := range tests {
		if a := tt.v.String(); a != tt.e {
			t.Errorf("String() = %s, wanted %s", a, tt.e)
		}
	}
}

func TestValue_accessors(t *testing.T) {
	if n, ok := Int(5).AsInt(); n != 5 || !ok {
		t.Errorf("AsInt = %d, %v", n, ok)
	}
	if _, ok := Double(5).AsInt(); ok {
		t.Errorf("Double.AsInt succeeded")
	}
	if f, ok := Int(5).AsNumber(); f != 5 || !ok {
		t.Errorf("Int.AsNumber = %v, %v", f, ok)
	}
	if _, ok := Str("5").AsNumber(); ok {
		t.Errorf("Str.AsNumber succeeded")
	}
	if b, ok := Bool(false).AsBool(); b || !ok {
		t.Errorf("AsBool = %v, %v", b, ok)
	}
	if _, ok := Null().AsBool(); ok {
		t.Errorf("Null.AsBool succeeded")
	}
	if Null().Type() != TypeBoolNull || Bool(true).Type() != TypeBoolNull {
		t.Errorf("null and bool must share the BOOLNULL type")
	}
	if !(Value{}).IsNull() {
		t.Errorf("zero Value is not null")
	}

	obj := Object(KV("k", Int(1)), BKV([]byte("b"), Int(2)), KV("k", Int(3)))
	if v, ok := obj.Get("k"); !ok || !v.Equal(Int(1)) {
		t.Errorf("Get(k) = %v, %v, wanted the first field", v, ok)
	}
	if v, ok := obj.Get("b"); !ok || !v.Equal(Int(2)) {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}
	if _, ok := obj.Get("none"); ok {
		t.Errorf("Get(none) succeeded")
	}
	if obj.Len() != 3 || Str("héllo").Len() != 6 || Null().Len() != 0 {
		t.Errorf("Len mismatch")
	}

	arr := Array(Str("x"), Str("y"))
	if v, ok := arr.Index(1); !ok || !v.Equal(Str("y")) {
		t.Errorf("Index(1) = %v, %v", v, ok)
	}
	if _, ok := arr.Index(2); ok {
		t.Errorf("Index(2) succeeded")
	}
	if _, ok := obj.Index(0); ok {
		t.Errorf("Index on an object succeeded")
	}
}

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		a, b  Value
		equal bool
	}{
		{Null(), Null(), true},
		{Null(), Bool(false), false},
		{Int(1), Double(1), false},
		{Str("ab"), Bytes([]byte("ab")), false},
		{Bytes(nil), Bytes([]byte{}), true},
		{Double(math.NaN()), Double(math.NaN()), true},
		{Double(0), Double(math.Copysign(0, -1)), false},
		{Array(Int(1)), Array(Int(1)), true},
		{Array(Int(1)), Array(Int(1), Int(1)), false},
		{Object(KV("a", Int(1)), KV("b", Int(2))), Object(KV("b", Int(2)), KV("a", Int(1))), false},
		{Object(KV("a", Int(1))), Object(BKV([]byte("a"), Int(1))), false},
		{sample, sample, true},
	}
	for _, tt := range tests {
		if a := tt.a.Equal(tt.b); a != tt.equal {
			t.Errorf("%v.Equal(%v) = %v, wanted %v", tt.a, tt.b, a, tt.equal)
		}
	}
}

func TestKind(t *testing.T) {
	if a := KindObject.String(); a != "object" {
		t.Errorf("KindObject.String() = %q", a)
	}
	if a := Kind(99).String(); a != "Kind(99)" {
		t.Errorf("Kind(99).String() = %q", a)
	}
	if KindBuffer.Type() != TypeBuffer || KindDouble.Type() != TypeDouble {
		t.Errorf("Kind.Type mismatch")
	}
}

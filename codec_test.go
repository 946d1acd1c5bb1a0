package bipf

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncode_bytes(t *testing.T) {
	tests := []struct {
		v   Value
		hex string
	}{
		{Null(), "06"},
		{Bool(false), "0e00"},
		{Bool(true), "0e01"},
		{Int(0), "0a00"},
		{Int(-1), "0aff"},
		{Int(300), "122c01"},
		{Int(70000), "2270110100"},
		{Int(1 << 40), "420000000000010000"},
		{Double(1.5), "43000000000000f83f"},
		{Str(""), "00"},
		{Str("hello"), "2868656c6c6f"},
		{Bytes([]byte("abc")), "19616263"},
		{Bytes(nil), "01"},
		{Array(), "04"},
		{Object(), "05"},
		{Array(Int(1), Int(300), Null(), Bool(true)), "44 0a01 122c01 06 0e01"},
		{Object(KV("a", Str("hello"))), "45 0861 2868656c6c6f"},
		{Object(BKV([]byte("a"), Null())), "1d 0961 06"},
	}
	for _, tt := range tests {
		b, err := AllocAndEncode(tt.v)
		if err != nil {
			t.Errorf("AllocAndEncode(%v) failed: %v", tt.v, err)
			continue
		}
		if a, e := hexstr(b), hexstr(unhex(tt.hex)); a != e {
			t.Errorf("AllocAndEncode(%v) = %s, wanted %s", tt.v, a, e)
		}
		if a := SizeOf(tt.v); a != len(b) {
			t.Errorf("SizeOf(%v) = %d, wanted %d", tt.v, a, len(b))
		}
		if v := mustDecode(t, b); !v.Equal(tt.v) {
			t.Errorf("Decode(%s) = %v, wanted %v", tt.hex, v, tt.v)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	values := []Value{
		sample,
		Array(),
		Object(),
		Array(Array(Array())),
		Object(KV("", Object(KV("", Null())))),
		Double(math.Inf(-1)),
		Double(math.NaN()),
		Double(math.Copysign(0, -1)),
		Int(math.MinInt64),
		Int(math.MaxInt64),
		Object(KV("dup", Int(1)), KV("dup", Int(2))),
	}
	for _, v := range values {
		b := mustEncode(t, v)
		if a := SizeOf(v); a != len(b) {
			t.Errorf("SizeOf(%v) = %d, encoded %d bytes", v, a, len(b))
		}
		if diff := cmp.Diff(v, mustDecode(t, b)); diff != "" {
			t.Errorf("round trip of %v mismatch (-want +got):\n%s", v, diff)
		}
	}
}

func TestEncode_atOffset(t *testing.T) {
	v := Object(KV("a", Str("hello")))
	n := SizeOf(v)

	buf := make([]byte, n+5)
	for i := range buf {
		buf[i] = 0xee
	}
	end, err := Encode(v, buf, 3)
	if err != nil {
		t.Fatal(err)
	}
	if end != 3+n {
		t.Errorf("Encode returned %d, wanted %d", end, 3+n)
	}
	if buf[2] != 0xee || buf[end] != 0xee {
		t.Errorf("Encode wrote outside its range: %x", buf)
	}
	got, next, err := Decode(buf, 3)
	if err != nil || next != end || !got.Equal(v) {
		t.Errorf("Decode at 3 = %v, %d, %v", got, next, err)
	}

	small := make([]byte, n+2)
	for i := range small {
		small[i] = 0xee
	}
	_, err = Encode(v, small, 3)
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Encode into small buffer = %v, wanted ErrBufferTooSmall", err)
	}
	for i, c := range small {
		if c != 0xee {
			t.Fatalf("failed Encode modified byte %d", i)
		}
	}
}

func TestAppend(t *testing.T) {
	buf := []byte{0xaa}
	buf, err := Append(buf, Str("x"))
	if err != nil {
		t.Fatal(err)
	}
	buf, err = Append(buf, Int(5))
	if err != nil {
		t.Fatal(err)
	}
	if a, e := hexstr(buf), "aa08780a05"; a != e {
		t.Errorf("Append = %s, wanted %s", a, e)
	}

	_, err = Append(buf, Object(Field{Int(1), Null()}))
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Append with int key = %v, wanted ErrInvalidKey", err)
	}
}

func TestEncode_errors(t *testing.T) {
	deep := Null()
	for range 5 {
		deep = Array(deep)
	}
	tests := []struct {
		name string
		opt  Options
		v    Value
		err  error
	}{
		{"int key", Options{}, Object(Field{Int(1), Null()}), ErrInvalidKey},
		{"null key", Options{}, Object(KV("ok", Null()), Field{Null(), Null()}), ErrInvalidKey},
		{"nested bad key", Options{}, Array(Object(Field{Array(), Null()})), ErrInvalidKey},
		{"too deep", Options{MaxDepth: 3}, deep, ErrTooDeep},
		{"fixed32 overflow", Options{Ints: IntsFixed32}, Array(Int(1 << 40)), ErrIntOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opt.AllocAndEncode(tt.v)
			if !errors.Is(err, tt.err) {
				t.Errorf("AllocAndEncode = %v, wanted %v", err, tt.err)
			}
			_, err = tt.opt.Encode(tt.v, make([]byte, 100), 0)
			if !errors.Is(err, tt.err) {
				t.Errorf("Encode = %v, wanted %v", err, tt.err)
			}
		})
	}
}

func TestDecode_errors(t *testing.T) {
	tests := []struct {
		name string
		opt  Options
		hex  string
		err  error
	}{
		{"empty", Options{}, "", ErrMalformedTag},
		{"unterminated tag", Options{}, "80", ErrMalformedTag},
		{"short string", Options{}, "28 6865", ErrTruncatedInput},
		{"int without body", Options{}, "0a", ErrTruncatedInput},
		{"3-byte int", Options{}, "1a 010203", ErrInvalidBody},
		{"1-byte double", Options{}, "0b 01", ErrInvalidBody},
		{"bool 2", Options{}, "0e 02", ErrInvalidBody},
		{"2-byte boolnull", Options{}, "16 0000", ErrInvalidBody},
		{"reserved type", Options{}, "07", ErrUnknownType},
		{"invalid utf-8", Options{}, "10 fffe", ErrInvalidUTF8},
		{"child overruns array", Options{}, "0c 0a", ErrOverrunChild},
		{"garbage in array", Options{}, "0c 80", ErrTrailingGarbage},
		{"key without value", Options{}, "0d 00", ErrOverrunChild},
		{"int key", Options{}, "1d 0a01", ErrInvalidKey},
		{"nested error", Options{}, "2c 04 0c 0a 0e01", ErrOverrunChild},
		{"too deep", Options{MaxDepth: 2}, "14 0c 04", ErrTooDeep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.opt.Decode(unhex(tt.hex), 0)
			if !errors.Is(err, tt.err) {
				t.Errorf("Decode(%s) = %v, wanted %v", tt.hex, err, tt.err)
			}
			var de *DataError
			if err != nil && !errors.As(err, &de) {
				t.Errorf("Decode(%s) error %T is not a *DataError", tt.hex, err)
			}
		})
	}
}

func TestDecode_truncation(t *testing.T) {
	b := mustEncode(t, sample)
	for i := range len(b) {
		_, _, err := Decode(b[:i], 0)
		if !errors.Is(err, ErrTruncatedInput) && !errors.Is(err, ErrMalformedTag) {
			t.Fatalf("Decode of %d/%d bytes = %v, wanted ErrTruncatedInput or ErrMalformedTag", i, len(b), err)
		}
	}
}

func TestDecode_sequence(t *testing.T) {
	var buf []byte
	values := []Value{Str("a"), Int(2), Object(KV("k", Null()))}
	for _, v := range values {
		var err error
		buf, err = Append(buf, v)
		if err != nil {
			t.Fatal(err)
		}
	}
	var off int
	for i, want := range values {
		v, next, err := Decode(buf, off)
		if err != nil {
			t.Fatalf("value %d: %v", i, err)
		}
		if !v.Equal(want) {
			t.Errorf("value %d = %v, wanted %v", i, v, want)
		}
		if skip, _ := Skip(buf, off); skip != next {
			t.Errorf("Skip(%d) = %d, wanted %d", off, skip, next)
		}
		off = next
	}
	if off != len(buf) {
		t.Errorf("ended at %d, wanted %d", off, len(buf))
	}
}

func TestDecode_buffersAreCopied(t *testing.T) {
	b := mustEncode(t, Bytes([]byte("abc")))
	v := mustDecode(t, b)
	b[1] = 'X'
	if raw, _ := v.AsBytes(); string(raw) != "abc" {
		t.Errorf("decoded buffer changed to %q after modifying the input", raw)
	}
}

func TestTypedDecoders(t *testing.T) {
	b := mustEncode(t, Array(Str("s"), Bytes([]byte{1, 2}), Int(-300), Double(2.5), Bool(true), Null()))
	off := func(i int) int { return SeekIndex(b, 0, i) }

	if s, err := DecodeString(b, off(0)); s != "s" || err != nil {
		t.Errorf("DecodeString = %q, %v", s, err)
	}
	if raw, err := DecodeBytes(b, off(1)); hexstr(raw) != "0102" || err != nil {
		t.Errorf("DecodeBytes = %x, %v", raw, err)
	}
	if n, err := DecodeInt(b, off(2)); n != -300 || err != nil {
		t.Errorf("DecodeInt = %d, %v", n, err)
	}
	if f, err := DecodeDouble(b, off(3)); f != 2.5 || err != nil {
		t.Errorf("DecodeDouble = %v, %v", f, err)
	}
	if f, err := DecodeDouble(b, off(2)); f != -300 || err != nil {
		t.Errorf("DecodeDouble of an INT = %v, %v", f, err)
	}
	if v, err := DecodeBool(b, off(4)); !v || err != nil {
		t.Errorf("DecodeBool = %v, %v", v, err)
	}
	if _, err := DecodeBool(b, off(5)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("DecodeBool(null) = %v, wanted ErrTypeMismatch", err)
	}
	if null, err := IsNull(b, off(5)); !null || err != nil {
		t.Errorf("IsNull(null) = %v, %v", null, err)
	}
	if null, _ := IsNull(b, off(4)); null {
		t.Errorf("IsNull(true) = true")
	}
	if _, err := DecodeInt(b, off(0)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("DecodeInt(string) = %v, wanted ErrTypeMismatch", err)
	}
	if typ, err := TypeAt(b, off(3)); typ != TypeDouble || err != nil {
		t.Errorf("TypeAt = %v, %v", typ, err)
	}
	if typ, body, err := DecodeRaw(b, off(0)); typ != TypeString || string(body) != "s" || err != nil {
		t.Errorf("DecodeRaw = %v, %q, %v", typ, body, err)
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(unhex("45 0861 2868656c6c6f"))
	f.Add(unhex("2c 04 0c 0a 0e01"))
	f.Add([]byte{})
	f.Add(mustEncode(f, sample))
	f.Fuzz(func(t *testing.T, data []byte) {
		_ = Dump(data)
		_ = SeekPath(data, 0, "dependencies", "varint")
		_ = Walk(data, 0, func([]byte, int) bool { return true })

		v, _, err := Decode(data, 0)
		if err != nil {
			return
		}
		b, err := AllocAndEncode(v)
		if err != nil {
			t.Fatalf("re-encoding %v failed: %v", v, err)
		}
		v2, next, err := Decode(b, 0)
		if err != nil || next != len(b) {
			t.Fatalf("decoding re-encoded %x failed: %v", b, err)
		}
		if !v2.Equal(v) {
			t.Fatalf("re-encoded value %v differs from %v", v2, v)
		}
	})
}

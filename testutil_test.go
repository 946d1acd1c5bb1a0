package bipf

import (
	"encoding/hex"
	"strings"
	"testing"
)

func hexstr(b []byte) string {
	return hex.EncodeToString(b)
}

// unhex decodes hex ignoring spaces and underscores.
func unhex(s string) []byte {
	s = strings.NewReplacer(" ", "", "_", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func mustEncode(t testing.TB, v Value) []byte {
	t.Helper()
	b, err := AllocAndEncode(v)
	if err != nil {
		t.Fatalf("AllocAndEncode(%v) failed: %v", v, err)
	}
	return b
}

func mustDecode(t testing.TB, b []byte) Value {
	t.Helper()
	v, next, err := Decode(b, 0)
	if err != nil {
		t.Fatalf("Decode(%x) failed: %v", b, err)
	}
	if next != len(b) {
		t.Fatalf("Decode(%x) consumed %d bytes, wanted %d", b, next, len(b))
	}
	return v
}

// sample is a value exercising every kind, nesting and both key types.
var sample = Object(
	KV("name", Str("bipf")),
	KV("version", Str("1.0.0")),
	KV("private", Bool(false)),
	KV("stars", Int(1234)),
	KV("big", Int(1<<40)),
	KV("neg", Int(-7)),
	KV("ratio", Double(0.25)),
	KV("license", Null()),
	BKV([]byte("raw"), Bytes([]byte{0, 1, 2, 0xff})),
	KV("keywords", Array(Str("binary"), Str("seek"), Array(), Object())),
	KV("dependencies", Object(
		KV("varint", Str("^1.0.0")),
		KV("nested", Array(Int(1), Double(-2.5), Object(KV("deep", Bool(true))))),
	)),
	KV("unicode", Str("héllo, 世界")),
	KV("long", Str(strings.Repeat("x", 300))),
)

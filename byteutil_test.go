package bipf

import (
	"math"
	"reflect"
	"testing"
)

func TestGrow(t *testing.T) {
	buf := []byte{1, 2}
	off, buf := grow(buf, 3)
	if off != 2 || len(buf) != 5 {
		t.Fatalf("grow = (%d, len %d), wanted (2, len 5)", off, len(buf))
	}
	if cap(buf) < 16 {
		t.Errorf("cap(buf) = %d, wanted >= 16", cap(buf))
	}
	copy(buf[off:], []byte{3, 4, 5})
	if !reflect.DeepEqual(buf, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("buf = %x, wanted 0102030405", buf)
	}

	big := ensureCapacity(buf, 100)
	if cap(big) < 100 || !reflect.DeepEqual(big, buf) {
		t.Errorf("ensureCapacity = %x (cap %d)", big, cap(big))
	}
}

func TestIntWidth(t *testing.T) {
	tests := []struct {
		v int64
		w int
	}{
		{0, 1},
		{127, 1},
		{-128, 1},
		{128, 2},
		{-129, 2},
		{math.MaxInt16, 2},
		{math.MinInt16, 2},
		{math.MaxInt16 + 1, 4},
		{math.MaxInt32, 4},
		{math.MinInt32, 4},
		{math.MaxInt32 + 1, 8},
		{math.MinInt32 - 1, 8},
		{math.MaxInt64, 8},
		{math.MinInt64, 8},
	}
	for _, tt := range tests {
		w := intWidth(tt.v)
		if w != tt.w {
			t.Errorf("intWidth(%d) = %d, wanted %d", tt.v, w, tt.w)
		}
		b := make([]byte, w)
		putIntLE(b, tt.v, w)
		if a, ok := readIntLE(b); a != tt.v || !ok {
			t.Errorf("readIntLE(putIntLE(%d)) = %d, %v", tt.v, a, ok)
		}
	}
}

func TestReadIntLE_invalidWidth(t *testing.T) {
	for _, n := range []int{0, 3, 5, 7, 9} {
		if _, ok := readIntLE(make([]byte, n)); ok {
			t.Errorf("readIntLE of %d bytes succeeded", n)
		}
	}
}

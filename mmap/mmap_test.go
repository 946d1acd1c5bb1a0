package mmap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOptionsHas(t *testing.T) {
	var o Options = Writable | Prefault
	if !o.Has(Writable) || o.Has(SequentialAccess) {
		t.Fatalf("Options.Has returned unexpected results for %v", o)
	}
}

func TestMmapAndMunmap(t *testing.T) {
	f := must(os.Create(filepath.Join(t.TempDir(), "data")))
	defer f.Close()

	const size = 4096
	if err := f.Truncate(size); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	b, err := Mmap(f, 0, size, Writable|RandomAccess)
	if err != nil {
		t.Fatalf("Mmap: %v", err)
	}
	if len(b) != size {
		t.Fatalf("len(mmap) = %d, wanted %d", len(b), size)
	}
	b[0] = 0x42
	if err := Fdatasync(f, b); err != nil {
		t.Fatalf("Fdatasync: %v", err)
	}
	if err := Munmap(b); err != nil {
		t.Fatalf("Munmap: %v", err)
	}

	var first [1]byte
	if _, err := f.ReadAt(first[:], 0); err != nil {
		t.Fatal(err)
	}
	if first[0] != 0x42 {
		t.Errorf("byte 0 after unmap = %#x, wanted 0x42", first[0])
	}
}

func TestMmap_PanicsOnNonZeroOffset(t *testing.T) {
	f := must(os.Create(filepath.Join(t.TempDir(), "data")))
	defer f.Close()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	_, _ = Mmap(f, 1, 1, 0)
}

func TestOpen(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(fn, []byte("hello, world"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Open(fn, SequentialAccess|Prefault)
	if err != nil {
		t.Fatal(err)
	}
	if a, e := string(m.Bytes()), "hello, world"; a != e {
		t.Errorf("Bytes = %q, wanted %q", a, e)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if m.Bytes() != nil {
		t.Errorf("Bytes after Close = %q, wanted nil", m.Bytes())
	}
}

func TestOpen_empty(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(fn, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Open(fn, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if b := m.Bytes(); b == nil || len(b) != 0 {
		t.Errorf("Bytes = %v, wanted an empty non-nil slice", b)
	}
}

func TestOpen_writable(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(fn, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Open(fn, Writable)
	if err != nil {
		t.Fatal(err)
	}
	m.Bytes()[1] = 'X'
	if err := m.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if a := string(must(os.ReadFile(fn))); a != "aXc" {
		t.Errorf("file = %q, wanted aXc", a)
	}
}

func TestOpen_missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), 0)
	if !os.IsNotExist(err) {
		t.Errorf("Open(missing) = %v, wanted not-exist", err)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

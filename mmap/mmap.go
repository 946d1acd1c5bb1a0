// Package mmap maps files into memory read-only or read-write, and syncs
// written data to disk.
package mmap

import (
	"errors"
	"fmt"
	"os"
)

type Options uint

const (
	// Writable opens the file for writing (otherwise, it's opened read-only).
	Writable Options = 1 << 0

	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 1

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess Options = 1 << 2

	// Prefault is a hint requesting the entire file to be loaded in memory
	// for fastest access. Maps to MAP_POPULATE on Linux.
	Prefault Options = 1 << 3
)

var ErrTooLarge = errors.New("file too large to map")

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Mmap maps size bytes of f into memory.
func Mmap(f *os.File, offset, size int, opt Options) ([]byte, error) {
	if offset != 0 {
		panic("non-zero offset not yet supported")
	}
	if size > MaxSize {
		return nil, ErrTooLarge
	}
	return mmap(f, size, opt)
}

// Fdatasync flushes the data written to f, or through mapping when it is
// non-nil, to disk without forcing a metadata update where the platform
// allows that. A failed sync leaves the on-disk state unknown; callers
// should stop writing rather than retry.
func Fdatasync(f *os.File, mapping []byte) error {
	return fdatasync(f, mapping)
}

// Munmap unmaps the given slice from memory. The slice must have been returned
// by Mmap.
func Munmap(b []byte) error {
	return munmap(b)
}

// Mapping is a whole file mapped into memory.
type Mapping struct {
	f    *os.File
	data []byte
}

// Open maps the entire current contents of the file at path. An empty file
// yields an empty mapping without calling into the OS. The mapping does not
// grow if the file is appended to later.
func Open(path string, opt Options) (*Mapping, error) {
	flag := os.O_RDONLY
	if opt.Has(Writable) {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}

	var ok bool
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size > MaxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, size)
	}

	m := &Mapping{f: f, data: []byte{}}
	if size > 0 {
		m.data, err = mmap(f, int(size), opt)
		if err != nil {
			return nil, fmt.Errorf("%s: mmap: %w", path, err)
		}
	}
	ok = true
	return m, nil
}

// Bytes returns the mapped data. It must not be used after Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// File returns the underlying open file.
func (m *Mapping) File() *os.File {
	return m.f
}

// Sync flushes writes made through a writable mapping to disk.
func (m *Mapping) Sync() error {
	if len(m.data) == 0 {
		return fdatasync(m.f, nil)
	}
	return fdatasync(m.f, m.data)
}

func (m *Mapping) Close() error {
	var err error
	if len(m.data) > 0 {
		err = munmap(m.data)
	}
	m.data = nil
	if m.f != nil {
		err = errors.Join(err, m.f.Close())
		m.f = nil
	}
	return err
}

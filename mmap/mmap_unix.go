//go:build unix

package mmap

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func mmap(f *os.File, size int, opt Options) ([]byte, error) {
	prot := unix.PROT_READ
	if opt.Has(Writable) {
		prot |= unix.PROT_WRITE
	}

	flags := unix.MAP_SHARED
	if opt.Has(Prefault) {
		flags |= populateFlag
	}

	b, err := unix.Mmap(int(f.Fd()), 0, size, prot, flags)
	if err != nil {
		return nil, err
	}

	var advice int
	var adviceName string
	switch {
	case opt.Has(SequentialAccess):
		advice, adviceName = unix.MADV_SEQUENTIAL, "MADV_SEQUENTIAL"
	case opt.Has(RandomAccess):
		advice, adviceName = unix.MADV_RANDOM, "MADV_RANDOM"
	default:
		return b, nil
	}
	err = unix.Madvise(b, advice)
	if err != nil && !errors.Is(err, syscall.ENOSYS) {
		// ENOSYS only means the kernel ignores the hint
		_ = unix.Munmap(b)
		return nil, fmt.Errorf("madvise(%s): %w", adviceName, err)
	}
	return b, nil
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}

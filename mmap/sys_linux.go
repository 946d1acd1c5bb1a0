package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

const populateFlag = unix.MAP_POPULATE

func fdatasync(f *os.File, _ []byte) error {
	return unix.Fdatasync(int(f.Fd()))
}

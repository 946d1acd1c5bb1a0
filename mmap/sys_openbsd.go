package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

const populateFlag = 0

// OpenBSD has no unified buffer cache, so mapped writes need msync.
func fdatasync(f *os.File, mapping []byte) error {
	if mapping == nil {
		return f.Sync()
	}
	return unix.Msync(mapping, unix.MS_SYNC|unix.MS_INVALIDATE)
}

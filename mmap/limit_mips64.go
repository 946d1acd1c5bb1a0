//go:build mips64 || mips64le

package mmap

// MaxSize is the largest file Mmap and Open accept: 39 bits of user
// address space.
const MaxSize = 1 << 39

//go:build amd64 || arm64 || loong64 || ppc64 || ppc64le || riscv64 || s390x

package mmap

// MaxSize is the largest file Mmap and Open accept: 48 bits of user
// address space.
const MaxSize = 1<<48 - 1

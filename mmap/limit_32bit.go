//go:build 386 || arm || ppc || mips || mipsle

package mmap

import "math"

// MaxSize is the largest file Mmap and Open accept.
const MaxSize = math.MaxInt32

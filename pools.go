package bipf

import "sync"

var encoderPool = &sync.Pool{
	New: func() any {
		return &encoder{sizes: make([]int, 0, 64)}
	},
}

func getEncoder(opt Options) *encoder {
	e := encoderPool.Get().(*encoder)
	e.opt = opt
	return e
}

func releaseEncoder(e *encoder) {
	if cap(e.sizes) > 65536 {
		return
	}
	e.sizes = e.sizes[:0]
	e.next = 0
	encoderPool.Put(e)
}

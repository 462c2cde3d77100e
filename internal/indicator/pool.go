package indicator

import "sync"

// defaultSlab is the starting capacity of pooled buffers; large enough for
// a full 2000-candle recompute after a few growth cycles.
const defaultSlab = 256

// Pool hands out reusable backing buffers so that rebuilding an indicator
// series on every new candle does not allocate. Buffers come back via Put
// and are handed out again with length zero.
type Pool[T any] struct {
	p sync.Pool
}

func NewPool[T any]() *Pool[T] {
	return &Pool[T]{
		p: sync.Pool{
			New: func() any {
				buf := make([]T, 0, defaultSlab)
				return &buf
			},
		},
	}
}

// Get returns an empty buffer with capacity of at least min.
func (p *Pool[T]) Get(min int) []T {
	bp := p.p.Get().(*[]T)
	buf := (*bp)[:0]
	if cap(buf) < min {
		p.p.Put(bp)
		size := cap(buf) * 2
		if size < min {
			size = min
		}
		buf = make([]T, 0, size)
	}
	return buf
}

// Put returns a buffer to the pool. Nil and zero-capacity buffers are
// dropped.
func (p *Pool[T]) Put(buf []T) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:0]
	p.p.Put(&buf)
}

package indicator

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"fxconnect/internal/types"
)

var (
	ErrEmpty  = errors.New("indicator series is empty")
	ErrClosed = errors.New("indicator series is closed")
)

// Calculation rebuilds an indicator's value sequence from the full candle
// window. Results are appended to dst, which arrives with length zero.
type Calculation[T comparable] func(dst []T, candles []types.Candle) []T

// Series is an index-addressable, insertion-ordered container of indicator
// values backed by buffers drawn from a shared Pool. Every Update discards
// the previous contents and rebuilds wholesale; there is no incremental
// path. Close returns the buffers to the pool; a finalizer backstops
// callers that forget, but explicit Close is the contract.
type Series[T comparable] struct {
	mu      sync.Mutex
	pool    *Pool[T]
	calc    Calculation[T]
	buf     []T // occupied prefix only; unused tail is never observed
	scratch []T
	closed  bool
}

func NewSeries[T comparable](pool *Pool[T], calc Calculation[T]) *Series[T] {
	s := &Series[T]{
		pool:    pool,
		calc:    calc,
		buf:     pool.Get(0),
		scratch: pool.Get(0),
	}
	runtime.SetFinalizer(s, func(st *Series[T]) { _ = st.Close() })
	return s
}

// Update recomputes the indicator over the candle list and replaces the
// contents. The backing buffer grows from the pool when the result
// outgrows it; the old buffer goes back to the pool.
func (s *Series[T]) Update(candles []types.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	result := s.calc(s.scratch[:0], candles)
	s.scratch = result

	s.grow(len(result))
	s.buf = s.buf[:0]
	s.buf = append(s.buf, result...)
	return nil
}

// grow ensures capacity for n values, copying the occupied prefix into the
// replacement buffer and releasing the old one.
func (s *Series[T]) grow(n int) {
	if n <= cap(s.buf) {
		return
	}
	old := s.buf
	s.buf = append(s.pool.Get(n), old...)
	s.pool.Put(old)
}

func (s *Series[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Last fails on an empty series.
func (s *Series[T]) Last() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.closed {
		return zero, ErrClosed
	}
	if len(s.buf) == 0 {
		return zero, ErrEmpty
	}
	return s.buf[len(s.buf)-1], nil
}

// LastOrZero returns the zero value instead of failing on empty.
func (s *Series[T]) LastOrZero() T {
	v, err := s.Last()
	if err != nil {
		var zero T
		return zero
	}
	return v
}

func (s *Series[T]) At(i int) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if i < 0 || i >= len(s.buf) {
		return zero, fmt.Errorf("index %d out of range [0,%d)", i, len(s.buf))
	}
	return s.buf[i], nil
}

func (s *Series[T]) Append(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.grow(len(s.buf) + 1)
	s.buf = append(s.buf, v)
	return nil
}

func (s *Series[T]) Insert(i int, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if i < 0 || i > len(s.buf) {
		return fmt.Errorf("insert index %d out of range [0,%d]", i, len(s.buf))
	}
	s.grow(len(s.buf) + 1)
	var zero T
	s.buf = append(s.buf, zero)
	copy(s.buf[i+1:], s.buf[i:])
	s.buf[i] = v
	return nil
}

func (s *Series[T]) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(s.buf) {
		return fmt.Errorf("remove index %d out of range [0,%d)", i, len(s.buf))
	}
	s.buf = append(s.buf[:i], s.buf[i+1:]...)
	return nil
}

func (s *Series[T]) Contains(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.buf {
		if have == v {
			return true
		}
	}
	return false
}

// Values copies the occupied prefix out.
func (s *Series[T]) Values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.buf))
	copy(out, s.buf)
	return out
}

// Close returns the backing buffers to the pool. Idempotent; the finalizer
// registered at construction is only a best-effort fallback for callers
// that never get here.
func (s *Series[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Put(s.buf)
	s.pool.Put(s.scratch)
	s.buf = nil
	s.scratch = nil
	runtime.SetFinalizer(s, nil)
	return nil
}

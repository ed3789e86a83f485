package pilt

import "sync/atomic"

// latch is a single-resolution future: the first Settle runs fn, every later
// Settle is a no-op.
type latch[T any] struct {
	settled atomic.Bool
	fn      func(T)
}

func newLatch[T any](fn func(T)) *latch[T] {
	return &latch[T]{fn: fn}
}

func (l *latch[T]) Settle(v T) bool {
	if !l.settled.CompareAndSwap(false, true) {
		return false
	}
	l.fn(v)
	return true
}

func (l *latch[T]) Settled() bool {
	return l.settled.Load()
}

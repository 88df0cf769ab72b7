package gring

import (
	"iter"
	"slices"
)

// Fixed capacity ring buffer, the oldest element
// is overwritten once the ring is full
type Ring[T any] struct {
	l   int
	s   []T
	pos int
}

func NewRing[T any](l int) *Ring[T] {
	return &Ring[T]{
		l:   0,
		s:   make([]T, max(l, 1)),
		pos: 0,
	}
}

func (r *Ring[T]) Size() int {
	return r.l
}

func (r *Ring[T]) Cap() int {
	return len(r.s)
}

func (r *Ring[T]) Push(e T) {
	r.s[r.pos] = e
	r.pos++
	if r.pos >= len(r.s) {
		r.pos = 0
	}
	if r.l < len(r.s) {
		r.l++
	}
}

// Shallow copy, pushing into the copy leaves the receiver untouched
func (r *Ring[T]) Clone() *Ring[T] {
	return &Ring[T]{
		l:   r.l,
		s:   slices.Clone(r.s),
		pos: r.pos,
	}
}

// Newest first
func (r *Ring[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := range r.l {
			real_pos := r.pos - 1 - i
			if real_pos < 0 {
				real_pos = len(r.s) + real_pos
			}
			if !yield(r.s[real_pos]) {
				return
			}
		}
	}
}

func (r *Ring[T]) Newest() (T, bool) {
	for e := range r.All() {
		return e, true
	}
	var zero T
	return zero, false
}

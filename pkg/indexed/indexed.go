// Values tagged with their iteration index, restored
// to index order after concurrent processing
package indexed

import (
	"iter"

	"github.com/Robogera/trackassign/pkg/gheap"
)

type Indexed[T any] struct {
	id    uint64
	value T
}

func NewIndexed[T any](id uint64, value T) Indexed[T] {
	return Indexed[T]{id, value}
}

func (i Indexed[T]) Less(other Indexed[T]) bool { return i.id < other.id }
func (i Indexed[T]) Id() uint64                 { return i.id }
func (i Indexed[T]) Value() T                   { return i.value }

// Buffers out of order values until every preceding index arrived
type Reorder[T any] struct {
	heap *gheap.Heap[Indexed[T]]
	next uint64
}

func NewReorder[T any](first uint64) *Reorder[T] {
	return &Reorder[T]{
		heap: gheap.New(Indexed[T].Less),
		next: first,
	}
}

// Values older than the next expected index are dropped
func (r *Reorder[T]) Push(v Indexed[T]) bool {
	if v.id < r.next {
		return false
	}
	r.heap.Push(v)
	return true
}

// Yields the consecutive run of buffered values starting at the next index
func (r *Reorder[T]) Ready() iter.Seq[Indexed[T]] {
	return func(yield func(Indexed[T]) bool) {
		for {
			top, ok := r.heap.Peek()
			if !ok || top.id != r.next {
				return
			}
			r.heap.Pop()
			r.next++
			if !yield(top) {
				return
			}
		}
	}
}

func (r *Reorder[T]) Pending() int { return r.heap.Len() }
func (r *Reorder[T]) Next() uint64 { return r.next }

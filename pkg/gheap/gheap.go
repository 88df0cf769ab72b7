package gheap

// Binary min heap ordered by a less function
type Heap[T any] struct {
	s    []T
	less func(T, T) bool
}

func New[T any](less func(T, T) bool) *Heap[T] {
	return &Heap[T]{s: make([]T, 0), less: less}
}

func (h *Heap[T]) down(u int) {
	for {
		v := u
		if l := 2*u + 1; l < len(h.s) && h.less(h.s[l], h.s[v]) {
			v = l
		}
		if r := 2*u + 2; r < len(h.s) && h.less(h.s[r], h.s[v]) {
			v = r
		}
		if v == u {
			return
		}
		h.s[v], h.s[u] = h.s[u], h.s[v]
		u = v
	}
}

func (h *Heap[T]) up(u int) {
	for u != 0 && h.less(h.s[u], h.s[(u-1)/2]) {
		h.s[(u-1)/2], h.s[u] = h.s[u], h.s[(u-1)/2]
		u = (u - 1) / 2
	}
}

func (h *Heap[T]) Len() int { return len(h.s) }

func (h *Heap[T]) Push(e T) {
	h.s = append(h.s, e)
	h.up(len(h.s) - 1)
}

// Removes and returns the smallest element, ok is false on an empty heap
func (h *Heap[T]) Pop() (T, bool) {
	var zero T
	n := len(h.s)
	if n == 0 {
		return zero, false
	}
	x := h.s[0]
	h.s[0] = h.s[n-1]
	h.s[n-1] = zero
	h.s = h.s[:n-1]
	h.down(0)
	return x, true
}

func (h *Heap[T]) Peek() (T, bool) {
	if len(h.s) == 0 {
		var zero T
		return zero, false
	}
	return h.s[0], true
}

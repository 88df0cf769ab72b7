package gheap

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestHeapSorts(t *testing.T) {
	h := New(func(a, b int) bool { return a < b })
	values := make([]int, 50)
	for i := range values {
		values[i] = rand.IntN(20)
		h.Push(values[i])
	}
	slices.Sort(values)
	for i, want := range values {
		got, ok := h.Pop()
		if !ok || got != want {
			t.Fatalf("Pop %d: expected %d, got %d (%v)", i, want, got, ok)
		}
	}
	if _, ok := h.Pop(); ok || h.Len() != 0 {
		t.Fatalf("Heap should be empty")
	}
}

func TestPeek(t *testing.T) {
	h := New(func(a, b string) bool { return a > b })
	if _, ok := h.Peek(); ok {
		t.Fatalf("Peek on an empty heap")
	}
	h.Push("a")
	h.Push("c")
	h.Push("b")
	if top, _ := h.Peek(); top != "c" || h.Len() != 3 {
		t.Fatalf("Unexpected top %s", top)
	}
}

package gring

import (
	"slices"
	"testing"
)

func TestRing(t *testing.T) {
	r := NewRing[string](3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Push(s)
	}
	got := slices.Collect(r.All())
	t.Logf("ring: %v", got)
	if !slices.Equal(got, []string{"e", "d", "c"}) {
		t.Fatalf("Unexpected ring content: %v", got)
	}
	if newest, ok := r.Newest(); !ok || newest != "e" {
		t.Fatalf("Unexpected newest: %s", newest)
	}
}

func TestRingPartial(t *testing.T) {
	r := NewRing[int](4)
	r.Push(1)
	r.Push(2)
	if got := slices.Collect(r.All()); !slices.Equal(got, []int{2, 1}) {
		t.Fatalf("Unexpected ring content: %v", got)
	}
}

func TestRingClone(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	c := r.Clone()
	c.Push(2)
	c.Push(3)
	if r.Size() != 1 || c.Size() != 2 {
		t.Fatalf("Clone shares state: %d %d", r.Size(), c.Size())
	}
	if got := slices.Collect(r.All()); !slices.Equal(got, []int{1}) {
		t.Fatalf("Original modified: %v", got)
	}
}

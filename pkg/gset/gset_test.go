package gset

import (
	"slices"
	"testing"
)

func TestGroupsOrder(t *testing.T) {
	g := new(Groups[int, int])
	g.Add(3, 0)
	g.Add(1, 1)
	g.Add(3, 2)
	g.Add(2, 3)
	g.Add(1, 4)
	t.Logf("groups: %s", g)
	if !slices.Equal(g.Keys(), []int{1, 2, 3}) {
		t.Fatalf("Unexpected keys: %v", g.Keys())
	}
	values, ok := g.Get(3)
	if !ok || !slices.Equal(values, []int{0, 2}) {
		t.Fatalf("Unexpected group 3: %v", values)
	}
}

func TestGroupsReplace(t *testing.T) {
	g := new(Groups[int, string])
	g.Add(1, "a", "b")
	g.Add(5, "c")
	g.Replace(1, []string{"b"})
	g.Replace(5, nil)
	g.Replace(4, []string{"d"})
	if g.Len() != 2 || !slices.Equal(g.Keys(), []int{1, 4}) {
		t.Fatalf("Unexpected groups after replace: %s", g)
	}
	values, _ := g.Get(1)
	if !slices.Equal(values, []string{"b"}) {
		t.Fatalf("Unexpected group 1: %v", values)
	}
}

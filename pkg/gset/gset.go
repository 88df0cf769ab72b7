package gset

import (
	"cmp"
	"fmt"
	"iter"
	"strings"
)

type groupNode[K cmp.Ordered, V any] struct {
	key    K
	values []V
	next   *groupNode[K, V]
}

// Values grouped by key, groups kept in ascending key order.
// Insertion order is kept inside a group
type Groups[K cmp.Ordered, V any] struct {
	head *groupNode[K, V]
	size int
}

func (g *Groups[K, V]) Add(key K, values ...V) {
	previous, current := (*groupNode[K, V])(nil), g.head
	for current != nil {
		if current.key == key {
			current.values = append(current.values, values...)
			return
		} else if current.key > key {
			break
		}
		previous, current = current, current.next
	}

	new_node := &groupNode[K, V]{key: key, values: values, next: current}
	if previous == nil {
		g.head = new_node
	} else {
		previous.next = new_node
	}
	g.size++
}

// Replaces the values of key, deletes the group when values is empty
func (g *Groups[K, V]) Replace(key K, values []V) {
	previous, current := (*groupNode[K, V])(nil), g.head
	for current != nil {
		if current.key == key {
			if len(values) > 0 {
				current.values = values
				return
			}
			if previous == nil {
				g.head = current.next
			} else {
				previous.next = current.next
			}
			g.size--
			return
		}
		previous, current = current, current.next
	}
	if len(values) > 0 {
		g.Add(key, values...)
	}
}

func (g *Groups[K, V]) Get(key K) ([]V, bool) {
	for current := g.head; current != nil; current = current.next {
		if current.key == key {
			return current.values, true
		}
	}
	return nil, false
}

func (g *Groups[K, V]) Len() int {
	return g.size
}

func (g *Groups[K, V]) Keys() []K {
	keys := make([]K, 0, g.size)
	for key := range g.All() {
		keys = append(keys, key)
	}
	return keys
}

func (g *Groups[K, V]) All() iter.Seq2[K, []V] {
	return func(yield func(K, []V) bool) {
		for n := g.head; n != nil; n = n.next {
			if !yield(n.key, n.values) {
				return
			}
		}
	}
}

func (g *Groups[K, V]) String() string {
	b := new(strings.Builder)
	b.WriteString("[ ")
	for key, values := range g.All() {
		b.WriteString(fmt.Sprintf("%v:%v ", key, values))
	}
	b.WriteString("]")
	return b.String()
}

package gmat

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"text/tabwriter"
)

type Direction bool

const (
	Vertical   Direction = true
	Horizontal Direction = false
)

// Matrix with the ability to quickly
// delete (mask) rows or columns
type Mat[T any] struct {
	s                        []T
	masked_rows, masked_cols []bool
	stride                   int
}

// Vector backed by the data of the
// underlying matrix
type Vector[T any] struct {
	Mat[T]
	index     int
	direction Direction
}

// Returns a new matrix with pre-allocated
// backing slice
func NewMat[T any](r, c int) *Mat[T] {
	return &Mat[T]{
		s:           make([]T, r*c),
		masked_rows: make([]bool, r),
		masked_cols: make([]bool, c),
		stride:      c,
	}
}

// Total number of rows and columns, masked included
func (m Mat[T]) Dims() (int, int) {
	return len(m.masked_rows), len(m.masked_cols)
}

func (m Mat[T]) At(r, c int) T {
	return m.s[m.stride*r+c]
}

// Set the value of element (r, c) in matrix m
func (m *Mat[T]) Set(r, c int, v T) {
	if r >= len(m.masked_rows) || c >= len(m.masked_cols) {
		panic(fmt.Sprintf("gmat: (%d, %d) out of bounds (%d, %d)", r, c, len(m.masked_rows), len(m.masked_cols)))
	}
	m.s[m.stride*r+c] = v
}

// Iterator over the unmasked rows (Horizontal) or
// columns (Vertical) of the reciever as vectors
func (m Mat[T]) Vectors(direction Direction) iter.Seq2[int, Vector[T]] {
	return func(yield func(int, Vector[T]) bool) {
		iterate_over := m.masked_rows
		if direction == Vertical {
			iterate_over = m.masked_cols
		}
		for ind, masked := range iterate_over {
			if masked {
				continue
			}
			if !yield(ind, Vector[T]{
				Mat: m, index: ind,
				direction: direction,
			}) {
				return
			}
		}
	}
}

// Returns element of the receiver
// at index
func (v Vector[T]) At(index int) T {
	if v.direction {
		return v.Mat.s[v.Mat.stride*index+v.index]
	} else {
		return v.Mat.s[v.Mat.stride*v.index+index]
	}
}

// Iterate over the unmasked values of vector
func (v Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		iterate_over := v.Mat.masked_cols
		if v.direction {
			iterate_over = v.Mat.masked_rows
		}
		for ind, masked := range iterate_over {
			if masked {
				continue
			}
			if !yield(ind, v.At(ind)) {
				return
			}
		}
	}
}

// True if f holds for at least one unmasked value
func (v Vector[T]) Any(f func(T) bool) bool {
	for _, value := range v.All() {
		if f(value) {
			return true
		}
	}
	return false
}

// Maps an existing matrix into a new one via f,
// masked cells are left to zero value
func Map[T, E any](m *Mat[T], f func(e T, r, c int) E) *Mat[E] {
	new_mat := &Mat[E]{
		s:           make([]E, len(m.masked_cols)*len(m.masked_rows)),
		masked_rows: slices.Clone(m.masked_rows),
		masked_cols: slices.Clone(m.masked_cols),
		stride:      m.stride,
	}
	for ind_r, vec := range m.Vectors(Horizontal) {
		for ind_c, value := range vec.All() {
			new_mat.Set(ind_r, ind_c, f(value, ind_r, ind_c))
		}
	}
	return new_mat
}

// Mask selected rows (Horizontal) or columns (Vertical).
// The backing slice is shared with the receiver
func (m Mat[T]) Mask(direction Direction, indices ...int) *Mat[T] {
	new_mat := &Mat[T]{
		s:           m.s,
		masked_rows: slices.Clone(m.masked_rows),
		masked_cols: slices.Clone(m.masked_cols),
		stride:      m.stride,
	}

	for _, ind := range indices {
		if direction == Vertical {
			new_mat.masked_cols[ind] = true
		} else {
			new_mat.masked_rows[ind] = true
		}
	}
	return new_mat
}

// Applies the mask of other (same dims) on top of the receiver's one
func (m Mat[T]) MaskLike(other interface{ Masked() ([]bool, []bool) }) *Mat[T] {
	rows, cols := other.Masked()
	new_mat := m.Mask(Horizontal)
	for ind, masked := range rows {
		new_mat.masked_rows[ind] = new_mat.masked_rows[ind] || masked
	}
	for ind, masked := range cols {
		new_mat.masked_cols[ind] = new_mat.masked_cols[ind] || masked
	}
	return new_mat
}

func (m Mat[T]) Masked() ([]bool, []bool) {
	return m.masked_rows, m.masked_cols
}

// Unmasked row (Horizontal) or column (Vertical) indices in ascending order
func (m Mat[T]) Indices(direction Direction) []int {
	indices := make([]int, 0)
	for ind := range m.Vectors(direction) {
		indices = append(indices, ind)
	}
	return indices
}

// Copies the unmasked cells into a dense 2d slice,
// returns the original index of each kept row and column
func (m Mat[T]) Compact() ([][]T, []int, []int) {
	rows, cols := m.Indices(Horizontal), m.Indices(Vertical)
	compact := make([][]T, len(rows))
	for i, ind_r := range rows {
		compact[i] = make([]T, len(cols))
		for j, ind_c := range cols {
			compact[i][j] = m.At(ind_r, ind_c)
		}
	}
	return compact, rows, cols
}

func (m Mat[T]) To2d() [][]T {
	compact, _, _ := m.Compact()
	return compact
}

// Pretty print
func (m Mat[T]) Sprintf(format string) string {
	b := new(strings.Builder)
	t := tabwriter.NewWriter(b, 3, 1, 1, ' ', 0)
	for _, vec := range m.Vectors(Horizontal) {
		for _, value := range vec.All() {
			fmt.Fprintf(t, format, value)
			fmt.Fprint(t, "\t")
		}
		fmt.Fprint(t, "\n")
	}
	t.Flush()
	return b.String()
}

func (m Mat[T]) String() string {
	return m.Sprintf("%v")
}

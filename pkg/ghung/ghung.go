// Optimal assignment solvers. Every solver minimizes the total cost
// over a possibly rectangular matrix and assigns min(rows, cols) pairs.
package ghung

import (
	"fmt"
	"math"
	"slices"

	"github.com/Robogera/trackassign/pkg/enums"
	"github.com/Robogera/trackassign/pkg/errs"
	hung "github.com/arthurkushman/go-hungarian"
	hg "github.com/charles-haynes/munkres"
)

type Pair struct {
	Row, Col int
}

type Solver interface {
	Solve(cost [][]float64) ([]Pair, error)
}

func New(kind enums.SolverKind) Solver {
	if kind == enums.SolverHungarian {
		return Hungarian{}
	}
	return Munkres{}
}

// Checks the matrix is rectangular with finite values,
// returns its dimensions
func dims(cost [][]float64) (int, int, error) {
	rows := len(cost)
	if rows == 0 {
		return 0, 0, nil
	}
	cols := len(cost[0])
	for ind_r, row := range cost {
		if len(row) != cols {
			return 0, 0, fmt.Errorf(
				"Row %d has %d columns, expected %d. Error: %w",
				ind_r, len(row), cols, errs.ERR_INVARIANT)
		}
		for ind_c, value := range row {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return 0, 0, fmt.Errorf(
					"Cost at (%d, %d) is %f. Error: %w",
					ind_r, ind_c, value, errs.ERR_INVARIANT)
			}
		}
	}
	return rows, cols, nil
}

// Copies cost into a n x n matrix, n = max(rows, cols).
// Padding cells share one constant so they don't change the optimum
func square(cost [][]float64, rows, cols int) [][]float64 {
	n := max(rows, cols)
	padded := make([][]float64, n)
	for ind_r := range n {
		padded[ind_r] = make([]float64, n)
		if ind_r < rows {
			copy(padded[ind_r], cost[ind_r])
		}
	}
	return padded
}

func sortPairs(pairs []Pair) []Pair {
	slices.SortFunc(pairs, func(a, b Pair) int { return a.Row - b.Row })
	return pairs
}

func total(cost [][]float64, pairs []Pair) float64 {
	var sum float64
	for _, p := range pairs {
		sum += cost[p.Row][p.Col]
	}
	return sum
}

// Reduction method from arthurkushman/go-hungarian. The reduction can stop
// with fewer than min(rows, cols) pairs or a non minimal total, its result
// is checked against Munkres and replaced when worse
type Hungarian struct{}

func (Hungarian) Solve(cost [][]float64) ([]Pair, error) {
	rows, cols, err := dims(cost)
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return []Pair{}, nil
	}
	ass := hung.SolveMin(square(cost, rows, cols))
	pairs := make([]Pair, 0, min(rows, cols))
	used_cols := make(map[int]bool, cols)
	for r, assigned := range ass {
		if r >= rows {
			continue
		}
		for c := range assigned {
			if c < cols && !used_cols[c] {
				used_cols[c] = true
				pairs = append(pairs, Pair{Row: r, Col: c})
				break
			}
		}
	}
	exact, err := Munkres{}.Solve(cost)
	if err != nil {
		return nil, err
	}
	if len(pairs) < min(rows, cols) || total(cost, pairs) > total(cost, exact)+1e-9 {
		return exact, nil
	}
	return sortPairs(pairs), nil
}

// Munkres algorithm from charles-haynes/munkres
type Munkres struct{}

func (Munkres) Solve(cost [][]float64) ([]Pair, error) {
	rows, cols, err := dims(cost)
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return []Pair{}, nil
	}
	HA, err := hg.NewHungarianAlgorithm(square(cost, rows, cols))
	if err != nil {
		return nil, fmt.Errorf("Can't build munkres solver. Error: %w", err)
	}
	pairs := make([]Pair, 0, min(rows, cols))
	for r, c := range HA.Execute() {
		if r < rows && c >= 0 && c < cols {
			pairs = append(pairs, Pair{Row: r, Col: c})
		}
	}
	return sortPairs(pairs), nil
}

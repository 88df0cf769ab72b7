package ghung

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Robogera/trackassign/pkg/enums"
	"github.com/Robogera/trackassign/pkg/errs"
)

func coolMatrix(r, c int, scale float64, rng *rand.Rand) [][]float64 {
	m := make([][]float64, r)
	for ind_r := range r {
		m[ind_r] = make([]float64, c)
		for ind_c := range c {
			m[ind_r][ind_c] = rng.Float64() * scale
		}
	}
	return m
}

// exhaustive search over injective row -> col assignments
func bruteForce(cost [][]float64) float64 {
	rows, cols := len(cost), len(cost[0])
	best := math.Inf(1)
	used := make([]bool, cols)
	var walk func(r int, sum float64, assigned int)
	walk = func(r int, sum float64, assigned int) {
		if r == rows {
			if assigned == min(rows, cols) && sum < best {
				best = sum
			}
			return
		}
		// leave the row unassigned only if there are more rows than columns
		if rows-r-1 >= min(rows, cols)-assigned {
			walk(r+1, sum, assigned)
		}
		for c := range cols {
			if used[c] {
				continue
			}
			used[c] = true
			walk(r+1, sum+cost[r][c], assigned+1)
			used[c] = false
		}
	}
	walk(0, 0, 0)
	return best
}

func checkSolver(t *testing.T, s Solver) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, shape := range [][2]int{{3, 3}, {2, 4}, {4, 2}, {1, 3}, {5, 5}} {
		cost := coolMatrix(shape[0], shape[1], 10, rng)
		pairs, err := s.Solve(cost)
		if err != nil {
			t.Fatalf("Can't solve %v: %s", shape, err)
		}
		if len(pairs) != min(shape[0], shape[1]) {
			t.Fatalf("Expected %d pairs for %v, got %v", min(shape[0], shape[1]), shape, pairs)
		}
		for i := 1; i < len(pairs); i++ {
			if pairs[i-1].Row >= pairs[i].Row {
				t.Fatalf("Pairs are not sorted by row: %v", pairs)
			}
		}
		got, want := total(cost, pairs), bruteForce(cost)
		t.Logf("shape %v: solver %.4f, brute force %.4f", shape, got, want)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("Suboptimal assignment for %v: %f > %f", shape, got, want)
		}
	}
}

func TestHungarian(t *testing.T) {
	checkSolver(t, New(enums.SolverHungarian))
}

func TestMunkres(t *testing.T) {
	checkSolver(t, New(enums.SolverMunkres))
}

func TestDefaultIsMunkres(t *testing.T) {
	kind, err := enums.ParseSolverKind("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := New(kind).(Munkres); !ok {
		t.Fatalf("Expected Munkres as the default solver")
	}
}

// the reduction alone leaves the second row unassigned here
func TestHungarianIncomplete(t *testing.T) {
	cost := [][]float64{
		{0, 0.19},
		{0.0975, 0.1025},
	}
	pairs, err := Hungarian{}.Solve(cost)
	if err != nil {
		t.Fatalf("Can't solve: %s", err)
	}
	if len(pairs) != 2 || total(cost, pairs) != 0.1025 {
		t.Fatalf("Expected a complete optimal assignment, got %v", pairs)
	}
}

func TestIouScenario(t *testing.T) {
	cost := [][]float64{
		{0, 0.19},
		{0.0975, 0.1025},
	}
	for _, s := range []Solver{Hungarian{}, Munkres{}} {
		pairs, err := s.Solve(cost)
		if err != nil {
			t.Fatalf("Can't solve: %s", err)
		}
		if len(pairs) != 2 || pairs[0] != (Pair{0, 0}) || pairs[1] != (Pair{1, 1}) {
			t.Fatalf("Unexpected pairs %v", pairs)
		}
	}
}

func TestBadInput(t *testing.T) {
	pairs, err := Hungarian{}.Solve(nil)
	if err != nil || len(pairs) != 0 {
		t.Fatalf("Empty matrix should give no pairs, got %v %v", pairs, err)
	}
	_, err = Hungarian{}.Solve([][]float64{{1, 2}, {1}})
	if !errors.Is(err, errs.ERR_INVARIANT) {
		t.Fatalf("Expected invariant error for ragged matrix, got %v", err)
	}
	_, err = Munkres{}.Solve([][]float64{{math.NaN()}})
	if !errors.Is(err, errs.ERR_INVARIANT) {
		t.Fatalf("Expected invariant error for NaN cost, got %v", err)
	}
}

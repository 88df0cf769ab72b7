// Linear Kalman filter over gonum matrices. The observation
// projects the first dim state components and supports partially
// observed vectors (missing entries are dropped from the update).
package kalman

import (
	"fmt"
	"math"

	"github.com/Robogera/trackassign/pkg/errs"
	"gonum.org/v1/gonum/mat"
)

const (
	DynamicConstantPosition = "constant-position"
	DynamicConstantVelocity = "constant-velocity"
)

type Model struct {
	dim                  int
	state_dim            int
	dynamic              string
	process_variance     float64
	measurement_variance float64
	init_variance        float64
}

// Filter state at a given iteration index
type State struct {
	Mean       *mat.VecDense
	Covariance *mat.SymDense
	Index      int
}

func NewModel(dynamic string, dim int, process_variance, measurement_variance, init_variance float64) (*Model, error) {
	if dim < 1 {
		return nil, fmt.Errorf("Invalid dimension %d. Error: %w", dim, errs.ERR_CONFIGURATION)
	}
	if measurement_variance <= 0 || init_variance <= 0 || process_variance < 0 {
		return nil, fmt.Errorf(
			"Invalid variances process=%f measurement=%f init=%f. Error: %w",
			process_variance, measurement_variance, init_variance, errs.ERR_CONFIGURATION)
	}
	state_dim := dim
	switch dynamic {
	case DynamicConstantPosition:
	case DynamicConstantVelocity:
		state_dim = 2 * dim
	default:
		return nil, fmt.Errorf("Unknown dynamic %q. Error: %w", dynamic, errs.ERR_CONFIGURATION)
	}
	return &Model{
		dim:                  dim,
		state_dim:            state_dim,
		dynamic:              dynamic,
		process_variance:     process_variance,
		measurement_variance: measurement_variance,
		init_variance:        init_variance,
	}, nil
}

func (m *Model) Dim() int { return m.dim }

// Uninformative prior at index
func (m *Model) Init(index int) *State {
	cov := mat.NewSymDense(m.state_dim, nil)
	for i := range m.state_dim {
		cov.SetSym(i, i, m.init_variance)
	}
	return &State{
		Mean:       mat.NewVecDense(m.state_dim, nil),
		Covariance: cov,
		Index:      index,
	}
}

func (m *Model) transition(dt float64) (*mat.Dense, *mat.SymDense) {
	f := mat.NewDense(m.state_dim, m.state_dim, nil)
	q := mat.NewSymDense(m.state_dim, nil)
	pv := m.process_variance
	for i := range m.state_dim {
		f.Set(i, i, 1)
	}
	if m.dynamic == DynamicConstantPosition {
		for i := range m.dim {
			q.SetSym(i, i, pv*math.Abs(dt))
		}
		return f, q
	}
	for i := range m.dim {
		f.Set(i, m.dim+i, dt)
		q.SetSym(i, i, pv*math.Abs(dt*dt*dt)/3)
		q.SetSym(i, m.dim+i, pv*dt*dt/2)
		q.SetSym(m.dim+i, m.dim+i, pv*math.Abs(dt))
	}
	return f, q
}

// Predicts the state at index from prev. A nil prev starts from the prior
func (m *Model) Predict(prev *State, index int, get_time func(int) float64) (*State, error) {
	if prev == nil {
		return m.Init(index), nil
	}
	if r, _ := prev.Covariance.Dims(); r != m.state_dim || prev.Mean.Len() != m.state_dim {
		return nil, fmt.Errorf(
			"State has dimension %d, model expects %d. Error: %w",
			r, m.state_dim, errs.ERR_INVARIANT)
	}
	dt := get_time(index) - get_time(prev.Index)
	f, q := m.transition(dt)

	mean := mat.NewVecDense(m.state_dim, nil)
	mean.MulVec(f, prev.Mean)

	var fp, fpf mat.Dense
	fp.Mul(f, prev.Covariance)
	fpf.Mul(&fp, f.T())
	fpf.Add(&fpf, q)

	if math.IsNaN(mean.AtVec(0)) {
		return nil, fmt.Errorf("Prediction produced NaN. Error: %w", errs.ERR_INVARIANT)
	}
	return &State{Mean: mean, Covariance: symmetrize(&fpf), Index: index}, nil
}

// H restricted to the observed rows
func (m *Model) projection(indexes []int) *mat.Dense {
	h := mat.NewDense(len(indexes), m.state_dim, nil)
	for row, ind := range indexes {
		h.Set(row, ind, 1)
	}
	return h
}

func (m *Model) noise(indexes []int, variance []float64) *mat.SymDense {
	r := mat.NewSymDense(len(indexes), nil)
	for row, ind := range indexes {
		v := m.measurement_variance
		if ind < len(variance) && variance[ind] > 0 {
			v = variance[ind]
		}
		r.SetSym(row, row, v)
	}
	return r
}

// innovation y = z - Hx and its covariance S = HPH' + R
func (m *Model) innovation(s *State, obs []float64, indexes []int, variance []float64) (*mat.Dense, *mat.VecDense, *mat.SymDense, error) {
	for _, ind := range indexes {
		if ind < 0 || ind >= m.dim || ind >= len(obs) {
			return nil, nil, nil, fmt.Errorf(
				"Observation index %d out of range (dimension %d, observation %d). Error: %w",
				ind, m.dim, len(obs), errs.ERR_DATA)
		}
	}
	h := m.projection(indexes)

	z := mat.NewVecDense(len(indexes), nil)
	for row, ind := range indexes {
		z.SetVec(row, obs[ind])
	}
	var hx mat.VecDense
	hx.MulVec(h, s.Mean)
	y := mat.NewVecDense(len(indexes), nil)
	y.SubVec(z, &hx)

	var hp, hph mat.Dense
	hp.Mul(h, s.Covariance)
	hph.Mul(&hp, h.T())
	hph.Add(&hph, m.noise(indexes, variance))
	return h, y, symmetrize(&hph), nil
}

// Corrects s with the observed entries of obs
func (m *Model) Correct(s *State, obs []float64, observed []bool, variance []float64) (*State, error) {
	indexes := make([]int, 0, len(obs))
	for ind := range obs {
		if ind < m.dim && (observed == nil || observed[ind]) {
			indexes = append(indexes, ind)
		}
	}
	if len(indexes) == 0 {
		return s, nil
	}
	h, y, sc, err := m.innovation(s, obs, indexes, variance)
	if err != nil {
		return nil, err
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sc); !ok {
		return nil, fmt.Errorf("Innovation covariance is not positive definite. Error: %w", errs.ERR_INVARIANT)
	}
	// K' = S^-1 H P
	var hp, kt mat.Dense
	hp.Mul(h, s.Covariance)
	if err := chol.SolveTo(&kt, &hp); err != nil {
		return nil, fmt.Errorf("Can't compute Kalman gain. Error: %w", errs.ERR_INVARIANT)
	}
	k := kt.T()

	mean := mat.NewVecDense(m.state_dim, nil)
	mean.MulVec(k, y)
	mean.AddVec(mean, s.Mean)

	var khp, cov mat.Dense
	khp.Mul(k, &hp)
	cov.Sub(s.Covariance, &khp)

	return &State{Mean: mean, Covariance: symmetrize(&cov), Index: s.Index}, nil
}

// Squared Mahalanobis distance between the observation restricted
// to indexes and the state projected in observation space
func (m *Model) SqMahalanobis(s *State, obs []float64, indexes []int, variance []float64) (float64, error) {
	if len(indexes) == 0 {
		return 0, nil
	}
	_, y, sc, err := m.innovation(s, obs, indexes, variance)
	if err != nil {
		return 0, err
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sc); !ok {
		return 0, fmt.Errorf("Innovation covariance is not positive definite. Error: %w", errs.ERR_INVARIANT)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, y); err != nil {
		return 0, fmt.Errorf("Can't invert innovation covariance. Error: %w", errs.ERR_INVARIANT)
	}
	return mat.Dot(y, &x), nil
}

func (m *Model) Mahalanobis(s *State, obs []float64, indexes []int, variance []float64) (float64, error) {
	sq, err := m.SqMahalanobis(s, obs, indexes, variance)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sq), nil
}

func symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	return s
}

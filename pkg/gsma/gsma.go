package gsma

import (
	"errors"
	"fmt"

	"github.com/Robogera/trackassign/pkg/gring"
	"golang.org/x/exp/constraints"
)

var (
	ERR_VALUE = errors.New("Bad value")
)

type Number interface {
	constraints.Float | constraints.Integer
}

// Simple moving average over the last capacity values
type SMA[T Number] struct {
	ring    *gring.Ring[T]
	sum     float64
	average float64
}

func NewSMA[T Number](capacity int) (*SMA[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("Invalid capacity: %d. Error: %w", capacity, ERR_VALUE)
	}
	return &SMA[T]{ring: gring.NewRing[T](capacity)}, nil
}

func (s *SMA[T]) oldest() (T, bool) {
	var oldest T
	var set bool
	for e := range s.ring.All() {
		oldest, set = e, true
	}
	return oldest, set
}

// Adds new_value and returns the updated average
func (s *SMA[T]) Recalc(new_value T) float64 {
	if s.ring.Size() == s.ring.Cap() {
		if oldest, ok := s.oldest(); ok {
			s.sum -= float64(oldest)
		}
	}
	s.ring.Push(new_value)
	s.sum += float64(new_value)
	s.average = s.sum / float64(s.ring.Size())
	return s.average
}

func (s *SMA[T]) Show() float64 {
	return s.average
}

func (s *SMA[T]) Len() int {
	return s.ring.Size()
}

package gsma

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSanity(t *testing.T) {
	sma, err := NewSMA[int](3)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{3, 4.5, 4, 5, 6}
	for i, v := range []int{3, 6, 3, 6, 9} {
		got := sma.Recalc(v)
		t.Logf("SMA after %d: %f", v, got)
		if math.Abs(got-expected[i]) > 1e-9 {
			t.Fatalf("Step %d: expected %f, got %f", i, expected[i], got)
		}
	}
	if sma.Len() != 3 || sma.Show() != 6 {
		t.Fatalf("Unexpected state: len %d avg %f", sma.Len(), sma.Show())
	}
}

func TestDurations(t *testing.T) {
	sma, _ := NewSMA[time.Duration](2)
	sma.Recalc(time.Second)
	sma.Recalc(3 * time.Second)
	if time.Duration(sma.Show()) != 2*time.Second {
		t.Fatalf("Unexpected average %v", time.Duration(sma.Show()))
	}
}

func TestBadCapacity(t *testing.T) {
	if _, err := NewSMA[float32](0); !errors.Is(err, ERR_VALUE) {
		t.Fatalf("Expected ERR_VALUE, got %v", err)
	}
}

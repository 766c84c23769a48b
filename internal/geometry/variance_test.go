package geometry_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"posecoach/internal/geometry"
)

func naiveVariance(values []float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}

func TestRollingVarianceConstantSeriesIsZero(t *testing.T) {
	series := make([]float64, 50)
	for i := range series {
		series[i] = 91.5
	}
	for i, v := range geometry.RollingVariance(series, 30) {
		if v != 0 {
			t.Fatalf("index %d: variance %v, want 0", i, v)
		}
	}
}

func TestRollingVarianceShape(t *testing.T) {
	if got := geometry.RollingVariance(nil, 30); len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
	if got := geometry.RollingVariance([]float64{42}, 30); len(got) != 1 || got[0] != 0 {
		t.Fatalf("single sample: %v", got)
	}
	for n := 0; n < 70; n += 7 {
		series := make([]float64, n)
		if got := geometry.RollingVariance(series, 30); len(got) != n {
			t.Fatalf("length %d, want %d", len(got), n)
		}
	}
}

func TestRollingVarianceMatchesTrailingWindow(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	series := make([]float64, 80)
	for i := range series {
		series[i] = 60 + rng.Float64()*60
	}
	const window = 30
	got := geometry.RollingVariance(series, window)
	for i := range series {
		start := max(0, i-window+1)
		want := naiveVariance(series[start : i+1])
		if math.Abs(got[i]-want) > 1e-9*math.Max(1, want) {
			t.Fatalf("index %d: got %v want %v", i, got[i], want)
		}
	}
}

func TestRollingVarianceUsesPopulationDivisor(t *testing.T) {
	got := geometry.RollingVariance([]float64{1, 3}, 30)
	if got[1] != 1 {
		t.Fatalf("population variance of {1,3} is 1, got %v", got[1])
	}
}

func TestRollingVarianceWindowBelowOne(t *testing.T) {
	for _, v := range geometry.RollingVariance([]float64{1, 5, 9}, 0) {
		if v != 0 {
			t.Fatalf("window 1 should always be 0, got %v", v)
		}
	}
}

func TestWindowMatchesRollingVariance(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	series := make([]float64, 100)
	w := geometry.NewWindow(30)
	for i := range series {
		series[i] = 90 + rng.NormFloat64()*8
		w.Push(series[i])
		want := geometry.RollingVariance(series[:i+1], 30)[i]
		if math.Abs(w.Variance()-want) > 1e-9*math.Max(1, want) {
			t.Fatalf("sample %d: window %v, batch %v", i, w.Variance(), want)
		}
	}
	if w.Len() != 30 || w.Size() != 30 {
		t.Fatalf("Len=%d Size=%d", w.Len(), w.Size())
	}
	w.Reset()
	if w.Len() != 0 || w.Variance() != 0 || w.Mean() != 0 {
		t.Fatal("Reset should empty the window")
	}
}

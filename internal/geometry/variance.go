package geometry

import (
	"gonum.org/v1/gonum/stat"
)

// RollingVariance returns, for each index i, the population variance of the
// trailing min(window, i+1) samples ending at i. The output is aligned with
// series and never looks ahead. A window below 1 is treated as 1.
func RollingVariance(series []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(series))
	for i := range series {
		start := max(0, i-window+1)
		out[i] = popVariance(series[start : i+1])
	}
	return out
}

func popVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	v := stat.PopVariance(values, nil)
	if v < 0 {
		return 0
	}
	return v
}

// Window keeps the trailing samples of a series in a fixed ring so the
// latest rolling variance costs O(size) regardless of history length.
type Window struct {
	values []float64
	next   int
	count  int
}

// NewWindow allocates a window holding at most size samples.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{values: make([]float64, size)}
}

// Push appends v, evicting the oldest sample once the window is full.
func (w *Window) Push(v float64) {
	w.values[w.next] = v
	w.next = (w.next + 1) % len(w.values)
	if w.count < len(w.values) {
		w.count++
	}
}

// Len reports how many samples are currently held.
func (w *Window) Len() int {
	return w.count
}

// Size reports the window capacity.
func (w *Window) Size() int {
	return len(w.values)
}

// Variance returns the population variance of the held samples, or 0 when
// the window is empty.
func (w *Window) Variance() float64 {
	return popVariance(w.values[:w.count])
}

// Mean returns the mean of the held samples, or 0 when the window is empty.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return stat.Mean(w.values[:w.count], nil)
}

// Reset drops every sample.
func (w *Window) Reset() {
	w.next = 0
	w.count = 0
}

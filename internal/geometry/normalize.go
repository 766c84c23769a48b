package geometry

import "math"

// Normalize linearly rescales x from [min,max] into [0,1], clamping values
// outside the range. It returns 0 when max <= min or x is NaN.
func Normalize(x, min, max float64) float64 {
	if max <= min || math.IsNaN(x) {
		return 0
	}
	return clamp((x-min)/(max-min), 0, 1)
}

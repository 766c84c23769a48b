// Package geometry holds the pure numeric helpers behind the stability score:
// joint angles, trailing-window variance, and clamped range normalization.
//
// Degenerate input never produces an error. Zero-length vectors, empty
// windows, and empty ranges all resolve to 0.
package geometry

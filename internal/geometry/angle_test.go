package geometry_test

import (
	"math"
	"testing"

	"posecoach/internal/geometry"
	"posecoach/internal/pose"
)

func pt(x, y float64) pose.Point { return pose.Point{X: x, Y: y} }

func TestAngle(t *testing.T) {
	cases := []struct {
		name    string
		a, b, c pose.Point
		want    float64
	}{
		{"right angle", pt(1, 0), pt(0, 0), pt(0, 1), 90},
		{"collinear straight", pt(-2, 0), pt(0, 0), pt(5, 0), 180},
		{"same direction", pt(1, 1), pt(0, 0), pt(3, 3), 0},
		{"a equals b", pt(0, 0), pt(0, 0), pt(1, 1), 0},
		{"c equals b", pt(4, 2), pt(1, 1), pt(1, 1), 0},
		{"sixty degrees", pt(1, 0), pt(0, 0), pt(0.5, math.Sqrt(3)/2), 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := geometry.Angle(tc.a, tc.b, tc.c)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Angle = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAngleSymmetricInEndpoints(t *testing.T) {
	points := []pose.Point{pt(3, 7), pt(-2, 5), pt(10, -1), pt(0.1, 0.2), pt(100, 100)}
	b := pt(1, 1)
	for _, a := range points {
		for _, c := range points {
			if ab, cb := geometry.Angle(a, b, c), geometry.Angle(c, b, a); ab != cb {
				t.Fatalf("Angle not symmetric for %v, %v: %v vs %v", a, c, ab, cb)
			}
		}
	}
}

func TestAngleClampsCosineOvershoot(t *testing.T) {
	// Nearly parallel long vectors push the cosine a hair past 1.
	got := geometry.Angle(pt(1e8, 1e8+1e-8), pt(0, 0), pt(3e8, 3e8+3e-8))
	if math.IsNaN(got) || got < 0 || got > 1e-3 {
		t.Fatalf("expected ~0 without NaN, got %v", got)
	}
}

func TestTripleAngle(t *testing.T) {
	p := pose.LegPose(100, 1, 1)
	if got := geometry.TripleAngle(p, pose.KneeSet.Right); math.Abs(got-100) > 1e-9 {
		t.Fatalf("TripleAngle = %v", got)
	}
}

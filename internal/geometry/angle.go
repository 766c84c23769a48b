package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"posecoach/internal/pose"
)

// Angle returns the angle at vertex b, in degrees [0,180], between the
// vectors b->a and b->c. It returns 0 when either vector has zero length.
func Angle(a, b, c pose.Point) float64 {
	u := mgl64.Vec2{a.X - b.X, a.Y - b.Y}
	v := mgl64.Vec2{c.X - b.X, c.Y - b.Y}
	m := u.Len() * v.Len()
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	cos := clamp(u.Dot(v)/m, -1, 1)
	return math.Acos(cos) * 180 / math.Pi
}

// TripleAngle measures t on p.
func TripleAngle(p *pose.Pose, t pose.Triple) float64 {
	return Angle(p.At(t.A), p.At(t.B), p.At(t.C))
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

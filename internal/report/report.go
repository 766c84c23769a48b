// Package report summarizes a scoring session and renders its score chart.
package report

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"posecoach/internal/scorer"
)

// StableThreshold is the score at or above which a frame counts as stable.
const StableThreshold = 0.8

// Point is one scored frame.
type Point struct {
	Seq   int     `json:"seq"`
	Angle float64 `json:"angle"`
	Score float64 `json:"score"`
	Heat  float64 `json:"heat"`
}

// Summary aggregates a run's points.
type Summary struct {
	Frames        int     `json:"frames"`
	MeanScore     float64 `json:"mean_score"`
	MinScore      float64 `json:"min_score"`
	MaxScore      float64 `json:"max_score"`
	FinalScore    float64 `json:"final_score"`
	StableFrames  int     `json:"stable_frames"`
	StableShare   float64 `json:"stable_share"`
	LongestStable int     `json:"longest_stable"`
	MeanAngle     float64 `json:"mean_angle"`
	AngleStdDev   float64 `json:"angle_stddev"`
}

// Collector accumulates points from a session. Observe matches the session
// listener signature.
type Collector struct {
	mu     sync.Mutex
	points []Point
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Observe records r.
func (c *Collector) Observe(r scorer.Result) {
	c.mu.Lock()
	c.points = append(c.points, Point{Seq: r.Seq, Angle: r.Angle, Score: r.Score, Heat: r.Heat})
	c.mu.Unlock()
}

// Points returns a copy of the recorded points.
func (c *Collector) Points() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Point(nil), c.points...)
}

// Len reports how many points were recorded.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.points)
}

// Reset drops every point.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.points = nil
	c.mu.Unlock()
}

// Summary aggregates the recorded points.
func (c *Collector) Summary() Summary {
	return Summarize(c.Points())
}

// Summarize aggregates points. An empty slice yields the zero Summary.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}
	scores := make([]float64, len(points))
	angles := make([]float64, len(points))
	sum := Summary{
		Frames:     len(points),
		MinScore:   math.Inf(1),
		MaxScore:   math.Inf(-1),
		FinalScore: points[len(points)-1].Score,
	}
	run := 0
	for i, p := range points {
		scores[i] = p.Score
		angles[i] = p.Angle
		sum.MinScore = math.Min(sum.MinScore, p.Score)
		sum.MaxScore = math.Max(sum.MaxScore, p.Score)
		if p.Score >= StableThreshold {
			sum.StableFrames++
			run++
			sum.LongestStable = max(sum.LongestStable, run)
		} else {
			run = 0
		}
	}
	sum.MeanScore = stat.Mean(scores, nil)
	sum.StableShare = float64(sum.StableFrames) / float64(len(points))
	sum.MeanAngle = stat.Mean(angles, nil)
	if len(angles) > 1 {
		sum.AngleStdDev = math.Sqrt(math.Max(stat.PopVariance(angles, nil), 0))
	}
	return sum
}

// Percent rounds a 0..1 score to a whole percentage.
func Percent(score float64) int {
	return int(score*100 + 0.5)
}

// Label renders a score the way the live display shows it.
func Label(score float64) string {
	return fmt.Sprintf("Technique stability %d%%", Percent(score))
}

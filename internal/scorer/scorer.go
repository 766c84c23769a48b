// Package scorer turns a stream of poses into a technique-stability score.
//
// For every detected pose the scorer measures the tracked joint angle on the
// more confident side of the body, appends it to the angle history, and
// reports how much that angle has wobbled over the trailing window. A steady
// angle scores 1 and a wobble at or above the variance ceiling scores 0.
package scorer

import (
	"fmt"
	"sync"

	"posecoach/internal/geometry"
	"posecoach/internal/pose"
)

// Defaults for Config.
const (
	DefaultWindow      = 30
	DefaultVarianceMax = 400.0
)

// Config controls the scoring window and ceiling.
type Config struct {
	Window      int
	VarianceMax float64
	Joints      pose.JointSet
}

// DefaultConfig returns the knee-tracking configuration.
func DefaultConfig() Config {
	return Config{
		Window:      DefaultWindow,
		VarianceMax: DefaultVarianceMax,
		Joints:      pose.KneeSet,
	}
}

// Validate reports configuration that cannot produce a score.
func (c Config) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("scoring window must be positive, got %d", c.Window)
	}
	if c.VarianceMax <= 0 {
		return fmt.Errorf("variance ceiling must be positive, got %v", c.VarianceMax)
	}
	if c.Joints.Name == "" {
		return fmt.Errorf("joint set is required")
	}
	return nil
}

// Result is the outcome of scoring one pose.
type Result struct {
	Seq        int       `json:"seq"`
	Angle      float64   `json:"angle"`
	Side       pose.Side `json:"side"`
	Confidence float64   `json:"confidence"`
	Variance   float64   `json:"variance"`
	Heat       float64   `json:"heat"`
	Score      float64   `json:"score"`
}

// Percent renders the score as the rounded whole percentage shown to users.
func (r Result) Percent() int {
	return int(r.Score*100 + 0.5)
}

// Scorer accumulates angle history for one session.
type Scorer struct {
	mu      sync.Mutex
	cfg     Config
	history []float64
	window  *geometry.Window
}

// New validates cfg and returns an empty scorer.
func New(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg, window: geometry.NewWindow(cfg.Window)}, nil
}

// Config returns the active configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Process scores p. A nil pose is a missed detection: it returns false and
// leaves the history untouched.
func (s *Scorer) Process(p *pose.Pose) (Result, bool) {
	if p == nil {
		return Result{}, false
	}
	side, triple, confidence := s.pick(p)
	angle := measure(p, triple, confidence)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, angle)
	s.window.Push(angle)
	variance := s.window.Variance()
	heat := geometry.Normalize(variance, 0, s.cfg.VarianceMax)
	return Result{
		Seq:        len(s.history),
		Angle:      angle,
		Side:       side,
		Confidence: confidence,
		Variance:   variance,
		Heat:       heat,
		Score:      1 - heat,
	}, true
}

// pick selects the side with the higher summed confidence. Equal confidence
// selects the right side.
func (s *Scorer) pick(p *pose.Pose) (pose.Side, pose.Triple, float64) {
	left := s.cfg.Joints.Left.Confidence(p)
	right := s.cfg.Joints.Right.Confidence(p)
	if left > right {
		return pose.SideLeft, s.cfg.Joints.Left, left
	}
	return pose.SideRight, s.cfg.Joints.Right, right
}

// Angle picks the tracked triple on p and measures it without recording.
func (s *Scorer) Angle(p *pose.Pose) float64 {
	if p == nil {
		return 0
	}
	_, triple, confidence := s.pick(p)
	return measure(p, triple, confidence)
}

// measure returns 0 when neither side carried any confidence.
func measure(p *pose.Pose, t pose.Triple, confidence float64) float64 {
	if confidence <= 0 {
		return 0
	}
	return geometry.TripleAngle(p, t)
}

// History returns a copy of every angle recorded since the last Reset.
func (s *Scorer) History() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.history))
	copy(out, s.history)
	return out
}

// Variances derives the full trailing-variance series from the history.
func (s *Scorer) Variances() []float64 {
	return geometry.RollingVariance(s.History(), s.cfg.Window)
}

// Len reports the history length.
func (s *Scorer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Reset clears the history.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.window.Reset()
}

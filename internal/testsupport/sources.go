package testsupport

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"

	"posecoach/internal/pose"
)

// Step is one scripted estimate.
type Step struct {
	Pose *pose.Pose
	Err  error
}

// ScriptedSource replays steps in order, then blocks until the context ends
// when Hold is set or reports io.EOF otherwise.
type ScriptedSource struct {
	Hold bool

	mu    sync.Mutex
	steps []Step
	calls int
}

// NewScriptedSource builds a source from steps.
func NewScriptedSource(steps ...Step) *ScriptedSource {
	return &ScriptedSource{steps: steps}
}

// NewAngleSource scores one full-confidence leg pose per knee angle.
func NewAngleSource(angles ...float64) *ScriptedSource {
	steps := make([]Step, len(angles))
	for i, p := range KneeFrames(angles...) {
		steps[i] = Step{Pose: p}
	}
	return NewScriptedSource(steps...)
}

// Estimate implements pose.Source.
func (s *ScriptedSource) Estimate(ctx context.Context) (*pose.Pose, error) {
	s.mu.Lock()
	if s.calls < len(s.steps) {
		step := s.steps[s.calls]
		s.calls++
		s.mu.Unlock()
		return step.Pose, step.Err
	}
	s.calls++
	hold := s.Hold
	s.mu.Unlock()
	if !hold {
		return nil, io.EOF
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// Calls reports how many times Estimate ran.
func (s *ScriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SolidSurface is a capture surface filled with one color. Changing Color
// between snapshots changes subsequent frames.
type SolidSurface struct {
	mu     sync.Mutex
	bounds image.Rectangle
	color  color.RGBA
	shots  int
}

// NewSolidSurface builds a w x h surface.
func NewSolidSurface(w, h int, c color.RGBA) *SolidSurface {
	return &SolidSurface{bounds: image.Rect(0, 0, w, h), color: c}
}

// SetColor changes the fill used by later snapshots.
func (s *SolidSurface) SetColor(c color.RGBA) {
	s.mu.Lock()
	s.color = c
	s.mu.Unlock()
}

// Snapshot implements capture.Surface.
func (s *SolidSurface) Snapshot() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shots++
	img := image.NewRGBA(s.bounds)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = s.color.R
		img.Pix[i+1] = s.color.G
		img.Pix[i+2] = s.color.B
		img.Pix[i+3] = s.color.A
	}
	return img, nil
}

// Shots reports how many snapshots were taken.
func (s *SolidSurface) Shots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shots
}

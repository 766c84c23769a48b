package ribbon

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"posecoach/internal/heatcolor"
)

// ErrEmptySurface is returned by Snapshot when the recorder has no surface.
var ErrEmptySurface = errors.New("ribbon surface is empty")

// Recorder owns one State and serializes access to it.
type Recorder struct {
	mu      sync.Mutex
	state   State
	palette heatcolor.Palette
	writes  int
}

// NewRecorder builds a recorder with a fresh surface.
func NewRecorder(width, height, stripeWidth int, palette heatcolor.Palette) (*Recorder, error) {
	s, err := NewState(width, height, stripeWidth)
	if err != nil {
		return nil, err
	}
	return &Recorder{state: s, palette: palette}, nil
}

// Record paints one stripe for heat and advances the cursor.
func (r *Recorder) Record(heat float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = DrawStripe(r.state, heat, r.palette)
	r.writes++
}

// Cursor returns the next column to paint.
func (r *Recorder) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Cursor
}

// Writes returns the number of stripes painted since the last Reset.
func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Bounds returns the surface rectangle.
func (r *Recorder) Bounds() image.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Surface == nil {
		return image.Rectangle{}
	}
	return r.state.Surface.Bounds()
}

// Snapshot returns a deep copy of the current surface.
func (r *Recorder) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Surface == nil || r.state.Surface.Bounds().Empty() {
		return nil, ErrEmptySurface
	}
	return Clone(r.state.Surface), nil
}

// Reset blanks the surface and rewinds the cursor.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Clear(r.state, color.Transparent)
	r.writes = 0
}

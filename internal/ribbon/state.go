package ribbon

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"posecoach/internal/heatcolor"
)

// Default surface geometry.
const (
	DefaultWidth       = 400
	DefaultHeight      = 40
	DefaultStripeWidth = 2
)

// ErrInvalidGeometry is returned for non-positive surface dimensions.
var ErrInvalidGeometry = errors.New("invalid ribbon geometry")

// State is the ribbon's owned drawing state: the surface, the next column to
// paint and the stripe width.
type State struct {
	Cursor      int
	StripeWidth int
	Surface     *image.RGBA
}

// NewState allocates a blank surface with the cursor at column 0.
func NewState(width, height, stripeWidth int) (State, error) {
	if width <= 0 || height <= 0 || stripeWidth <= 0 {
		return State{}, fmt.Errorf("%w: %dx%d stripe %d", ErrInvalidGeometry, width, height, stripeWidth)
	}
	return State{
		StripeWidth: stripeWidth,
		Surface:     image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Width returns the surface width, or 0 for a zero State.
func (s State) Width() int {
	if s.Surface == nil {
		return 0
	}
	return s.Surface.Bounds().Dx()
}

// DrawStripe paints the heat color over [cursor, cursor+stripe) for the full
// surface height, clipping at the right edge, and returns the state with the
// cursor advanced modulo the width. The surface is modified in place.
func DrawStripe(s State, heat float64, p heatcolor.Palette) State {
	width := s.Width()
	if width == 0 || s.StripeWidth <= 0 {
		return s
	}
	b := s.Surface.Bounds()
	x0 := b.Min.X + s.Cursor
	stripe := image.Rect(x0, b.Min.Y, x0+s.StripeWidth, b.Max.Y).Intersect(b)
	draw.Draw(s.Surface, stripe, image.NewUniform(p.At(heat)), image.Point{}, draw.Src)
	s.Cursor = (s.Cursor + s.StripeWidth) % width
	return s
}

// Clear fills the surface with c and rewinds the cursor.
func Clear(s State, c color.Color) State {
	if s.Surface != nil {
		draw.Draw(s.Surface, s.Surface.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	}
	s.Cursor = 0
	return s
}

// Clone deep-copies the surface so the copy can outlive later writes.
func Clone(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}

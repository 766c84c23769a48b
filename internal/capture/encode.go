package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"time"

	xdraw "golang.org/x/image/draw"
)

// DelayUnits converts an interval to GIF delay units (hundredths of a
// second), rounding to the nearest unit with a floor of 1.
func DelayUnits(interval time.Duration) int {
	cs := int((interval + 5*time.Millisecond) / (10 * time.Millisecond))
	return max(cs, 1)
}

// Encode writes frames as a looping animated GIF with interval between
// frames. scale > 1 enlarges each frame by that integer factor.
func Encode(frames []*image.RGBA, interval time.Duration, scale int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if err := CheckScale(scale); err != nil {
		return nil, err
	}
	if scale < 1 {
		scale = 1
	}
	pal, exact := buildPalette(frames)
	delay := DelayUnits(interval)

	anim := &gif.GIF{LoopCount: 0}
	for i, frame := range frames {
		if frame == nil {
			return nil, fmt.Errorf("frame %d: %w", i, ErrNoSurface)
		}
		src := frame
		if scale > 1 {
			src = upscale(frame, scale)
		}
		paletted := image.NewPaletted(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()), pal)
		if exact {
			xdraw.Draw(paletted, paletted.Bounds(), src, src.Bounds().Min, xdraw.Src)
		} else {
			xdraw.FloydSteinberg.Draw(paletted, paletted.Bounds(), src, src.Bounds().Min)
		}
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, delay)
		anim.Disposal = append(anim.Disposal, gif.DisposalNone)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

func upscale(src *image.RGBA, scale int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// buildPalette collects the distinct colors across all frames and reports
// whether they fit in one GIF palette. Past 256 colors it falls back to
// Plan9, which callers dither against.
func buildPalette(frames []*image.RGBA) (color.Palette, bool) {
	seen := make(map[color.RGBA]struct{}, 256)
	pal := make(color.Palette, 0, 256)
	for _, f := range frames {
		if f == nil {
			continue
		}
		for i := 0; i+3 < len(f.Pix); i += 4 {
			c := color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: f.Pix[i+3]}
			if c.A == 0 {
				c = color.RGBA{}
			}
			if _, ok := seen[c]; ok {
				continue
			}
			if len(pal) == 256 {
				return palette.Plan9, false
			}
			seen[c] = struct{}{}
			pal = append(pal, c)
		}
	}
	if len(pal) == 0 {
		pal = append(pal, color.RGBA{})
	}
	return pal, true
}

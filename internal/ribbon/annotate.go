package ribbon

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelPadding = 4

// Annotate returns a copy of img with a caption band of label text added
// below it. The source image is not modified.
func Annotate(img image.Image, label string) *image.RGBA {
	face := basicfont.Face7x13
	band := face.Metrics().Height.Ceil() + 2*labelPadding
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+band))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(labelPadding, b.Dy()+labelPadding+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(label)
	return out
}

package enhance

import (
	"image"

	"github.com/anthonynsimon/bild/parallel"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/photoscan/internal/imaging"
)

// CLAHE parameters for automatic colour correction.
const (
	autoColorTiles     = 8
	autoColorClipLimit = 2.0
)

// AutoColor equalizes local contrast on the lightness channel only: pixels
// are converted to CIE L*a*b*, CLAHE is applied to L*, and the result is
// converted back with out-of-gamut colours clamped. Hue and chroma are
// carried through unchanged.
func AutoColor(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	plane := make([]uint8, w*h)
	chromaA := make([]float32, w*h)
	chromaB := make([]float32, w*h)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				p := src.Pix[y*src.Stride+x*4:]
				l, a, bb := rgbColor(p[0], p[1], p[2]).Lab()
				i := y*w + x
				plane[i] = imaging.ClampUint8(l * 255)
				chromaA[i] = float32(a)
				chromaB[i] = float32(bb)
			}
		}
	})

	equalized := clahe(plane, w, h, autoColorTiles, autoColorTiles, autoColorClipLimit)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				l := float64(equalized[i]) / 255
				r, g, bl := colorful.Lab(l, float64(chromaA[i]), float64(chromaB[i])).Clamped().RGB255()
				o := dst.Pix[y*dst.Stride+x*4:]
				o[0], o[1], o[2] = r, g, bl
				o[3] = src.Pix[y*src.Stride+x*4+3]
			}
		}
	})
	return dst
}

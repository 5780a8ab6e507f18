package enhance

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/photoscan/internal/imaging"
)

// Restoration strengths.
const (
	vibranceAmount  = 0.5
	shadowAmount    = 0.3
	highlightAmount = 0.3
)

// mapPixels returns a copy of src with fn applied to every pixel's colour
// channels. Alpha is copied unchanged.
func mapPixels(src *image.NRGBA, fn func(r, g, b uint8) (uint8, uint8, uint8)) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			srow := src.Pix[y*src.Stride : y*src.Stride+w*4]
			drow := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
			for i := 0; i < len(srow); i += 4 {
				drow[i], drow[i+1], drow[i+2] = fn(srow[i], srow[i+1], srow[i+2])
				drow[i+3] = srow[i+3]
			}
		}
	})
	return dst
}

// BrightnessContrast computes v*contrast + (brightness-1)*255 per colour
// channel, rounded and clamped to 0-255.
func BrightnessContrast(src *image.NRGBA, brightness, contrast float64) *image.NRGBA {
	offset := (brightness - 1) * 255

	var lut [256]uint8
	for v := range lut {
		lut[v] = imaging.ClampUint8(float64(v)*contrast + offset)
	}

	return mapPixels(src, func(r, g, b uint8) (uint8, uint8, uint8) {
		return lut[r], lut[g], lut[b]
	})
}

// Saturation scales HSV saturation by factor, clamped to [0, 1]. Hue and
// value are preserved.
func Saturation(src *image.NRGBA, factor float64) *image.NRGBA {
	return mapPixels(src, func(r, g, b uint8) (uint8, uint8, uint8) {
		h, s, v := rgbColor(r, g, b).Hsv()
		s = clamp01(s * factor)
		return hsvColor(h, s, v).RGB255()
	})
}

// RestoreColors revives faded prints: a vibrance boost that lifts muted
// colours more than saturated ones, followed by a tone curve that raises
// shadows and compresses highlights. Neutral greys stay neutral.
func RestoreColors(src *image.NRGBA) *image.NRGBA {
	return mapPixels(src, func(r, g, b uint8) (uint8, uint8, uint8) {
		h, s, v := rgbColor(r, g, b).Hsv()
		s = clamp01(s * (1 + vibranceAmount*(1-s)))
		v = clamp01(toneCurve(v))
		return hsvColor(h, s, v).RGB255()
	})
}

// toneCurve lifts values below 0.5 and lowers values above it, keeping 0, 0.5
// and 1 fixed.
func toneCurve(v float64) float64 {
	lift := shadowAmount * v * (1 - v) * (1 - v)
	compress := highlightAmount * v * v * (1 - v)
	return v + lift - compress
}

func rgbColor(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func hsvColor(h, s, v float64) colorful.Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return colorful.Hsv(h, s, v).Clamped()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

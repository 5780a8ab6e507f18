package enhance

import (
	"image"
	"image/color"
	"math"
)

func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// createPatternImage returns a colourful, position-dependent image.
func createPatternImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(40 + (x*5)%160),
				G: uint8(60 + (y*7)%140),
				B: uint8(80 + ((x+y)*3)%120),
				A: 255,
			})
		}
	}
	return img
}

// channelStats returns the mean and variance of one channel.
func channelStats(img *image.NRGBA, ch int) (mean, variance float64) {
	n := 0
	for i := ch; i < len(img.Pix); i += 4 {
		mean += float64(img.Pix[i])
		n++
	}
	mean /= float64(n)
	for i := ch; i < len(img.Pix); i += 4 {
		d := float64(img.Pix[i]) - mean
		variance += d * d
	}
	return mean, variance / float64(n)
}

func channelRange(img *image.NRGBA, ch int) (lo, hi uint8) {
	lo, hi = 255, 0
	for i := ch; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		lo = uint8(math.Min(float64(lo), float64(v)))
		hi = uint8(math.Max(float64(hi), float64(v)))
	}
	return lo, hi
}

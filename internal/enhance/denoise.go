package enhance

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/photoscan/internal/imaging"
)

// Bilateral filter parameters.
const (
	denoiseRadius     = 3
	denoiseSigmaSpace = 3.0
	denoiseSigmaColor = 25.0
)

// Denoise smooths noise while preserving edges with a bilateral filter:
// each output pixel is the average of its neighbourhood weighted by both
// spatial distance and colour difference, so pixels across a strong edge
// contribute almost nothing.
func Denoise(src *image.NRGBA) *image.NRGBA {
	return bilateral(src, denoiseRadius, denoiseSigmaSpace, denoiseSigmaColor)
}

// bilateral filters within a circular window of the given radius. Colour
// distance is the sum of absolute channel differences. Samples outside the
// image repeat the nearest edge pixel.
func bilateral(src *image.NRGBA, radius int, sigmaSpace, sigmaColor float64) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	type tap struct {
		dx, dy int
		weight float64
	}
	var taps []tap
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			if d2 > float64(radius*radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(d2 * spaceCoeff)})
		}
	}

	var colorWeight [3*255 + 1]float64
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				c := src.Pix[y*src.Stride+x*4:]
				r0, g0, b0 := int(c[0]), int(c[1]), int(c[2])

				var sumR, sumG, sumB, sumW float64
				for _, t := range taps {
					nx := clampInt(x+t.dx, 0, w-1)
					ny := clampInt(y+t.dy, 0, h-1)
					n := src.Pix[ny*src.Stride+nx*4:]
					r, g, bl := int(n[0]), int(n[1]), int(n[2])

					wt := t.weight * colorWeight[absInt(r-r0)+absInt(g-g0)+absInt(bl-b0)]
					sumR += wt * float64(r)
					sumG += wt * float64(g)
					sumB += wt * float64(bl)
					sumW += wt
				}

				o := dst.Pix[y*dst.Stride+x*4:]
				o[0] = imaging.ClampUint8(sumR / sumW)
				o[1] = imaging.ClampUint8(sumG / sumW)
				o[2] = imaging.ClampUint8(sumB / sumW)
				o[3] = c[3]
			}
		}
	})
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

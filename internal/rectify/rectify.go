// Package rectify warps a quadrilateral region of an image onto an upright
// rectangle.
package rectify

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/photoscan/internal/detection"
	"github.com/ironsheep/photoscan/internal/imaging"
	"github.com/ironsheep/photoscan/internal/scanerr"
)

// TargetSize returns the output dimensions for an ordered quad: the rounded
// longer of each pair of opposite sides.
func TargetSize(c [4]detection.Point) (width, height int) {
	w := math.Max(c[0].Dist(c[1]), c[3].Dist(c[2]))
	h := math.Max(c[0].Dist(c[3]), c[1].Dist(c[2]))
	return int(math.Round(w)), int(math.Round(h))
}

// Rectify maps the region bounded by corners (top-left, top-right,
// bottom-right, bottom-left, in img's pixel space) onto a TargetSize
// rectangle.
//
// Each output pixel centre is projected back into the source and sampled
// bilinearly; samples falling outside the source repeat the nearest edge
// pixel. An axis-aligned quad with integer corners reproduces the plain crop
// exactly.
//
// A quad with a zero-length dimension, an area below one pixel, or corners
// that admit no projective mapping yields scanerr.ErrDegenerateGeometry. The
// input image is never modified.
func Rectify(img image.Image, corners [4]detection.Point) (*image.NRGBA, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}

	width, height := TargetSize(corners)
	if width <= 0 || height <= 0 {
		return nil, scanerr.New(scanerr.KindDegenerateGeometry, "rectify",
			"target size %dx%d has a zero dimension", width, height)
	}
	if area := (&detection.Quad{Corners: corners}).Area(); area < 1 {
		return nil, scanerr.New(scanerr.KindDegenerateGeometry, "rectify",
			"quad area %.3f is below one pixel", area)
	}

	dst := [4]detection.Point{
		{X: 0, Y: 0},
		{X: float64(width), Y: 0},
		{X: float64(width), Y: float64(height)},
		{X: 0, Y: float64(height)},
	}
	forward, err := ComputeHomography(corners, dst)
	if err != nil {
		return nil, err
	}
	inverse, err := forward.Inverse()
	if err != nil {
		return nil, err
	}

	src, err := imaging.Normalize(img)
	if err != nil {
		return nil, err
	}

	return Warp(src, inverse, width, height), nil
}

// Warp renders a width x height image whose pixel (x, y) samples src at
// inverse(x+0.5, y+0.5), using bilinear interpolation with clamp-to-edge
// borders. Rows are rendered in parallel.
func Warp(src *image.NRGBA, inverse Matrix, width, height int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			row := out.Pix[y*out.Stride : y*out.Stride+width*4]
			for x := 0; x < width; x++ {
				u, v, ok := inverse.Apply(float64(x)+0.5, float64(y)+0.5)
				if !ok {
					continue
				}
				sampleBilinear(src, u-0.5, v-0.5, row[x*4:x*4+4])
			}
		}
	})

	return out
}

// sampleBilinear writes the interpolated NRGBA value at continuous pixel
// coordinate (x, y) into px. Coordinates outside the image clamp to the edge.
func sampleBilinear(src *image.NRGBA, x, y float64, px []uint8) {
	b := src.Bounds()
	maxX := float64(b.Dx() - 1)
	maxY := float64(b.Dy() - 1)
	x = math.Max(0, math.Min(x, maxX))
	y = math.Max(0, math.Min(y, maxY))

	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 > b.Dx()-1 {
		x1 = b.Dx() - 1
	}
	if y1 > b.Dy()-1 {
		y1 = b.Dy() - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	p00 := src.Pix[y0*src.Stride+x0*4:]
	p10 := src.Pix[y0*src.Stride+x1*4:]
	p01 := src.Pix[y1*src.Stride+x0*4:]
	p11 := src.Pix[y1*src.Stride+x1*4:]

	for c := 0; c < 4; c++ {
		top := lerp(float64(p00[c]), float64(p10[c]), fx)
		bottom := lerp(float64(p01[c]), float64(p11[c]), fx)
		px[c] = imaging.ClampUint8(lerp(top, bottom, fy))
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

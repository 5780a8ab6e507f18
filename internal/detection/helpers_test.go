package detection

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fillPolygon paints every pixel whose centre lies inside the convex polygon.
func fillPolygon(img *image.RGBA, pts []Point, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if insideConvex(pts, float64(x)+0.5, float64(y)+0.5) {
				img.Set(x, y, c)
			}
		}
	}
}

func insideConvex(pts []Point, x, y float64) bool {
	sign := 0.0
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (sign > 0) != (cross > 0) {
			return false
		}
	}
	return true
}

func assertPointNear(t *testing.T, got, want Point, tol float64, label string) {
	t.Helper()
	if math.Abs(got.X-want.X) > tol || math.Abs(got.Y-want.Y) > tol {
		t.Errorf("%s = (%.1f, %.1f), want (%.1f, %.1f) +/- %.1f", label, got.X, got.Y, want.X, want.Y, tol)
	}
}

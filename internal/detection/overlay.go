package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ironsheep/photoscan/internal/imaging"
)

// DefaultOverlayColor is the outline color used when none is given.
const DefaultOverlayColor = "#00FF00"

// DrawQuadOverlay returns a copy of img with the quad's outline drawn on it.
//
// hexColor accepts "#RRGGBB" or "#RRGGBBAA"; an empty string selects
// DefaultOverlayColor. thickness is the line width in pixels (minimum 1).
// Corner handles are drawn as filled squares three line widths across.
func DrawQuadOverlay(img image.Image, q *Quad, hexColor string, thickness int) (*image.NRGBA, error) {
	if q == nil {
		return nil, fmt.Errorf("quad is required")
	}
	dst, err := imaging.Normalize(img)
	if err != nil {
		return nil, err
	}

	if hexColor == "" {
		hexColor = DefaultOverlayColor
	}
	c, err := imaging.ParseHexColor(hexColor)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", hexColor, err)
	}
	if thickness < 1 {
		thickness = 1
	}

	for i := 0; i < 4; i++ {
		a, b := q.Corners[i], q.Corners[(i+1)%4]
		drawLine(dst, a, b, thickness, c)
	}
	for _, p := range q.Corners {
		fillSquare(dst, int(math.Floor(p.X)), int(math.Floor(p.Y)), 3*thickness, c)
	}
	return dst, nil
}

// drawLine rasterizes a segment with Bresenham's algorithm, stamping a
// square brush at every step.
func drawLine(dst *image.NRGBA, a, b Point, thickness int, c color.NRGBA) {
	x0, y0 := int(math.Floor(a.X)), int(math.Floor(a.Y))
	x1, y1 := int(math.Floor(b.X)), int(math.Floor(b.Y))

	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for {
		fillSquare(dst, x0, y0, thickness, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func fillSquare(dst *image.NRGBA, cx, cy, size int, c color.NRGBA) {
	half := size / 2
	r := image.Rect(cx-half, cy-half, cx-half+size, cy-half+size).Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.SetNRGBA(x, y, blend(dst.NRGBAAt(x, y), c))
		}
	}
}

// blend composites c over bg using c's alpha.
func blend(bg, c color.NRGBA) color.NRGBA {
	if c.A == 255 {
		return c
	}
	a := float64(c.A) / 255
	mix := func(f, b uint8) uint8 {
		return imaging.ClampUint8(float64(f)*a + float64(b)*(1-a))
	}
	return color.NRGBA{R: mix(c.R, bg.R), G: mix(c.G, bg.G), B: mix(c.B, bg.B), A: bg.A}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

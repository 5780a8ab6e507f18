package detection

import (
	"image"
	"math"
)

// approxPolygon simplifies a closed contour with the Douglas-Peucker
// algorithm. Vertices farther than epsilon from the simplified outline are
// kept.
//
// A closed curve has no natural endpoints, so it is first split at two
// far-apart vertices: the point farthest from the first contour point, and
// the point farthest from that one. Each of the two resulting chains is then
// simplified as an open polyline.
func approxPolygon(contour []image.Point, epsilon float64) []image.Point {
	n := len(contour)
	if n < 3 {
		out := make([]image.Point, n)
		copy(out, contour)
		return out
	}

	a := farthestFrom(contour, contour[0])
	b := farthestFrom(contour, contour[a])
	if a == b {
		return []image.Point{contour[a]}
	}
	if a > b {
		a, b = b, a
	}

	chain1 := contour[a : b+1]
	chain2 := make([]image.Point, 0, n-b+a+1)
	chain2 = append(chain2, contour[b:]...)
	chain2 = append(chain2, contour[:a+1]...)

	out := []image.Point{contour[a]}
	keep := func(p image.Point) { out = append(out, p) }
	douglasPeucker(chain1, epsilon, keep)
	out = append(out, contour[b])
	douglasPeucker(chain2, epsilon, keep)
	return out
}

// douglasPeucker reports, in order, the interior vertices of an open polyline
// that survive simplification. Endpoints are never reported.
func douglasPeucker(pts []image.Point, epsilon float64, keep func(image.Point)) {
	if len(pts) < 3 {
		return
	}

	first, last := pts[0], pts[len(pts)-1]
	maxDist, idx := -1.0, 0
	for i := 1; i < len(pts)-1; i++ {
		if d := lineDistance(pts[i], first, last); d > maxDist {
			maxDist, idx = d, i
		}
	}

	if maxDist <= epsilon {
		return
	}

	douglasPeucker(pts[:idx+1], epsilon, keep)
	keep(pts[idx])
	douglasPeucker(pts[idx:], epsilon, keep)
}

// lineDistance is the distance from p to the line through a and b, or to a
// when a and b coincide.
func lineDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return pixelDist(p, a)
	}
	cross := dx*float64(p.Y-a.Y) - dy*float64(p.X-a.X)
	return math.Abs(cross) / length
}

func farthestFrom(pts []image.Point, from image.Point) int {
	best, bestDist := 0, -1.0
	for i, p := range pts {
		if d := pixelDist(p, from); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

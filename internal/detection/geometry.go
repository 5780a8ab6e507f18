package detection

import (
	"math"
	"sort"
)

// Point is a 2D position in pixel space. Coordinates are fractional so that
// corners rescaled from the working image keep sub-pixel precision.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Quad is a detected photo boundary.
type Quad struct {
	// Corners are ordered top-left, top-right, bottom-right, bottom-left in
	// source image pixels.
	Corners [4]Point `json:"corners"`

	// Confidence is the opposite-side length agreement in [0, 1].
	Confidence float64 `json:"confidence"`

	// NormalizedCorners are Corners divided by the image width and height.
	NormalizedCorners [4]Point `json:"normalized_corners"`
}

// NewQuad orders corners, scores them and normalizes them against an image of
// the given size.
func NewQuad(corners [4]Point, width, height int) *Quad {
	ordered := OrderCorners(corners)
	q := &Quad{
		Corners:    ordered,
		Confidence: Confidence(ordered),
	}
	if width > 0 && height > 0 {
		for i, c := range ordered {
			q.NormalizedCorners[i] = Point{
				X: clampUnit(c.X / float64(width)),
				Y: clampUnit(c.Y / float64(height)),
			}
		}
	}
	return q
}

// Area returns the absolute area enclosed by the corners.
func (q *Quad) Area() float64 {
	return polygonArea(q.Corners[:])
}

// OrderCorners arranges four points as top-left, top-right, bottom-right,
// bottom-left.
//
// Points are stably sorted by X+Y: the smallest sum is top-left and the
// largest is bottom-right. Of the two middle points, the one with the strictly
// smaller Y is top-right; on equal Y the later of the two in sorted order is
// top-right. Ties in X+Y keep their input order.
func OrderCorners(pts [4]Point) [4]Point {
	sorted := pts
	sort.SliceStable(sorted[:], func(i, j int) bool {
		return sorted[i].X+sorted[i].Y < sorted[j].X+sorted[j].Y
	})

	tl, br := sorted[0], sorted[3]
	tr, bl := sorted[2], sorted[1]
	if sorted[1].Y < sorted[2].Y {
		tr, bl = sorted[1], sorted[2]
	}
	return [4]Point{tl, tr, br, bl}
}

// Confidence scores how consistent the opposite sides of an ordered quad are.
// It is the mean of min/max for the top/bottom pair and the left/right pair,
// so a rectangle scores 1. A zero-length side scores 0.
func Confidence(c [4]Point) float64 {
	top := c[0].Dist(c[1])
	bottom := c[3].Dist(c[2])
	left := c[0].Dist(c[3])
	right := c[1].Dist(c[2])

	if top == 0 || bottom == 0 || left == 0 || right == 0 {
		return 0
	}

	return (ratio(top, bottom) + ratio(left, right)) / 2
}

func ratio(a, b float64) float64 {
	return math.Min(a, b) / math.Max(a, b)
}

// polygonArea is the shoelace formula over a closed polygon.
func polygonArea(pts []Point) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

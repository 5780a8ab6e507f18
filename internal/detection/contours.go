package detection

import (
	"image"
	"math"

	"github.com/ironsheep/photoscan/internal/imaging"
)

// Moore neighbourhood in clockwise order (y down), starting west.
var mooreOffsets = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// mooreIndex maps an offset (dx+1, dy+1) to its position in mooreOffsets.
var mooreIndex = [3][3]int{
	// dx = -1, 0, 1 for dy = -1
	{1, 2, 3},
	// dy = 0
	{0, -1, 4},
	// dy = 1
	{7, 6, 5},
}

// findExternalContours returns the outer border of every 8-connected
// foreground component that is not enclosed by another component.
//
// Each contour is the ordered list of border pixels produced by Moore
// neighbour tracing, starting at the component's first pixel in raster order.
// Holes, and anything inside them, are ignored.
func findExternalContours(m *imaging.Mask) [][]image.Point {
	w, h := m.Width, m.Height
	if w == 0 || h == 0 {
		return nil
	}

	labels, seeds := labelComponents(m)
	if len(seeds) == 0 {
		return nil
	}

	outside := outsideBackground(m)
	external := make([]bool, len(seeds))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := labels[y*w+x]
			if l < 0 || external[l] {
				continue
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 ||
				outside[y*w+x-1] || outside[y*w+x+1] ||
				outside[(y-1)*w+x] || outside[(y+1)*w+x] {
				external[l] = true
			}
		}
	}

	contours := make([][]image.Point, 0, len(seeds))
	for l, seed := range seeds {
		if !external[l] {
			continue
		}
		contours = append(contours, traceBorder(labels, w, h, int32(l), seed))
	}
	return contours
}

// labelComponents assigns a label to every 8-connected foreground component.
// Background pixels are -1. seeds[l] is the first pixel of label l in raster
// order.
func labelComponents(m *imaging.Mask) ([]int32, []image.Point) {
	w, h := m.Width, m.Height
	labels := make([]int32, w*h)
	for i := range labels {
		labels[i] = -1
	}

	var seeds []image.Point
	queue := make([]int, 0, 256)

	for i, fg := range m.Pix {
		if !fg || labels[i] >= 0 {
			continue
		}
		l := int32(len(seeds))
		seeds = append(seeds, image.Pt(i%w, i/w))
		labels[i] = l

		queue = append(queue[:0], i)
		for len(queue) > 0 {
			j := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := j%w, j/w
			for _, o := range mooreOffsets {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				k := ny*w + nx
				if m.Pix[k] && labels[k] < 0 {
					labels[k] = l
					queue = append(queue, k)
				}
			}
		}
	}
	return labels, seeds
}

// outsideBackground marks background pixels 4-connected to the image border.
func outsideBackground(m *imaging.Mask) []bool {
	w, h := m.Width, m.Height
	outside := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))

	push := func(x, y int) {
		i := y*w + x
		if !m.Pix[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}
	return outside
}

// traceBorder follows the outer border of component l clockwise from start,
// which must be the component's first pixel in raster order.
//
// Tracing stops when the walk returns to start and is about to leave along
// the same step it took first.
func traceBorder(labels []int32, w, h int, l int32, start image.Point) []image.Point {
	inside := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == l
	}

	contour := []image.Point{start}

	// The west neighbour of the first raster pixel is never part of the
	// component, so tracing begins with it as the backtrack.
	cur, back := start, 0
	var first image.Point
	maxSteps := 4*w*h + 8

	for step := 0; step < maxSteps; step++ {
		next, nextBack, ok := mooreStep(cur, back, inside)
		if !ok {
			// Isolated pixel.
			return contour
		}
		if step == 0 {
			first = next
		} else if cur == start && next == first {
			break
		}
		cur, back = next, nextBack
		contour = append(contour, cur)
	}

	// The walk ends on start; drop the closing duplicate.
	if n := len(contour); n > 1 && contour[n-1] == start {
		contour = contour[:n-1]
	}
	return contour
}

// mooreStep searches the neighbours of cur clockwise, beginning just after the
// backtrack direction, and returns the first foreground pixel together with
// the backtrack direction seen from that pixel.
func mooreStep(cur image.Point, back int, inside func(image.Point) bool) (image.Point, int, bool) {
	for i := 1; i <= 8; i++ {
		d := (back + i) % 8
		n := cur.Add(mooreOffsets[d])
		if !inside(n) {
			continue
		}
		prev := cur.Add(mooreOffsets[(d+7)%8])
		o := prev.Sub(n)
		return n, mooreIndex[o.Y+1][o.X+1], true
	}
	return cur, back, false
}

// contourArea returns the absolute area enclosed by a closed contour.
func contourArea(c []image.Point) float64 {
	if len(c) < 3 {
		return 0
	}
	var sum int
	for i := range c {
		j := (i + 1) % len(c)
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// arcLength returns the length of a contour, including the closing segment
// when closed is set.
func arcLength(c []image.Point, closed bool) float64 {
	if len(c) < 2 {
		return 0
	}
	var length float64
	for i := 1; i < len(c); i++ {
		length += pixelDist(c[i-1], c[i])
	}
	if closed {
		length += pixelDist(c[len(c)-1], c[0])
	}
	return length
}

func pixelDist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

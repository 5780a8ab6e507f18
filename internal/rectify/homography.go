package rectify

import (
	"math"

	"github.com/ironsheep/photoscan/internal/detection"
	"github.com/ironsheep/photoscan/internal/scanerr"
)

// singularEpsilon is the pivot magnitude below which a system is treated as
// singular.
const singularEpsilon = 1e-10

// Matrix is a row-major 3x3 projective transform.
type Matrix [9]float64

// Identity is the transform that maps every point to itself.
var Identity = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// ComputeHomography returns the transform H with H(src[i]) = dst[i] for all
// four point pairs.
//
// H is normalized so that H[8] = 1, which leaves eight unknowns solved from
// an 8x8 linear system by Gauss-Jordan elimination with partial pivoting. A
// singular system (three collinear points, coincident corners) yields
// scanerr.ErrDegenerateGeometry.
func ComputeHomography(src, dst [4]detection.Point) (Matrix, error) {
	var a [8][8]float64
	var b [8]float64

	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		// x = (h0 X + h1 Y + h2) / (h6 X + h7 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x}
		b[r] = x

		// y = (h3 X + h4 Y + h5) / (h6 X + h7 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y}
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return Matrix{}, scanerr.New(scanerr.KindDegenerateGeometry, "homography", "corner system is singular")
	}
	return Matrix{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	for col := 0; col < 8; col++ {
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for r := col + 1; r < 8; r++ {
			if v := math.Abs(a[r][col]); v > maxAbs {
				maxAbs, pivot = v, r
			}
		}
		if maxAbs < singularEpsilon {
			return [8]float64{}, false
		}
		if pivot != col {
			a[col], a[pivot] = a[pivot], a[col]
			b[col], b[pivot] = b[pivot], b[col]
		}

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := 0; r < 8; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			factor := a[r][col]
			for c := col; c < 8; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}
	return b, true
}

// Apply maps (x, y) through m. ok is false when the point maps to infinity.
func (m Matrix) Apply(x, y float64) (float64, float64, bool) {
	w := m[6]*x + m[7]*y + m[8]
	if math.Abs(w) < singularEpsilon {
		return 0, 0, false
	}
	return (m[0]*x + m[1]*y + m[2]) / w, (m[3]*x + m[4]*y + m[5]) / w, true
}

// Inverse returns the inverse transform, computed from the adjugate.
func (m Matrix) Inverse() (Matrix, error) {
	c00 := m[4]*m[8] - m[5]*m[7]
	c01 := m[5]*m[6] - m[3]*m[8]
	c02 := m[3]*m[7] - m[4]*m[6]

	det := m[0]*c00 + m[1]*c01 + m[2]*c02
	if math.Abs(det) < singularEpsilon {
		return Matrix{}, scanerr.New(scanerr.KindDegenerateGeometry, "homography", "transform is not invertible")
	}

	inv := Matrix{
		c00, m[2]*m[7] - m[1]*m[8], m[1]*m[5] - m[2]*m[4],
		c01, m[0]*m[8] - m[2]*m[6], m[2]*m[3] - m[0]*m[5],
		c02, m[1]*m[6] - m[0]*m[7], m[0]*m[4] - m[1]*m[3],
	}
	for i := range inv {
		inv[i] /= det
	}
	return inv, nil
}

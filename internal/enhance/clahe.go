package enhance

import (
	"math"

	"github.com/ironsheep/photoscan/internal/imaging"
)

const histBins = 256

// clahe performs contrast-limited adaptive histogram equalization on an
// 8-bit plane of w*h values and returns the equalized plane.
//
// The plane is split into a tilesX x tilesY grid (reduced for planes smaller
// than the grid). Each tile's histogram is clipped at clipLimit times the
// mean bin height, the clipped excess is spread evenly over all bins, and
// the tile's cumulative histogram becomes its lookup table. Pixels blend the
// lookup tables of the four nearest tile centres bilinearly, so tile seams
// do not show.
func clahe(plane []uint8, w, h, tilesX, tilesY int, clipLimit float64) []uint8 {
	if tilesX > w {
		tilesX = w
	}
	if tilesY > h {
		tilesY = h
	}

	luts := make([][histBins]float64, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		y0, y1 := ty*h/tilesY, (ty+1)*h/tilesY
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := tx*w/tilesX, (tx+1)*w/tilesX
			luts[ty*tilesX+tx] = tileLUT(plane, w, x0, y0, x1, y1, clipLimit)
		}
	}

	tileW := float64(w) / float64(tilesX)
	tileH := float64(h) / float64(tilesY)
	out := make([]uint8, len(plane))

	for y := 0; y < h; y++ {
		gy := (float64(y)+0.5)/tileH - 0.5
		ty1 := int(math.Floor(gy))
		ay := gy - float64(ty1)
		ty2 := ty1 + 1
		ty1 = clampInt(ty1, 0, tilesY-1)
		ty2 = clampInt(ty2, 0, tilesY-1)

		for x := 0; x < w; x++ {
			gx := (float64(x)+0.5)/tileW - 0.5
			tx1 := int(math.Floor(gx))
			ax := gx - float64(tx1)
			tx2 := tx1 + 1
			tx1 = clampInt(tx1, 0, tilesX-1)
			tx2 = clampInt(tx2, 0, tilesX-1)

			v := plane[y*w+x]
			top := (1-ax)*luts[ty1*tilesX+tx1][v] + ax*luts[ty1*tilesX+tx2][v]
			bottom := (1-ax)*luts[ty2*tilesX+tx1][v] + ax*luts[ty2*tilesX+tx2][v]
			out[y*w+x] = imaging.ClampUint8((1-ay)*top + ay*bottom)
		}
	}
	return out
}

// tileLUT builds the clipped-histogram equalization table for one tile.
func tileLUT(plane []uint8, stride, x0, y0, x1, y1 int, clipLimit float64) [histBins]float64 {
	var hist [histBins]int
	for y := y0; y < y1; y++ {
		for _, v := range plane[y*stride+x0 : y*stride+x1] {
			hist[v]++
		}
	}

	area := (x1 - x0) * (y1 - y0)
	limit := int(clipLimit * float64(area) / histBins)
	if limit < 1 {
		limit = 1
	}

	clipped := 0
	for i, n := range hist {
		if n > limit {
			clipped += n - limit
			hist[i] = limit
		}
	}

	batch := clipped / histBins
	residual := clipped - batch*histBins
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := histBins / residual
		if step < 1 {
			step = 1
		}
		for i := 0; i < histBins && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [histBins]float64
	scale := 255.0 / float64(area)
	sum := 0
	for i, n := range hist {
		sum += n
		lut[i] = float64(sum) * scale
	}
	return lut
}

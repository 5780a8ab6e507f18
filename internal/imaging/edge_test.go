package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestGrayPlane_Weights(t *testing.T) {
	img := createInMemoryImage(2, 2, color.RGBA{255, 0, 0, 255})

	p := GrayPlane(img)
	if p.Width != 2 || p.Height != 2 {
		t.Fatalf("dimensions: got %dx%d, want 2x2", p.Width, p.Height)
	}
	if got := p.At(0, 0); absFloat(got-0.299*255) > 1e-9 {
		t.Errorf("red luminance: got %f, want %f", got, 0.299*255)
	}
}

func TestGrayPlane_GrayFastPath(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 1))
	g.Pix = []uint8{0, 128, 255}

	p := GrayPlane(g)
	for i, want := range []float64{0, 128, 255} {
		if p.Pix[i] != want {
			t.Errorf("Pix[%d]: got %f, want %f", i, p.Pix[i], want)
		}
	}
}

func TestPlane_AtClampsToEdge(t *testing.T) {
	p := NewPlane(2, 2)
	p.Pix = []float64{1, 2, 3, 4}

	tests := []struct {
		x, y int
		want float64
	}{
		{-5, -5, 1},
		{10, 0, 2},
		{0, 10, 3},
		{10, 10, 4},
	}
	for _, tt := range tests {
		if got := p.At(tt.x, tt.y); got != tt.want {
			t.Errorf("At(%d,%d): got %f, want %f", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestMask_Dilate(t *testing.T) {
	m := NewMask(5, 5)
	m.Set(2, 2)

	d := m.Dilate()
	if d.Count() != 9 {
		t.Fatalf("dilated count: got %d, want 9", d.Count())
	}
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			if !d.At(x, y) {
				t.Errorf("expected (%d,%d) set after dilation", x, y)
			}
		}
	}
	if m.Count() != 1 {
		t.Error("Dilate modified its receiver")
	}
}

func TestMask_DilateCorner(t *testing.T) {
	m := NewMask(3, 3)
	m.Set(0, 0)

	if got := m.Dilate().Count(); got != 4 {
		t.Errorf("corner dilation count: got %d, want 4", got)
	}
}

func TestMask_OutOfRange(t *testing.T) {
	m := NewMask(2, 2)
	m.Set(-1, 0)
	m.Set(5, 5)

	if m.Count() != 0 {
		t.Error("out-of-range Set should be ignored")
	}
	if m.At(-1, 0) {
		t.Error("out-of-range At should be false")
	}
}

func TestCanny_UniformImage(t *testing.T) {
	p := GrayPlane(createInMemoryImage(40, 40, color.RGBA{128, 128, 128, 255}))

	if n := Canny(p, 50, 150).Count(); n != 0 {
		t.Errorf("uniform image should have no edges, got %d", n)
	}
}

func TestCanny_VerticalStepIsThin(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			if x < 30 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	edges := Canny(GrayPlane(img), 50, 150)

	for y := 2; y < 38; y++ {
		count := 0
		for x := 0; x < 60; x++ {
			if edges.At(x, y) {
				count++
				if x < 28 || x > 31 {
					t.Fatalf("edge at x=%d, expected near 30", x)
				}
			}
		}
		if count != 1 {
			t.Fatalf("row %d: got %d edge pixels, want 1", y, count)
		}
	}
}

func TestCanny_HysteresisDropsWeakOnly(t *testing.T) {
	// A faint step (gradient ~ 4*20 = 80) is between the thresholds and has
	// no strong seed, so nothing survives.
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			v := uint8(100)
			if x >= 20 {
				v = 120
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}

	if n := Canny(GrayPlane(img), 50, 150).Count(); n != 0 {
		t.Errorf("weak-only edge should be suppressed, got %d pixels", n)
	}
	if n := Canny(GrayPlane(img), 50, 70).Count(); n == 0 {
		t.Error("edge above the high threshold should be kept")
	}
}

func TestEdgeMap_DetectsSquare(t *testing.T) {
	edges := EdgeMap(createEdgeTestImage(100, 100), 50, 150, 1)

	if edges.Count() == 0 {
		t.Fatal("expected edges around the square")
	}
	if edges.At(50, 50) {
		t.Error("square interior should not be an edge")
	}
}

func TestEdgeDetect(t *testing.T) {
	result, err := EdgeDetect(createEdgeTestImage(100, 100), 50, 150, 1)
	if err != nil {
		t.Fatalf("EdgeDetect failed: %v", err)
	}

	if result.Width != 100 || result.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	if result.EdgePixels == 0 {
		t.Error("EdgePixels should be > 0")
	}

	decoded, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	edgeImg, err := png.Decode(bytes.NewReader(decoded))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if edgeImg.Bounds().Dx() != 100 || edgeImg.Bounds().Dy() != 100 {
		t.Errorf("decoded image dimensions: got %dx%d, want 100x100",
			edgeImg.Bounds().Dx(), edgeImg.Bounds().Dy())
	}
}

func TestEdgeDetect_SmallImage(t *testing.T) {
	result, err := EdgeDetect(createInMemoryImage(3, 3, color.White), 50, 150, 1)
	if err != nil {
		t.Fatalf("EdgeDetect failed: %v", err)
	}
	if result.EdgePixels != 0 {
		t.Errorf("uniform 3x3 image: got %d edge pixels, want 0", result.EdgePixels)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, want int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		if got := clamp(tt.val, tt.min, tt.max); got != tt.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestClampUint8(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-3, 0},
		{0.4, 0},
		{0.5, 1},
		{127.49, 127},
		{254.6, 255},
		{400, 255},
	}
	for _, tt := range tests {
		if got := ClampUint8(tt.in); got != tt.want {
			t.Errorf("ClampUint8(%f) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

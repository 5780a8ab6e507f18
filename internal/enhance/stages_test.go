package enhance

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrightnessContrast(t *testing.T) {
	src := createTestImage(4, 4, color.NRGBA{100, 0, 250, 77})

	tests := []struct {
		name       string
		brightness float64
		contrast   float64
		want       color.NRGBA
	}{
		{"neutral", 1, 1, color.NRGBA{100, 0, 250, 77}},
		{"brighter", 1.2, 1, color.NRGBA{151, 51, 255, 77}},
		{"darker", 0.8, 1, color.NRGBA{49, 0, 199, 77}},
		{"more contrast", 1, 1.5, color.NRGBA{150, 0, 255, 77}},
		{"less contrast", 1, 0.5, color.NRGBA{50, 0, 125, 77}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := BrightnessContrast(src, tt.brightness, tt.contrast)
			assert.Equal(t, tt.want, out.NRGBAAt(2, 2))
		})
	}
}

func TestSaturation(t *testing.T) {
	src := createTestImage(3, 3, color.NRGBA{200, 100, 100, 255})

	assert.Equal(t, color.NRGBA{200, 200, 200, 255}, Saturation(src, 0).NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{200, 0, 0, 255}, Saturation(src, 2).NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{200, 0, 0, 255}, Saturation(src, 10).NRGBAAt(1, 1), "saturation clamps at 1")

	gray := createTestImage(3, 3, color.NRGBA{90, 90, 90, 255})
	assert.Equal(t, color.NRGBA{90, 90, 90, 255}, Saturation(gray, 3).NRGBAAt(0, 0))
}

func TestRestoreColors(t *testing.T) {
	dark := RestoreColors(createTestImage(2, 2, color.NRGBA{50, 50, 50, 255})).NRGBAAt(0, 0)
	assert.Greater(t, dark.R, uint8(50), "shadows are lifted")
	assert.Equal(t, dark.R, dark.G)
	assert.Equal(t, dark.R, dark.B)

	bright := RestoreColors(createTestImage(2, 2, color.NRGBA{220, 220, 220, 255})).NRGBAAt(0, 0)
	assert.Less(t, bright.R, uint8(220), "highlights are compressed")

	muted := RestoreColors(createTestImage(2, 2, color.NRGBA{200, 100, 100, 128})).NRGBAAt(0, 0)
	assert.Less(t, muted.G, uint8(100), "muted colours gain saturation")
	assert.Equal(t, uint8(128), muted.A)
}

func TestToneCurve(t *testing.T) {
	assert.Equal(t, 0.0, toneCurve(0))
	assert.Equal(t, 1.0, toneCurve(1))
	assert.InDelta(t, 0.5, toneCurve(0.5), 1e-12)

	prev := -1.0
	for v := 0.0; v <= 1.0; v += 0.01 {
		got := toneCurve(v)
		assert.Greater(t, got, prev, "curve must be monotonic")
		prev = got
	}
}

func TestSharpen(t *testing.T) {
	uniform := createTestImage(10, 10, color.NRGBA{120, 130, 140, 255})
	assert.Equal(t, uniform.Pix, Sharpen(uniform).Pix)

	step := createTestImage(20, 10, color.NRGBA{100, 100, 100, 255})
	for y := 0; y < 10; y++ {
		for x := 10; x < 20; x++ {
			step.SetNRGBA(x, y, color.NRGBA{200, 200, 200, 255})
		}
	}

	out := Sharpen(step)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(9, 5))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(10, 5))
	assert.Equal(t, color.NRGBA{100, 100, 100, 255}, out.NRGBAAt(2, 5))
}

func TestDenoise_PreservesUniformAndEdges(t *testing.T) {
	uniform := createTestImage(12, 12, color.NRGBA{60, 120, 180, 255})
	assert.Equal(t, uniform.Pix, Denoise(uniform).Pix)

	step := createTestImage(20, 10, color.NRGBA{50, 50, 50, 255})
	for y := 0; y < 10; y++ {
		for x := 10; x < 20; x++ {
			step.SetNRGBA(x, y, color.NRGBA{200, 200, 200, 255})
		}
	}
	out := Denoise(step)
	assert.Equal(t, color.NRGBA{50, 50, 50, 255}, out.NRGBAAt(9, 5))
	assert.Equal(t, color.NRGBA{200, 200, 200, 255}, out.NRGBAAt(10, 5))
}

func TestDenoise_ReducesNoise(t *testing.T) {
	src := createTestImage(32, 32, color.NRGBA{128, 128, 128, 255})
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := uint8(120)
			if (x*7+y*3)%5 < 2 {
				v = 136
			}
			src.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}

	_, before := channelStats(src, 0)
	_, after := channelStats(Denoise(src), 0)
	assert.Less(t, after, before*0.8)
}

func TestAutoColor_StretchesLowContrast(t *testing.T) {
	src := createTestImage(64, 64, color.NRGBA{})
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(100 + x*40/63)
			src.SetNRGBA(x, y, color.NRGBA{v, v, v, 200})
		}
	}

	out := AutoColor(src)
	require.Equal(t, src.Bounds(), out.Bounds())

	inLo, inHi := channelRange(src, 1)
	outLo, outHi := channelRange(out, 1)
	assert.Greater(t, int(outHi)-int(outLo), int(inHi)-int(inLo))
	assert.Equal(t, uint8(200), out.NRGBAAt(10, 10).A)
}

func TestCLAHE(t *testing.T) {
	w, h := 64, 64
	plane := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			plane[y*w+x] = uint8(100 + x*40/63)
		}
	}

	out := clahe(plane, w, h, 8, 8, 2.0)
	require.Len(t, out, len(plane))

	lo, hi := uint8(255), uint8(0)
	for _, v := range out {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	assert.Greater(t, int(hi)-int(lo), 40)

	assert.Greater(t, out[32*w+w-1], out[32*w], "gradient direction is kept")
}

func TestCLAHE_UniformAndTiny(t *testing.T) {
	plane := make([]uint8, 16*16)
	for i := range plane {
		plane[i] = 128
	}
	out := clahe(plane, 16, 16, 8, 8, 2.0)
	for _, v := range out {
		assert.Equal(t, out[0], v)
	}

	tiny := clahe([]uint8{10, 20, 30, 40, 50, 60}, 3, 2, 8, 8, 2.0)
	assert.Len(t, tiny, 6)
}

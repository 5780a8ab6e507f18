package detection

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawQuadOverlay(t *testing.T) {
	img := createTestImage(100, 80, color.White)
	q := NewQuad([4]Point{{10, 10}, {90, 10}, {90, 70}, {10, 70}}, 100, 80)

	out, err := DrawQuadOverlay(img, q, "#FF0000", 1)
	require.NoError(t, err)

	red := color.NRGBA{255, 0, 0, 255}
	assert.Equal(t, red, out.NRGBAAt(50, 10), "top edge")
	assert.Equal(t, red, out.NRGBAAt(90, 40), "right edge")
	assert.Equal(t, red, out.NRGBAAt(10, 70), "corner")
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(50, 40), "interior untouched")

	r, g, b, _ := img.At(50, 10).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, "input must not change")
}

func TestDrawQuadOverlay_DefaultColorAndTranslucency(t *testing.T) {
	img := createTestImage(50, 50, color.Black)
	q := NewQuad([4]Point{{5, 5}, {45, 5}, {45, 45}, {5, 45}}, 50, 50)

	out, err := DrawQuadOverlay(img, q, "", 0)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(25, 5))

	out, err = DrawQuadOverlay(img, q, "#FFFFFF80", 1)
	require.NoError(t, err)
	c := out.NRGBAAt(25, 5)
	assert.InDelta(t, 128, int(c.R), 1)
	assert.Equal(t, uint8(255), c.A)
}

func TestDrawQuadOverlay_Errors(t *testing.T) {
	img := createTestImage(10, 10, color.White)

	_, err := DrawQuadOverlay(img, nil, "", 1)
	assert.Error(t, err)

	q := NewQuad([4]Point{{1, 1}, {8, 1}, {8, 8}, {1, 8}}, 10, 10)
	_, err = DrawQuadOverlay(img, q, "#GG0000", 1)
	assert.Error(t, err)

	_, err = DrawQuadOverlay(nil, q, "", 1)
	assert.Error(t, err)
}

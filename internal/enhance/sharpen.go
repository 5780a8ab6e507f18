package enhance

import (
	"image"

	"github.com/anthonynsimon/bild/convolution"
	dimg "github.com/disintegration/imaging"
)

// sharpenKernel is the 4-neighbour Laplacian sharpening kernel.
var sharpenKernel = []float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// Sharpen applies a 3x3 sharpening convolution. Borders repeat the edge
// pixels and alpha is left unchanged.
func Sharpen(src *image.NRGBA) *image.NRGBA {
	k := convolution.NewKernel(3, 3)
	copy(k.Matrix, sharpenKernel)

	out := convolution.Convolve(src, k, &convolution.Options{Bias: 0, Wrap: false, KeepAlpha: true})
	return dimg.Clone(out)
}

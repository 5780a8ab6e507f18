package detection

import (
	"fmt"
	"image"
	"math"

	dimg "github.com/disintegration/imaging"

	"github.com/ironsheep/photoscan/internal/imaging"
	"github.com/ironsheep/photoscan/internal/scanerr"
)

// Options tunes the quad detector. Zero fields take the DefaultOptions value.
type Options struct {
	// WorkingWidth is the width the image is downscaled to before edge
	// detection. Images narrower than this are processed at full size.
	WorkingWidth int `json:"working_width"`

	// BlurRadius is the Gaussian blur radius applied before Canny.
	BlurRadius float64 `json:"blur_radius"`

	// CannyLow and CannyHigh are the hysteresis thresholds on a 0-255 scale.
	CannyLow  float64 `json:"canny_low"`
	CannyHigh float64 `json:"canny_high"`

	// MinArea is the smallest accepted contour area in working-image pixels.
	MinArea float64 `json:"min_area"`

	// MinAreaFraction, when positive, additionally requires the contour to
	// cover this fraction of the working image.
	MinAreaFraction float64 `json:"min_area_fraction"`

	// Epsilon is the polygon simplification tolerance as a fraction of the
	// contour perimeter.
	Epsilon float64 `json:"epsilon"`
}

// DefaultOptions returns the detector's standard tuning.
func DefaultOptions() Options {
	return Options{
		WorkingWidth: 600,
		BlurRadius:   2,
		CannyLow:     50,
		CannyHigh:    150,
		MinArea:      1000,
		Epsilon:      0.02,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WorkingWidth <= 0 {
		o.WorkingWidth = d.WorkingWidth
	}
	if o.BlurRadius < 0 {
		o.BlurRadius = 0
	}
	if o.CannyLow <= 0 {
		o.CannyLow = d.CannyLow
	}
	if o.CannyHigh <= 0 {
		o.CannyHigh = d.CannyHigh
	}
	if o.MinArea <= 0 {
		o.MinArea = d.MinArea
	}
	if o.Epsilon <= 0 {
		o.Epsilon = d.Epsilon
	}
	return o
}

// WorkingImage returns img downscaled to opts.WorkingWidth, or img itself
// when it is already narrow enough. Images are never upscaled.
func WorkingImage(img image.Image, opts Options) image.Image {
	opts = opts.withDefaults()
	if img.Bounds().Dx() <= opts.WorkingWidth {
		return img
	}
	return dimg.Resize(img, opts.WorkingWidth, 0, dimg.Box)
}

// Detect finds the dominant four-sided photo boundary in img using
// DefaultOptions.
func Detect(img image.Image) (*Quad, error) {
	return DetectWithOptions(img, DefaultOptions())
}

// DetectWithOptions finds the dominant four-sided photo boundary in img.
//
// Corners are returned in img's pixel space (relative to img.Bounds().Min),
// ordered top-left, top-right, bottom-right, bottom-left.
//
// # Algorithm
//
//  1. Downscale to WorkingWidth with box (area) filtering
//  2. Grayscale, Gaussian blur and Canny edge detection
//  3. Dilate the edge map with a 3x3 square to close small gaps
//  4. Trace the outer border of every external edge component
//  5. Keep the contour with the largest enclosed area
//  6. Simplify it with Douglas-Peucker at Epsilon times its perimeter
//  7. Accept only a four-vertex result, rescaled to source pixels
//
// When no contour qualifies the error matches scanerr.ErrNoDetection. That is
// an expected outcome, not a failure. Invalid input yields
// scanerr.ErrUnsupportedImage.
func DetectWithOptions(img image.Image, opts Options) (quad *Quad, err error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	defer func() {
		if r := recover(); r != nil {
			quad = nil
			err = scanerr.Wrap(scanerr.KindNoDetection, "detect", fmt.Errorf("%v", r), "detector panicked")
		}
	}()

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	work := WorkingImage(img, opts)
	wb := work.Bounds()
	sx := float64(width) / float64(wb.Dx())
	sy := float64(height) / float64(wb.Dy())

	edges := imaging.EdgeMap(work, opts.CannyLow, opts.CannyHigh, opts.BlurRadius).Dilate()

	var best []image.Point
	bestArea := 0.0
	for _, c := range findExternalContours(edges) {
		if a := contourArea(c); a > bestArea {
			best, bestArea = c, a
		}
	}

	minArea := opts.MinArea
	if opts.MinAreaFraction > 0 {
		minArea = math.Max(minArea, opts.MinAreaFraction*float64(wb.Dx()*wb.Dy()))
	}
	if best == nil {
		return nil, scanerr.New(scanerr.KindNoDetection, "detect", "no edge contours found")
	}
	if bestArea < minArea {
		return nil, scanerr.New(scanerr.KindNoDetection, "detect",
			"largest contour area %.0f is below minimum %.0f", bestArea, minArea)
	}

	poly := approxPolygon(best, opts.Epsilon*arcLength(best, true))
	if len(poly) != 4 {
		return nil, scanerr.New(scanerr.KindNoDetection, "detect",
			"largest contour simplifies to %d vertices, want 4", len(poly))
	}

	var corners [4]Point
	for i, p := range poly {
		corners[i] = Point{
			X: (float64(p.X) + 0.5) * sx,
			Y: (float64(p.Y) + 0.5) * sy,
		}
	}

	return NewQuad(corners, width, height), nil
}

// Package enhance applies the ordered photo enhancement stages: perspective
// correction, automatic colour correction, denoising, brightness and
// contrast, saturation, sharpening and colour restoration.
//
// Every stage reads one image and writes a fresh *image.NRGBA; inputs are
// never modified. A stage that fails or panics is skipped and recorded in
// the Report while the remaining stages continue from the last good image.
package enhance

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photoscan/internal/detection"
	"github.com/ironsheep/photoscan/internal/imaging"
	"github.com/ironsheep/photoscan/internal/logger"
	"github.com/ironsheep/photoscan/internal/rectify"
	"github.com/ironsheep/photoscan/internal/scanerr"
)

// DefaultAcceptThreshold is the minimum quad confidence for perspective
// correction.
const DefaultAcceptThreshold = 0.5

// Stage names an enhancement step.
type Stage string

const (
	StagePerspective        Stage = "perspective"
	StageAutoColor          Stage = "auto_color"
	StageDenoise            Stage = "denoise"
	StageBrightnessContrast Stage = "brightness_contrast"
	StageSaturation         Stage = "saturation"
	StageSharpen            Stage = "sharpen"
	StageRestoreColors      Stage = "restore_colors"
)

// SkippedStage is a requested stage that did not change the image.
type SkippedStage struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Report records what Enhance did.
type Report struct {
	Applied []Stage        `json:"applied"`
	Skipped []SkippedStage `json:"skipped,omitempty"`
}

// Failures returns the skipped stages that failed, as opposed to stages
// that were not eligible to run.
func (r *Report) Failures() []SkippedStage {
	var out []SkippedStage
	for _, s := range r.Skipped {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Pipeline runs enhancement stages. The zero value uses
// DefaultAcceptThreshold.
type Pipeline struct {
	// AcceptThreshold is the minimum quad confidence for the perspective
	// stage.
	AcceptThreshold float64
}

// NewPipeline creates a pipeline with the given perspective threshold.
func NewPipeline(acceptThreshold float64) *Pipeline {
	return &Pipeline{AcceptThreshold: acceptThreshold}
}

// Enhance runs the stages selected by settings with a default Pipeline.
func Enhance(img image.Image, settings Settings, quad *detection.Quad) (*image.NRGBA, *Report, error) {
	return (&Pipeline{}).Enhance(img, settings, quad)
}

type stage struct {
	name Stage
	fn   func(*image.NRGBA) (*image.NRGBA, error)
}

// Enhance applies the stages selected by settings in fixed order. quad may
// be nil; perspective correction runs only for a quad whose confidence
// reaches AcceptThreshold.
//
// The only error returned is scanerr.ErrUnsupportedImage for invalid input.
// Stage failures are reported in the Report instead.
func (p *Pipeline) Enhance(img image.Image, settings Settings, quad *detection.Quad) (*image.NRGBA, *Report, error) {
	src, err := imaging.Normalize(img)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Applied: []Stage{}}
	if settings.IsIdentity() {
		return src, report, nil
	}
	stages := p.plan(settings, quad, report)
	return p.run(src, stages, report), report, nil
}

func (p *Pipeline) threshold() float64 {
	if p.AcceptThreshold <= 0 {
		return DefaultAcceptThreshold
	}
	return p.AcceptThreshold
}

// plan lists the stages to run for settings, noting ineligible perspective
// correction in report.
func (p *Pipeline) plan(s Settings, quad *detection.Quad, report *Report) []stage {
	var stages []stage

	if s.PerspectiveCorrection && quad != nil {
		if quad.Confidence >= p.threshold() {
			corners := quad.Corners
			stages = append(stages, stage{StagePerspective, func(img *image.NRGBA) (*image.NRGBA, error) {
				return rectify.Rectify(img, corners)
			}})
		} else {
			report.Skipped = append(report.Skipped, SkippedStage{
				Stage:  StagePerspective,
				Reason: fmt.Sprintf("confidence %.3f below threshold %.3f", quad.Confidence, p.threshold()),
			})
		}
	}
	if s.AutoCorrect {
		stages = append(stages, stage{StageAutoColor, wrap(AutoColor)})
	}
	if s.Denoise {
		stages = append(stages, stage{StageDenoise, wrap(Denoise)})
	}
	if s.Brightness != 1 || s.Contrast != 1 {
		b, c := s.Brightness, s.Contrast
		stages = append(stages, stage{StageBrightnessContrast, wrap(func(img *image.NRGBA) *image.NRGBA {
			return BrightnessContrast(img, b, c)
		})})
	}
	if s.Saturation != 1 {
		f := s.Saturation
		stages = append(stages, stage{StageSaturation, wrap(func(img *image.NRGBA) *image.NRGBA {
			return Saturation(img, f)
		})})
	}
	if s.Sharpen {
		stages = append(stages, stage{StageSharpen, wrap(Sharpen)})
	}
	if s.RestoreColors {
		stages = append(stages, stage{StageRestoreColors, wrap(RestoreColors)})
	}
	return stages
}

func wrap(fn func(*image.NRGBA) *image.NRGBA) func(*image.NRGBA) (*image.NRGBA, error) {
	return func(img *image.NRGBA) (*image.NRGBA, error) {
		return fn(img), nil
	}
}

// run applies stages in order. The result is always a fresh image, even when
// no stage runs.
func (p *Pipeline) run(src *image.NRGBA, stages []stage, report *Report) *image.NRGBA {
	current := src
	for _, st := range stages {
		out, err := runStage(st, current)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"stage": st.name,
			}).WithError(err).Warn("enhancement stage skipped")
			report.Skipped = append(report.Skipped, SkippedStage{
				Stage:  st.name,
				Reason: err.Error(),
				Err:    err,
			})
			continue
		}
		current = out
		report.Applied = append(report.Applied, st.name)
	}
	return current
}

// runStage calls the stage, converting errors and panics into
// scanerr.ErrStageFailure.
func runStage(st stage, img *image.NRGBA) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = scanerr.Wrap(scanerr.KindStageFailure, string(st.name), fmt.Errorf("%v", r), "stage panicked")
		}
	}()

	out, err = st.fn(img)
	if err != nil {
		return nil, scanerr.Wrap(scanerr.KindStageFailure, string(st.name), err, "stage failed")
	}
	if out == nil {
		return nil, scanerr.New(scanerr.KindStageFailure, string(st.name), "stage produced no image")
	}
	return out, nil
}

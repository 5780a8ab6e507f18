// Package pipeline orchestrates detection, rectification and enhancement of
// a single photo, and runs batches of photos on a bounded worker pool.
package pipeline

import (
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photoscan/internal/config"
	"github.com/ironsheep/photoscan/internal/detection"
	"github.com/ironsheep/photoscan/internal/enhance"
	"github.com/ironsheep/photoscan/internal/imaging"
	"github.com/ironsheep/photoscan/internal/logger"
	"github.com/ironsheep/photoscan/internal/rectify"
	"github.com/ironsheep/photoscan/internal/scanerr"
)

// State is a step of a single Process call.
type State string

const (
	StateIdle       State = "idle"
	StateDetecting  State = "detecting"
	StateRectifying State = "rectifying"
	StateEnhancing  State = "enhancing"
	StateDone       State = "done"
)

// Result is the outcome of processing one photo.
type Result struct {
	// Image is the final photo, always a fresh image.
	Image *image.NRGBA `json:"-"`

	// Quad is the detected boundary, or nil when none was found.
	Quad *detection.Quad `json:"quad,omitempty"`

	// Accepted reports whether Quad reached the acceptance threshold.
	Accepted bool `json:"accepted"`

	// Rectified reports whether the photo was perspective corrected.
	Rectified bool `json:"rectified"`

	// States lists the steps taken, from StateIdle to StateDone.
	States []State `json:"states"`

	// Report describes the enhancement stages.
	Report *enhance.Report `json:"report"`

	Duration time.Duration `json:"duration_ns"`
}

// Processor turns a camera capture into a finished photo. It holds only
// immutable configuration and is safe for concurrent use.
type Processor struct {
	// AcceptThreshold is the minimum quad confidence for rectification.
	AcceptThreshold float64

	// Detection tunes the quad detector.
	Detection detection.Options

	enhancer *enhance.Pipeline
}

// NewProcessor builds a processor from cfg. A nil cfg uses config.Default().
func NewProcessor(cfg *config.Config) *Processor {
	if cfg == nil {
		cfg = config.Default()
	}

	opts := detection.DefaultOptions()
	opts.WorkingWidth = cfg.WorkingWidth
	opts.MinArea = cfg.MinArea

	return &Processor{
		AcceptThreshold: cfg.AcceptThreshold,
		Detection:       opts,
		enhancer:        enhance.NewPipeline(cfg.AcceptThreshold),
	}
}

// Process detects the photo boundary in img, rectifies it when the
// detection is confident enough and perspective correction is enabled, then
// applies the remaining enhancement stages.
//
// Detection misses and degenerate geometry are not errors: the photo is
// enhanced uncropped. The only error returned is scanerr.ErrUnsupportedImage.
// img is never modified.
func (p *Processor) Process(img image.Image, settings enhance.Settings) (*Result, error) {
	start := time.Now()
	res := &Result{States: []State{StateIdle}}

	src, err := imaging.Normalize(img)
	if err != nil {
		return nil, err
	}

	res.States = append(res.States, StateDetecting)
	quad, err := detection.DetectWithOptions(src, p.Detection)
	switch {
	case err == nil:
		res.Quad = quad
	case scanerr.IsKind(err, scanerr.KindUnsupportedImage):
		return nil, err
	default:
		logger.WithError(err).Debug("no photo boundary detected")
	}

	return p.finish(src, settings, res, start)
}

// ProcessWithQuad is Process with a caller-supplied boundary, such as corners
// the user adjusted by hand. Detection is skipped.
func (p *Processor) ProcessWithQuad(img image.Image, settings enhance.Settings, quad *detection.Quad) (*Result, error) {
	start := time.Now()
	res := &Result{States: []State{StateIdle}, Quad: quad}

	src, err := imaging.Normalize(img)
	if err != nil {
		return nil, err
	}
	return p.finish(src, settings, res, start)
}

func (p *Processor) finish(src *image.NRGBA, settings enhance.Settings, res *Result, start time.Time) (*Result, error) {
	b := src.Bounds()
	log := logger.WithFields(logrus.Fields{
		"width":  b.Dx(),
		"height": b.Dy(),
	})

	if res.Quad != nil {
		res.Accepted = res.Quad.Confidence >= p.AcceptThreshold
	}

	current := src
	var rectifyErr error
	if res.Accepted && settings.PerspectiveCorrection {
		res.States = append(res.States, StateRectifying)
		out, err := rectify.Rectify(src, res.Quad.Corners)
		if err != nil {
			log.WithError(err).Warn("rectification skipped")
			rectifyErr = err
		} else {
			current = out
			res.Rectified = true
		}
	}

	res.States = append(res.States, StateEnhancing)
	settings.PerspectiveCorrection = false
	out, report, err := p.enhancer.Enhance(current, settings, nil)
	if err != nil {
		return nil, err
	}
	res.Image = out
	res.Report = report
	switch {
	case res.Rectified:
		report.Applied = append([]enhance.Stage{enhance.StagePerspective}, report.Applied...)
	case rectifyErr != nil:
		report.Skipped = append([]enhance.SkippedStage{{
			Stage:  enhance.StagePerspective,
			Reason: rectifyErr.Error(),
			Err:    rectifyErr,
		}}, report.Skipped...)
	}

	res.States = append(res.States, StateDone)
	res.Duration = time.Since(start)

	fields := logrus.Fields{
		"rectified": res.Rectified,
		"stages":    len(report.Applied),
		"skipped":   len(report.Skipped),
		"duration":  res.Duration,
	}
	if res.Quad != nil {
		fields["confidence"] = res.Quad.Confidence
	}
	log.WithFields(fields).Debug("photo processed")

	if failures := report.Failures(); len(failures) > 0 {
		names := make([]string, len(failures))
		for i, f := range failures {
			names[i] = string(f.Stage)
		}
		log.WithField("failed_stages", names).Warn("photo processed with failed stages")
	}

	return res, nil
}

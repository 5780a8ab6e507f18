package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	dimg "github.com/disintegration/imaging"

	"github.com/ironsheep/photoscan/internal/detection"
	"github.com/ironsheep/photoscan/internal/enhance"
	"github.com/ironsheep/photoscan/internal/imaging"
	"github.com/ironsheep/photoscan/internal/logger"
	"github.com/ironsheep/photoscan/internal/pipeline"
	"github.com/ironsheep/photoscan/internal/rectify"
	"github.com/ironsheep/photoscan/internal/scanerr"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "photo_process").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed or out-of-range tool arguments return code -32602. Other tool
// execution errors return code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		logger.WithField("tool", params.Name).WithError(err).Debug("tool call failed")
		var ipe *invalidParamsError
		if errors.As(err, &ipe) {
			return errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return errorResponse(req.ID, codeToolFailure, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the detection, rectify, enhance or pipeline package
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Detection
	case "photo_detect":
		return s.handlePhotoDetect(args)
	case "photo_detect_overlay":
		return s.handlePhotoDetectOverlay(args)
	case "photo_edge_map":
		return s.handlePhotoEdgeMap(args)

	// Correction
	case "photo_rectify":
		return s.handlePhotoRectify(args)
	case "photo_enhance":
		return s.handlePhotoEnhance(args)
	case "photo_process":
		return s.handlePhotoProcess(args)
	case "photo_process_batch":
		return s.handlePhotoProcessBatch(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// invalidParamsError marks a tool call rejected for its arguments.
type invalidParamsError struct {
	err error
}

func (e *invalidParamsError) Error() string { return e.err.Error() }
func (e *invalidParamsError) Unwrap() error { return e.err }

func invalidParams(format string, a ...interface{}) error {
	return &invalidParamsError{err: fmt.Errorf(format, a...)}
}

// decodeArgs unmarshals tool arguments into v.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return &invalidParamsError{err: fmt.Errorf("invalid arguments: %w", err)}
	}
	return nil
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shared argument types ===

type settingsArgs struct {
	AutoCorrect           *bool    `json:"auto_correct"`
	PerspectiveCorrection *bool    `json:"perspective_correction"`
	Denoise               *bool    `json:"denoise"`
	Brightness            *float64 `json:"brightness"`
	Contrast              *float64 `json:"contrast"`
	Saturation            *float64 `json:"saturation"`
	Sharpen               *bool    `json:"sharpen"`
	RestoreColors         *bool    `json:"restore_colors"`
}

// settings overlays the given fields on enhance.DefaultSettings.
func (a settingsArgs) settings() enhance.Settings {
	s := enhance.DefaultSettings()
	setBool(&s.AutoCorrect, a.AutoCorrect)
	setBool(&s.PerspectiveCorrection, a.PerspectiveCorrection)
	setBool(&s.Denoise, a.Denoise)
	setBool(&s.Sharpen, a.Sharpen)
	setBool(&s.RestoreColors, a.RestoreColors)
	if a.Brightness != nil {
		s.Brightness = *a.Brightness
	}
	if a.Contrast != nil {
		s.Contrast = *a.Contrast
	}
	if a.Saturation != nil {
		s.Saturation = *a.Saturation
	}
	return s
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

type outputArgs struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

// encode serializes img with the requested format, using the server's JPEG
// quality when none is given.
func (s *Server) encode(img image.Image, a outputArgs) (*imaging.EncodedImage, error) {
	format, err := imaging.ParseFormat(a.Format)
	if err != nil {
		return nil, &invalidParamsError{err: err}
	}
	quality := a.Quality
	if quality == 0 {
		quality = s.quality
	}
	return imaging.EncodeBase64(img, format, quality)
}

type detectorArgs struct {
	WorkingWidth int     `json:"working_width"`
	MinArea      float64 `json:"min_area"`
	Epsilon      float64 `json:"epsilon"`
}

// options overlays the given fields on the server's detector options.
func (s *Server) options(a detectorArgs) detection.Options {
	opts := s.processor.Detection
	if a.WorkingWidth > 0 {
		opts.WorkingWidth = a.WorkingWidth
	}
	if a.MinArea > 0 {
		opts.MinArea = a.MinArea
	}
	if a.Epsilon > 0 {
		opts.Epsilon = a.Epsilon
	}
	return opts
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Detection Handlers ===

type photoDetectArgs struct {
	Path string `json:"path"`
	detectorArgs
}

// DetectResult reports a detection attempt. A miss is a normal result, not
// an error.
type DetectResult struct {
	Detected    bool            `json:"detected"`
	Quad        *detection.Quad `json:"quad,omitempty"`
	Accepted    bool            `json:"accepted"`
	Reason      string          `json:"reason,omitempty"`
	ImageWidth  int             `json:"image_width"`
	ImageHeight int             `json:"image_height"`
}

func (s *Server) detect(path string, opts detection.Options) (image.Image, *DetectResult, error) {
	li, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, err
	}
	b := li.Image.Bounds()
	res := &DetectResult{ImageWidth: b.Dx(), ImageHeight: b.Dy()}

	quad, err := detection.DetectWithOptions(li.Image, opts)
	switch {
	case err == nil:
		res.Detected = true
		res.Quad = quad
		res.Accepted = quad.Confidence >= s.processor.AcceptThreshold
	case scanerr.IsKind(err, scanerr.KindNoDetection):
		res.Reason = err.Error()
	default:
		return nil, nil, err
	}
	return li.Image, res, nil
}

func (s *Server) handlePhotoDetect(args json.RawMessage) (interface{}, error) {
	var a photoDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, res, err := s.detect(a.Path, s.options(a.detectorArgs))
	return res, err
}

type photoDetectOverlayArgs struct {
	Path      string `json:"path"`
	Color     string `json:"color"`
	Thickness int    `json:"thickness"`
	detectorArgs
	outputArgs
}

// OverlayResult is a detection with the annotated capture.
type OverlayResult struct {
	*DetectResult
	Image *imaging.EncodedImage `json:"image"`
}

func (s *Server) handlePhotoDetectOverlay(args json.RawMessage) (interface{}, error) {
	var a photoDetectOverlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Thickness == 0 {
		a.Thickness = 3
	}
	if a.Color != "" {
		if _, err := imaging.ParseHexColor(a.Color); err != nil {
			return nil, &invalidParamsError{err: err}
		}
	}

	img, res, err := s.detect(a.Path, s.options(a.detectorArgs))
	if err != nil {
		return nil, err
	}

	out := img
	if res.Quad != nil {
		if out, err = detection.DrawQuadOverlay(img, res.Quad, a.Color, a.Thickness); err != nil {
			return nil, err
		}
	}
	enc, err := s.encode(out, a.outputArgs)
	if err != nil {
		return nil, err
	}
	return &OverlayResult{DetectResult: res, Image: enc}, nil
}

type photoEdgeMapArgs struct {
	Path          string   `json:"path"`
	ThresholdLow  float64  `json:"threshold_low"`
	ThresholdHigh float64  `json:"threshold_high"`
	BlurRadius    *float64 `json:"blur_radius"`
	WorkingWidth  int      `json:"working_width"`
}

func (s *Server) handlePhotoEdgeMap(args json.RawMessage) (interface{}, error) {
	var a photoEdgeMapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts := s.options(detectorArgs{WorkingWidth: a.WorkingWidth})
	if a.ThresholdLow == 0 {
		a.ThresholdLow = opts.CannyLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = opts.CannyHigh
	}
	blurRadius := opts.BlurRadius
	if a.BlurRadius != nil {
		blurRadius = *a.BlurRadius
	}

	li, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(detection.WorkingImage(li.Image, opts), a.ThresholdLow, a.ThresholdHigh, blurRadius)
}

// === Correction Handlers ===

type photoRectifyArgs struct {
	Path    string            `json:"path"`
	Corners []detection.Point `json:"corners"`
	outputArgs
}

// RectifyResult is a straightened photo and the corners used.
type RectifyResult struct {
	Corners [4]detection.Point    `json:"corners"`
	Image   *imaging.EncodedImage `json:"image"`
}

func (s *Server) handlePhotoRectify(args json.RawMessage) (interface{}, error) {
	var a photoRectifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Corners) != 4 {
		return nil, invalidParams("corners must contain exactly 4 points, got %d", len(a.Corners))
	}

	li, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	corners := detection.OrderCorners([4]detection.Point{a.Corners[0], a.Corners[1], a.Corners[2], a.Corners[3]})
	out, err := rectify.Rectify(li.Image, corners)
	if err != nil {
		return nil, err
	}
	enc, err := s.encode(out, a.outputArgs)
	if err != nil {
		return nil, err
	}
	return &RectifyResult{Corners: corners, Image: enc}, nil
}

type photoEnhanceArgs struct {
	Path string `json:"path"`
	settingsArgs
	outputArgs
}

// EnhanceResult is an enhanced image with its stage report.
type EnhanceResult struct {
	Image  *imaging.EncodedImage `json:"image"`
	Report *enhance.Report       `json:"report"`
}

func (s *Server) handlePhotoEnhance(args json.RawMessage) (interface{}, error) {
	var a photoEnhanceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	li, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	out, report, err := enhance.NewPipeline(s.processor.AcceptThreshold).Enhance(li.Image, a.settingsArgs.settings(), nil)
	if err != nil {
		return nil, err
	}
	enc, err := s.encode(out, a.outputArgs)
	if err != nil {
		return nil, err
	}
	return &EnhanceResult{Image: enc, Report: report}, nil
}

// ProcessResult describes one pipeline run.
type ProcessResult struct {
	Image      *imaging.EncodedImage `json:"image,omitempty"`
	Quad       *detection.Quad       `json:"quad,omitempty"`
	Accepted   bool                  `json:"accepted"`
	Rectified  bool                  `json:"rectified"`
	States     []pipeline.State      `json:"states"`
	Report     *enhance.Report       `json:"report"`
	DurationMs int64                 `json:"duration_ms"`
}

func newProcessResult(res *pipeline.Result) *ProcessResult {
	return &ProcessResult{
		Quad:       res.Quad,
		Accepted:   res.Accepted,
		Rectified:  res.Rectified,
		States:     res.States,
		Report:     res.Report,
		DurationMs: res.Duration.Milliseconds(),
	}
}

type photoProcessArgs struct {
	Path string `json:"path"`
	settingsArgs
	outputArgs
}

func (s *Server) handlePhotoProcess(args json.RawMessage) (interface{}, error) {
	var a photoProcessArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	li, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.processor.Process(li.Image, a.settingsArgs.settings())
	if err != nil {
		return nil, err
	}
	out := newProcessResult(res)
	if out.Image, err = s.encode(res.Image, a.outputArgs); err != nil {
		return nil, err
	}
	return out, nil
}

type photoProcessBatchArgs struct {
	Paths     []string `json:"paths"`
	OutputDir string   `json:"output_dir"`
	settingsArgs
	outputArgs
}

// BatchItem is the outcome for one capture of a batch.
type BatchItem struct {
	Path       string `json:"path"`
	Error      string `json:"error,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	*ProcessResult
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}

func (s *Server) handlePhotoProcessBatch(args json.RawMessage) (interface{}, error) {
	var a photoProcessBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, invalidParams("paths must not be empty")
	}
	format, err := imaging.ParseFormat(a.Format)
	if err != nil {
		return nil, &invalidParamsError{err: err}
	}
	if a.OutputDir != "" {
		if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	settings := a.settingsArgs.settings()
	var outputs []string
	if a.OutputDir != "" {
		outputs = outputPaths(a.OutputDir, a.Paths, format)
	}
	items := make([]BatchItem, len(a.Paths))
	var jobs []pipeline.Job
	var index []int
	for i, path := range a.Paths {
		items[i].Path = path
		li, err := s.cache.Load(path)
		if err != nil {
			items[i].Error = err.Error()
			continue
		}
		jobs = append(jobs, pipeline.Job{ID: path, Image: li.Image, Settings: settings})
		index = append(index, i)
	}

	for j, r := range s.pool.ProcessBatch(context.Background(), jobs) {
		i := index[j]
		item := &items[i]
		if r.Err != nil {
			item.Error = r.Err.Error()
			continue
		}
		item.ProcessResult = newProcessResult(r.Result)

		if a.OutputDir == "" {
			if item.Image, err = s.encode(r.Result.Image, a.outputArgs); err != nil {
				item.Error = err.Error()
			}
			continue
		}

		quality := a.Quality
		if quality == 0 {
			quality = s.quality
		}
		data, err := imaging.Encode(r.Result.Image, format, quality)
		if err != nil {
			item.Error = err.Error()
			continue
		}
		item.OutputPath = outputs[i]
		if err := os.WriteFile(item.OutputPath, data, 0o644); err != nil {
			item.Error = fmt.Sprintf("failed to write output: %v", err)
			item.OutputPath = ""
		}
	}

	res := &BatchResult{Items: items}
	for _, it := range items {
		if it.Error != "" {
			res.Failed++
		} else {
			res.Processed++
		}
	}
	return res, nil
}

// outputPaths names the processed copy of every src inside dir, e.g.
// "IMG_0042.jpeg" becomes "dir/IMG_0042_scan.jpg". Names are unique within the batch: a base name that is already taken, by another
// directory's file of the same name or by a repeated path, gets a "_2",
// "_3", ... suffix in input order.
func outputPaths(dir string, srcs []string, format dimg.Format) []string {
	ext := outputExt(format)
	taken := make(map[string]bool, len(srcs))
	out := make([]string, len(srcs))
	for i, src := range srcs {
		stem := outputStem(src)
		name := stem + ext
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		taken[strings.ToLower(name)] = true
		out[i] = filepath.Join(dir, name)
	}
	return out
}

func outputStem(src string) string {
	return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + "_scan"
}

func outputExt(format dimg.Format) string {
	if format == dimg.PNG {
		return ".png"
	}
	return ".jpg"
}

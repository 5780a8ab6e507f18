// Package httpapi serves the photo scanning pipeline over HTTP.
//
// Routes:
//
//	GET  /health      liveness probe
//	POST /v1/detect   multipart "image" -> JSON detection result
//	POST /v1/process  multipart "image" plus optional settings -> encoded image
//
// Every response carries an X-Request-ID header; a client-supplied value is
// echoed back.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photoscan/internal/config"
	"github.com/ironsheep/photoscan/internal/detection"
	"github.com/ironsheep/photoscan/internal/enhance"
	"github.com/ironsheep/photoscan/internal/imaging"
	"github.com/ironsheep/photoscan/internal/logger"
	"github.com/ironsheep/photoscan/internal/pipeline"
	"github.com/ironsheep/photoscan/internal/scanerr"
)

// Version is reported by the health check.
var Version = "0.1.0"

const (
	HeaderRequestID  = "X-Request-ID"
	HeaderRectified  = "X-Photo-Rectified"
	HeaderConfidence = "X-Photo-Confidence"
	HeaderStages     = "X-Photo-Stages"

	requestIDKey = "request_id"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// DetectResponse is the body of POST /v1/detect.
type DetectResponse struct {
	Detected    bool            `json:"detected"`
	Quad        *detection.Quad `json:"quad,omitempty"`
	Accepted    bool            `json:"accepted"`
	ImageWidth  int             `json:"image_width"`
	ImageHeight int             `json:"image_height"`
}

type handler struct {
	processor *pipeline.Processor
	cfg       *config.Config
	slots     chan struct{}
}

// NewHandler builds the gin router. At most cfg.Workers pipeline calls run
// at once; further requests wait for a slot until their timeout.
func NewHandler(processor *pipeline.Processor, cfg *config.Config) http.Handler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	h := &handler{
		processor: processor,
		cfg:       cfg,
		slots:     make(chan struct{}, workers),
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.GET("/health", healthCheck)
	v1 := r.Group("/v1")
	v1.POST("/detect", h.detect)
	v1.POST("/process", h.process)

	return r
}

func (h *handler) detect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	li, ok := readImage(c)
	if !ok {
		return
	}

	release, err := h.acquire(ctx)
	if err != nil {
		respondError(c, statusFor(err), "no worker available", err)
		return
	}
	defer release()

	b := li.Image.Bounds()
	resp := DetectResponse{ImageWidth: b.Dx(), ImageHeight: b.Dy()}
	quad, err := detection.DetectWithOptions(li.Image, h.processor.Detection)
	switch {
	case err == nil:
		resp.Detected = true
		resp.Quad = quad
		resp.Accepted = quad.Confidence >= h.processor.AcceptThreshold
	case scanerr.IsKind(err, scanerr.KindNoDetection):
		logger.WithField(requestIDKey, c.GetString(requestIDKey)).WithError(err).Debug("no photo boundary detected")
	default:
		respondError(c, statusFor(err), "detection failed", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) process(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	li, ok := readImage(c)
	if !ok {
		return
	}

	settings, err := formSettings(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid settings", err)
		return
	}
	format, err := imaging.ParseFormat(c.PostForm("format"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid format", err)
		return
	}

	release, err := h.acquire(ctx)
	if err != nil {
		respondError(c, statusFor(err), "no worker available", err)
		return
	}
	res, err := h.processor.Process(li.Image, settings)
	release()
	if err != nil {
		respondError(c, statusFor(err), "processing failed", err)
		return
	}

	data, err := imaging.Encode(res.Image, format, h.cfg.JPEGQuality)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "encoding failed", err)
		return
	}

	c.Header(HeaderRectified, strconv.FormatBool(res.Rectified))
	if res.Quad != nil {
		c.Header(HeaderConfidence, strconv.FormatFloat(res.Quad.Confidence, 'f', 4, 64))
	}
	stages := make([]string, len(res.Report.Applied))
	for i, s := range res.Report.Applied {
		stages[i] = string(s)
	}
	c.Header(HeaderStages, strings.Join(stages, ","))

	logger.WithFields(logrus.Fields{
		requestIDKey:         c.GetString(requestIDKey),
		"rectified":          res.Rectified,
		"skipped":            len(res.Report.Skipped),
		"processing_time_ms": res.Duration.Milliseconds(),
	}).Info("Photo processed")

	c.Data(http.StatusOK, imaging.MimeType(format), data)
}

// acquire waits for a pipeline slot.
func (h *handler) acquire(ctx context.Context) (func(), error) {
	select {
	case h.slots <- struct{}{}:
		return func() { <-h.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readImage decodes the multipart "image" field, responding with an error
// and returning false when it is missing or unreadable.
func readImage(c *gin.Context) (*imaging.LoadedImage, bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(c, http.StatusRequestEntityTooLarge, "request body too large", err)
		} else {
			respondError(c, http.StatusBadRequest, "missing image file", err)
		}
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable image file", err)
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable image file", err)
		return nil, false
	}

	li, err := imaging.DecodeOriented(data)
	if err != nil {
		respondError(c, statusFor(err), "invalid image", err)
		return nil, false
	}
	return li, true
}

// formSettings overlays form fields on enhance.DefaultSettings.
func formSettings(c *gin.Context) (enhance.Settings, error) {
	s := enhance.DefaultSettings()

	bools := []struct {
		name string
		dst  *bool
	}{
		{"auto_correct", &s.AutoCorrect},
		{"perspective_correction", &s.PerspectiveCorrection},
		{"denoise", &s.Denoise},
		{"sharpen", &s.Sharpen},
		{"restore_colors", &s.RestoreColors},
	}
	for _, f := range bools {
		v, ok := c.GetPostForm(f.name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = b
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"brightness", &s.Brightness},
		{"contrast", &s.Contrast},
		{"saturation", &s.Saturation},
	}
	for _, f := range floats {
		v, ok := c.GetPostForm(f.name)
		if !ok || v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", f.name, err)
		}
		if x < 0 {
			return s, fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = x
	}
	return s, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			requestIDKey: c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func statusFor(err error) int {
	switch {
	case scanerr.IsKind(err, scanerr.KindUnsupportedImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		requestIDKey:  c.GetString(requestIDKey),
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Warn("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:     http.StatusText(code),
		Kind:      string(scanerr.KindOf(err)),
		Message:   fmt.Sprintf("%s: %v", message, err),
		RequestID: c.GetString(requestIDKey),
	})
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/photoscan/internal/config"
	"github.com/ironsheep/photoscan/internal/logger"
	"github.com/ironsheep/photoscan/internal/pipeline"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Workers = 2
	return NewHandler(pipeline.NewProcessor(cfg), cfg)
}

func photoPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if x >= 100 && x < 300 && y >= 80 && y < 220 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a POST with an optional "image" file and form fields.
func multipartRequest(t *testing.T, path string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if file != nil {
		fw, err := w.CreateFormFile("image", "capture.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := serve(newTestHandler(t), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, Version, body["version"])

	_, err := uuid.Parse(rec.Header().Get(HeaderRequestID))
	assert.NoError(t, err, "generated request id is a UUID")
}

func TestRequestID_Echoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "client-123")

	rec := serve(newTestHandler(t), req)
	assert.Equal(t, "client-123", rec.Header().Get(HeaderRequestID))
}

func TestDetect_Photo(t *testing.T) {
	rec := serve(newTestHandler(t), multipartRequest(t, "/v1/detect", photoPNG(t), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Detected)
	assert.True(t, resp.Accepted)
	require.NotNil(t, resp.Quad)
	assert.InDelta(t, 300, resp.Quad.Corners[2].X, 5)
	assert.InDelta(t, 220, resp.Quad.Corners[2].Y, 5)
	assert.Equal(t, 400, resp.ImageWidth)
}

func TestDetect_NoPhoto(t *testing.T) {
	file := solidPNG(t, 200, 150, color.RGBA{128, 128, 128, 255})
	rec := serve(newTestHandler(t), multipartRequest(t, "/v1/detect", file, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["detected"])
	assert.NotContains(t, resp, "quad")
}

func TestProcess_Photo(t *testing.T) {
	fields := map[string]string{
		"auto_correct": "false",
		"denoise":      "false",
		"sharpen":      "false",
		"format":       "png",
	}
	rec := serve(newTestHandler(t), multipartRequest(t, "/v1/process", photoPNG(t), fields))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "true", rec.Header().Get(HeaderRectified))
	assert.Equal(t, "perspective", rec.Header().Get(HeaderStages))
	conf, err := strconv.ParseFloat(rec.Header().Get(HeaderConfidence), 64)
	require.NoError(t, err)
	assert.Greater(t, conf, 0.95)

	img, format, err := image.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.InDelta(t, 200, img.Bounds().Dx(), 6)
	assert.InDelta(t, 140, img.Bounds().Dy(), 6)
}

func TestProcess_NoPhotoReturnsJPEG(t *testing.T) {
	file := solidPNG(t, 160, 120, color.RGBA{90, 110, 130, 255})
	rec := serve(newTestHandler(t), multipartRequest(t, "/v1/process", file, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "false", rec.Header().Get(HeaderRectified))
	assert.Empty(t, rec.Header().Get(HeaderConfidence))

	img, format, err := image.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, image.Rect(0, 0, 160, 120), img.Bounds())
}

func TestProcess_Errors(t *testing.T) {
	solid := solidPNG(t, 20, 20, color.White)

	tests := []struct {
		name   string
		path   string
		file   []byte
		fields map[string]string
		want   int
		kind   string
	}{
		{"missing file", "/v1/process", nil, nil, http.StatusBadRequest, ""},
		{"not an image", "/v1/process", []byte("definitely not an image"), nil, http.StatusUnprocessableEntity, "unsupported_image"},
		{"not an image detect", "/v1/detect", []byte("GIF89a"), nil, http.StatusUnprocessableEntity, "unsupported_image"},
		{"bad bool", "/v1/process", solid, map[string]string{"denoise": "maybe"}, http.StatusBadRequest, ""},
		{"bad float", "/v1/process", solid, map[string]string{"brightness": "bright"}, http.StatusBadRequest, ""},
		{"negative float", "/v1/process", solid, map[string]string{"contrast": "-1"}, http.StatusBadRequest, ""},
		{"bad format", "/v1/process", solid, map[string]string{"format": "gif"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestHandler(t), multipartRequest(t, tt.path, tt.file, tt.fields))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusText(tt.want), resp.Error)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

// grayPrintJPEG encodes a black-and-white print (white rectangle on a black
// table) as a single-channel JPEG without EXIF data.
func grayPrintJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 400, 300))
	for y := 80; y < 220; y++ {
		for x := 100; x < 300; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestGrayscaleJPEG_Accepted(t *testing.T) {
	file := grayPrintJPEG(t)
	h := newTestHandler(t)

	rec := serve(h, multipartRequest(t, "/v1/detect", file, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var det DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &det))
	assert.True(t, det.Detected)
	assert.Equal(t, 400, det.ImageWidth)

	rec = serve(h, multipartRequest(t, "/v1/process", file, map[string]string{"format": "png"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(HeaderRectified))

	img, format, err := image.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.InDelta(t, 200, img.Bounds().Dx(), 6)
	assert.InDelta(t, 140, img.Bounds().Dy(), 6)
}

func TestProcess_BodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRequestBodySize = 1024
	h := NewHandler(pipeline.NewProcessor(cfg), cfg)

	rec := serve(h, multipartRequest(t, "/v1/process", make([]byte, 64*1024), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestFormSettings_Defaults(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = multipartRequest(t, "/v1/process", nil, map[string]string{"saturation": "1.5", "restore_colors": "true"})

	s, err := formSettings(c)
	require.NoError(t, err)
	assert.True(t, s.AutoCorrect)
	assert.True(t, s.PerspectiveCorrection)
	assert.Equal(t, 1.5, s.Saturation)
	assert.Equal(t, 1.0, s.Brightness)
	assert.True(t, s.RestoreColors)
}

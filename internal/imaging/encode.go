package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality matches the quality used when extracted photos are saved.
const DefaultJPEGQuality = 95

// EncodedImage is an image serialized for a transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// ParseFormat maps "jpeg", "jpg" or "png" (any case) to an encoder format.
// The empty string selects JPEG.
func ParseFormat(name string) (imaging.Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jpeg", "jpg":
		return imaging.JPEG, nil
	case "png":
		return imaging.PNG, nil
	default:
		return 0, fmt.Errorf("unsupported output format: %q", name)
	}
}

// MimeType returns the MIME type for an encoder format.
func MimeType(f imaging.Format) string {
	if f == imaging.PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Encode serializes img. quality only applies to JPEG; values outside 1-100
// fall back to DefaultJPEGQuality.
func Encode(img image.Image, format imaging.Format, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", format, err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 serializes img and wraps it for JSON transports.
func EncodeBase64(img image.Image, format imaging.Format, quality int) (*EncodedImage, error) {
	data, err := Encode(img, format, quality)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    MimeType(format),
	}, nil
}

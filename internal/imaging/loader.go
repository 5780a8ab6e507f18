package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/ironsheep/photoscan/internal/scanerr"
)

// ImageCache provides thread-safe caching of loaded, upright images keyed by
// file path.
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). Callers must treat returned images as read-only: the pipeline never
// mutates its inputs, and neither should anything else while a call is in
// flight.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*LoadedImage
}

// LoadedImage is a decoded capture with its source metadata.
type LoadedImage struct {
	Image       image.Image
	Format      string
	Orientation int
	SizeBytes   int64

	// Channels is the channel count of the encoded source, which may be
	// lower than that of Image.
	Channels int
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*LoadedImage),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
// EXIF orientation is applied before caching.
func (c *ImageCache) Load(path string) (*LoadedImage, error) {
	c.mu.RLock()
	if li, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return li, nil
	}
	c.mu.RUnlock()

	li, err := LoadOriented(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = li
	c.mu.Unlock()

	return li, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*LoadedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// LoadOriented reads an image file and returns it upright.
func LoadOriented(path string) (*LoadedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return DecodeOriented(data)
}

// DecodeOriented decodes PNG, JPEG or GIF bytes and applies the EXIF
// orientation tag when one is present. Grayscale captures are expanded to
// NRGBA so that black-and-white prints reach the pipeline whatever their
// orientation tag.
func DecodeOriented(data []byte) (*LoadedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, scanerr.Wrap(scanerr.KindUnsupportedImage, "decode", err, "failed to decode image")
	}

	channels := Channels(img)
	orientation := ReadOrientation(data)
	upright := ApplyOrientation(img, orientation)
	if Channels(upright) == 1 {
		upright = imaging.Clone(upright)
	}
	return &LoadedImage{
		Image:       upright,
		Format:      format,
		Orientation: orientation,
		Channels:    channels,
		SizeBytes:   int64(len(data)),
	}, nil
}

// ReadOrientation returns the EXIF orientation (1-8) of the encoded image, or
// 1 when the data carries no readable tag.
func ReadOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// ApplyOrientation transforms img so that an image stored with the given
// EXIF orientation is displayed upright.
func ApplyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// Channels returns the number of color channels of the image's model, or 0
// for nil images.
func Channels(img image.Image) int {
	switch img.(type) {
	case nil:
		return 0
	case *image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return 1
	case *image.YCbCr:
		return 3
	case *image.CMYK:
		return 4
	default:
		return 4
	}
}

// Validate reports whether the pipeline can process img. Rejections are
// scanerr.ErrUnsupportedImage.
func Validate(img image.Image) error {
	if img == nil {
		return scanerr.New(scanerr.KindUnsupportedImage, "validate", "nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return scanerr.New(scanerr.KindUnsupportedImage, "validate", "empty image %dx%d", b.Dx(), b.Dy())
	}
	if n := Channels(img); n != 3 && n != 4 {
		return scanerr.New(scanerr.KindUnsupportedImage, "validate", "unsupported channel count %d", n)
	}
	return nil
}

// Normalize validates img and returns a fresh *image.NRGBA copy with bounds
// at the origin. The input is not modified.
func Normalize(img image.Image) (*image.NRGBA, error) {
	if err := Validate(img); err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageInfo contains metadata about a loaded capture.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	Channels      int    `json:"channels"`
	Orientation   int    `json:"exif_orientation"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	li, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := li.Image.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        li.Format,
		Channels:      li.Channels,
		Orientation:   li.Orientation,
		FileSizeBytes: li.SizeBytes,
	}, nil
}

// GetDimensions returns the upright dimensions of an image file.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	li, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := li.Image.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

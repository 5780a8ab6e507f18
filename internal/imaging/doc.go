// Package imaging provides the raster plumbing shared by the photo scanning
// pipeline: loading and orienting captures, normalizing them to a single
// in-memory layout, luminance planes, binary masks, Canny edge maps, and
// encoding results for transports.
//
// # Image Layout
//
// Every pipeline stage works on *image.NRGBA with bounds starting at (0,0).
// Normalize converts any accepted input to that layout and rejects images
// the pipeline cannot process:
//   - nil images or images with zero width or height
//   - single-channel models (Gray, Gray16, Alpha, Alpha16)
//
// Rejections are scanerr.ErrUnsupportedImage.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner,
// X increasing rightward and Y increasing downward.
//
// # Orientation
//
// LoadOriented reads the EXIF orientation tag of JPEG captures and rotates or
// flips the decoded pixels so that callers always hand upright images to the
// detector. Formats without EXIF data are returned unchanged.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions are
// stateless and never modify their inputs, so they may run concurrently on
// the same source image.
package imaging

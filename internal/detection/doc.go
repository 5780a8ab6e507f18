// Package detection finds the boundary of a printed photo inside a camera
// capture and describes it as an ordered quadrilateral.
//
// # Pipeline
//
// Detect downsizes the capture to a fixed working width, builds a Canny edge
// map, closes small gaps with a 3x3 dilation, and traces the outer border of
// every edge component that is not nested inside another one. The border
// enclosing the largest area is simplified with Douglas-Peucker; only a
// four-vertex outline is accepted. Its corners are rescaled to the source
// resolution and ordered.
//
// # Corner Order
//
// Quads always list corners as top-left, top-right, bottom-right,
// bottom-left. OrderCorners derives that order from the X+Y sums of the
// points, so it is stable for tilted photos but can swap corners of a quad
// rotated close to 45 degrees.
//
// # Confidence
//
// Confidence compares opposite sides of the quad: 1.0 for a parallelogram,
// approaching 0 as the outline becomes a sliver or a triangle. It measures
// shape plausibility only, not how strongly the edges were supported.
//
// # Coordinate System
//
// Corner coordinates are continuous: pixel (i, j) covers [i, i+1) x [j, j+1)
// and its centre is (i+0.5, j+0.5). The origin is the top-left corner of the
// image with Y increasing downward.
//
// # Failure Modes
//
// No usable outline is reported as an error matching
// scanerr.ErrNoDetection; callers treat it as "keep the full frame". The
// detector recovers from internal panics and reports them the same way.
package detection

// Package server implements the MCP (Model Context Protocol) server for the
// photo scanning pipeline.
//
// The server exposes detection, perspective correction and enhancement of
// printed photos captured with a camera, so that MCP clients can turn a
// snapshot of a print lying on a table into a straight, cleaned-up scan.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Detection:
//   - photo_detect: Find the photo's four corners and a confidence
//   - photo_detect_overlay: Draw the detected quad on the capture
//   - photo_edge_map: Render the detector's edge map
//
// Correction:
//   - photo_rectify: Straighten the region bounded by four corners
//   - photo_enhance: Run enhancement stages without cropping
//   - photo_process: Detect, straighten and enhance in one call
//   - photo_process_batch: photo_process over many files concurrently
//
// Image results are returned as base64 JPEG (default) or PNG with their MIME
// type. photo_process_batch can write files to a directory instead.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path, after EXIF orientation is applied, and reused across tool calls.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// A capture in which no photo is found is not an error: photo_detect reports
// detected=false and photo_process returns the enhanced, uncropped capture.
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 (invalid tool arguments), -32000 (tool execution failure)
//     or another standard JSON-RPC code
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server

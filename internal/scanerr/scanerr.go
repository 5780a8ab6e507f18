// Package scanerr defines the error categories shared by the photo scanning
// pipeline.
//
// Only KindUnsupportedImage is meant to reach callers of the orchestrator.
// The other kinds are produced by individual components and absorbed by the
// pipeline's fallback policy:
//   - KindNoDetection: the detector found no usable quadrilateral
//   - KindDegenerateGeometry: corners collapse to near-zero length or area
//   - KindStageFailure: an enhancement stage failed and was skipped
//
// Match errors with errors.Is against the sentinel values; any *Error with
// the same Kind matches regardless of message or cause.
package scanerr

import (
	"errors"
	"fmt"
)

// Kind is a category of pipeline error.
type Kind string

const (
	KindNoDetection        Kind = "no_detection"
	KindDegenerateGeometry Kind = "degenerate_geometry"
	KindUnsupportedImage   Kind = "unsupported_image"
	KindStageFailure       Kind = "stage_failure"
)

// Error is a categorized pipeline error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Sentinels for errors.Is.
var (
	ErrNoDetection        = &Error{Kind: KindNoDetection, Message: "no photo boundary detected"}
	ErrDegenerateGeometry = &Error{Kind: KindDegenerateGeometry, Message: "degenerate quadrilateral"}
	ErrUnsupportedImage   = &Error{Kind: KindUnsupportedImage, Message: "unsupported image"}
	ErrStageFailure       = &Error{Kind: KindStageFailure, Message: "enhancement stage failed"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, op string, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" if err is not categorized.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

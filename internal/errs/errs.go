// Package errs defines the tagged error kinds shared across the raster
// pipeline, the container/pyramid read path, and the merge engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without string
// matching. Zero value is Unknown and should never be constructed directly.
type Kind int

const (
	Unknown Kind = iota
	// Config marks invalid CLI flags or config file content.
	Config
	// Io marks any read/write failure.
	Io
	// NotFound marks a tile outside the pyramid's declared extent.
	NotFound
	// Corrupt marks a magic-byte mismatch, impossible offset/length, or
	// truncated payload.
	Corrupt
	// GeometryMismatch marks rasters disagreeing on width/height/sample
	// type where they must agree.
	GeometryMismatch
	// MaskMismatch marks a mask attached to an image with incompatible
	// geometry.
	MaskMismatch
	// UnsupportedCombination marks an operator/sample-format pair with
	// no defined semantics.
	UnsupportedCombination
	// OutOfRange marks an out-of-bounds row index or palette lookup.
	OutOfRange
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Io:
		return "io"
	case NotFound:
		return "not_found"
	case Corrupt:
		return "corrupt"
	case GeometryMismatch:
		return "geometry_mismatch"
	case MaskMismatch:
		return "mask_mismatch"
	case UnsupportedCombination:
		return "unsupported_combination"
	case OutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carrying a Kind, the operation that
// raised it, and an optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error. err may be nil when the kind itself is the
// whole story (e.g. a bounds check with no underlying cause).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap is New with a formatted message wrapped as the cause.
func Wrap(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf extracts the Kind from err, or Unknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

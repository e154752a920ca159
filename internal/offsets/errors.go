package offsets

import (
	"errors"

	"github.com/banshee-data/mosaic.offsets/internal/header"
)

// Caller-contract violations.
var (
	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInsufficientData = errors.New("insufficient data: at least two exposures are required")
)

// Batch data-quality failures. The exposures cannot be mosaiced safely and
// the whole batch is rejected; outliers are never dropped.
var (
	ErrInconsistentHeaders       = errors.New("inconsistent headers")
	ErrUnrecognizedScale         = errors.New("unrecognized scale")
	ErrInconsistentPositionAngle = errors.New("inconsistent position angle")
)

// Extraction and shape failures.
var (
	ErrMissingKeyword  = header.ErrMissingKeyword
	ErrShapeMismatch   = errors.New("shape mismatch")
	ErrMalformedInput  = errors.New("malformed input")
	ErrTransformFailed = errors.New("transform failed")
)

// ErrNotImplemented is returned for the adaptive optics transform.
var ErrNotImplemented = errors.New("not implemented")

// Class groups pipeline errors by who has to act on them.
type Class int

const (
	ClassUnknown Class = iota
	ClassCaller
	ClassDataQuality
	ClassExtraction
	ClassUnsupported
)

func (c Class) String() string {
	switch c {
	case ClassCaller:
		return "caller"
	case ClassDataQuality:
		return "data_quality"
	case ClassExtraction:
		return "extraction"
	case ClassUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Classify returns the class of a pipeline error.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrInsufficientData):
		return ClassCaller
	case errors.Is(err, ErrInconsistentHeaders), errors.Is(err, ErrUnrecognizedScale), errors.Is(err, ErrInconsistentPositionAngle):
		return ClassDataQuality
	case errors.Is(err, ErrMissingKeyword), errors.Is(err, ErrShapeMismatch),
		errors.Is(err, ErrMalformedInput), errors.Is(err, ErrTransformFailed):
		return ClassExtraction
	case errors.Is(err, ErrNotImplemented):
		return ClassUnsupported
	default:
		return ClassUnknown
	}
}

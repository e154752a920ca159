package offsets

import (
	"fmt"

	"github.com/banshee-data/mosaic.offsets/internal/units"
)

// Position-angle bias per format, degrees.
const (
	CubeBiasDeg  = 0.0
	ImageBiasDeg = 47.5
)

// DefaultPositionAngleTolerance is roughly one degree, in radians.
const DefaultPositionAngleTolerance = 0.01745

// BiasDeg returns the position-angle bias applied for format.
func BiasDeg(format Format) float64 {
	if format == Image {
		return ImageBiasDeg
	}
	return CubeBiasDeg
}

// PositionAngles returns each exposure's position angle in radians,
// (rotator - instrument + bias) converted from degrees.
func PositionAngles(rotator, instrument []float64, format Format) ([]float64, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, format)
	}
	if len(rotator) != len(instrument) {
		return nil, fmt.Errorf("%w: %d rotator angles, %d instrument angles", ErrShapeMismatch, len(rotator), len(instrument))
	}

	bias := BiasDeg(format)
	angles := make([]float64, len(rotator))
	for i := range rotator {
		angles[i] = units.DegToRad(rotator[i] - instrument[i] + bias)
	}
	return angles, nil
}

// ResolvePositionAngle returns the reference position angle of a batch: the
// first exposure's angle. Every exposure must lie within tolerance radians
// of it, otherwise the batch is rejected as a whole. A non-positive
// tolerance selects DefaultPositionAngleTolerance.
func ResolvePositionAngle(rotator, instrument []float64, format Format, tolerance float64) (float64, error) {
	angles, err := PositionAngles(rotator, instrument, format)
	if err != nil {
		return 0, err
	}
	if len(angles) == 0 {
		return 0, fmt.Errorf("%w: no position angles", ErrInsufficientData)
	}
	if tolerance <= 0 {
		tolerance = DefaultPositionAngleTolerance
	}

	if dev, ok := Consistent(angles, tolerance); !ok {
		return 0, fmt.Errorf("%w: deviation %.5f rad exceeds %.5f rad", ErrInconsistentPositionAngle, dev, tolerance)
	}
	return angles[0], nil
}

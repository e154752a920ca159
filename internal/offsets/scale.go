package offsets

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// ImageScale is the imager plate scale in arcsec/pixel. Image-format batches
// always use it regardless of the header scale keyword.
const ImageScale = 0.0203

// calibratedScale maps a nominal spaxel scale to its measured value.
func calibratedScale(nominal float64) (float64, bool) {
	switch nominal {
	case 0.020:
		return 0.0203, true
	case 0.035:
		return 0.0350, true
	case 0.050:
		return 0.0500, true
	case 0.100:
		return 0.1009, true
	default:
		return 0, false
	}
}

// Consistent reports whether every value lies within tolerance of values[0],
// along with the largest deviation seen. A zero tolerance demands exact
// equality. NaN is never consistent with anything.
func Consistent(values []float64, tolerance float64) (maxDeviation float64, ok bool) {
	if len(values) == 0 {
		return 0, true
	}
	ref := values[0]
	ok = true
	for _, v := range values {
		if !scalar.EqualWithinAbs(v, ref, tolerance) {
			ok = false
		}
		if d := math.Abs(v - ref); d > maxDeviation || math.IsNaN(d) {
			maxDeviation = d
		}
	}
	return maxDeviation, ok
}

// ResolveScale returns the calibrated arcsec/pixel scale for a batch.
// For cubes every nominal value must be identical and present in the
// calibration table. Images ignore nominal and use ImageScale.
func ResolveScale(nominal []float64, format Format) (float64, error) {
	switch format {
	case Image:
		return ImageScale, nil
	case Cube:
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidFormat, format)
	}

	if len(nominal) == 0 {
		return 0, fmt.Errorf("%w: no scale values", ErrInsufficientData)
	}
	if _, ok := Consistent(nominal, 0); !ok {
		return 0, fmt.Errorf("%w: scale differs across exposures %v", ErrInconsistentHeaders, nominal)
	}

	scale, ok := calibratedScale(nominal[0])
	if !ok {
		return 0, fmt.Errorf("%w: %v arcsec/pixel", ErrUnrecognizedScale, nominal[0])
	}
	return scale, nil
}

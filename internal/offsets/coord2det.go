package offsets

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mosaic.offsets/internal/units"
)

// Coord2Det converts a 2×n matrix of absolute coordinates into 2×n pixel
// offsets relative to column 0, using scale in arcsec/pixel and the position
// angle pa in radians.
//
// In Telescope mode row 0 is right ascension and row 1 declination, both in
// degrees. The RA difference is foreshortened by cos(dec) so both axes are
// true angular separations on the tangent plane, and the result is rotated
// into the detector frame:
//
//	x = -(dRA·sin(pa) + dDec·cos(pa))
//	y =   dRA·cos(pa) - dDec·sin(pa)
//
// Column 0 of the result is always (0, 0). The function is pure.
func Coord2Det(coords *mat.Dense, mode Mode, scale, pa float64) (*mat.Dense, error) {
	if coords == nil {
		return nil, fmt.Errorf("%w: nil coordinate matrix", ErrMalformedInput)
	}
	rows, cols := coords.Dims()
	if rows != 2 || cols < 2 {
		return nil, fmt.Errorf("%w: coordinate matrix is %dx%d, want 2xN with N >= 2", ErrMalformedInput, rows, cols)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("%w: scale %v", ErrMalformedInput, scale)
	}

	switch mode {
	case Telescope:
		return telescopeOffsets(coords, scale, pa), nil
	case AdaptiveOptics:
		return nil, fmt.Errorf("%w: adaptive optics mirror-coordinate transform", ErrNotImplemented)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, mode)
	}
}

// DetectorRotation returns the 2×2 matrix taking (dRA, dDec) onto detector
// (x, y) for position angle pa.
func DetectorRotation(pa float64) *mat.Dense {
	sin, cos := math.Sincos(pa)
	return mat.NewDense(2, 2, []float64{
		-sin, -cos,
		cos, -sin,
	})
}

func telescopeOffsets(coords *mat.Dense, scale, pa float64) *mat.Dense {
	_, n := coords.Dims()
	ra := mat.Row(nil, 0, coords)
	dec := mat.Row(nil, 1, coords)

	deltas := mat.NewDense(2, n, nil)
	for i := 0; i < n; i++ {
		dRA := units.ArcsecToPixels(units.ConvertAngle(ra[0]-ra[i], units.Degrees, units.Arcsec), scale) *
			math.Cos(units.DegToRad(dec[i]))
		dDec := units.ArcsecToPixels(units.ConvertAngle(dec[0]-dec[i], units.Degrees, units.Arcsec), scale)
		deltas.Set(0, i, dRA)
		deltas.Set(1, i, dDec)
	}

	var out mat.Dense
	out.Mul(DetectorRotation(pa), deltas)
	return &out
}

// checkOffsets verifies the transform postcondition: a 2×n matrix of finite
// values.
func checkOffsets(m *mat.Dense, n int) error {
	if m == nil {
		return fmt.Errorf("%w: no result", ErrTransformFailed)
	}
	rows, cols := m.Dims()
	if rows != 2 || cols != n {
		return fmt.Errorf("%w: result is %dx%d, want 2x%d", ErrTransformFailed, rows, cols, n)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := m.At(r, c); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite offset %v at exposure %d", ErrTransformFailed, v, c)
			}
		}
	}
	return nil
}

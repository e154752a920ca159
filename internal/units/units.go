// Package units provides shared constants and conversions for angle units
package units

import "math"

// Unit constants
const (
	Degrees = "deg"
	Radians = "rad"
	Arcsec  = "arcsec"
)

// ArcsecPerDegree is the number of arcseconds in one degree
const ArcsecPerDegree = 3600.0

// ValidUnits contains all valid unit values
var ValidUnits = []string{Degrees, Radians, Arcsec}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "deg, rad, arcsec"
}

// DegToRad converts degrees to radians
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadToDeg converts radians to degrees
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// ConvertAngle converts an angle between units.
// Unknown units leave the value unchanged.
func ConvertAngle(value float64, from, to string) float64 {
	if from == to || !IsValid(from) || !IsValid(to) {
		return value
	}

	// Normalise to degrees first
	deg := value
	switch from {
	case Radians:
		deg = RadToDeg(value)
	case Arcsec:
		deg = value / ArcsecPerDegree
	}

	switch to {
	case Radians:
		return DegToRad(deg)
	case Arcsec:
		return deg * ArcsecPerDegree
	default:
		return deg
	}
}

// ArcsecToPixels converts an angular distance in arcseconds to pixels for
// a detector with the given plate scale (arcsec/pixel).
func ArcsecToPixels(arcsec, scale float64) float64 {
	return arcsec / scale
}

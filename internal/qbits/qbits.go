// Package qbits converts pixel quality masks between the three-bit
// representation (good, interpolated, interpolation-was-good) and the
// compact two-bit form used by the reduced data products.
package qbits

// Three-bit representation.
const (
	Good             = 1 << 0
	Interpolated     = 1 << 1
	InterpolatedGood = 1 << 2
)

const (
	wideMask    = Good | Interpolated | InterpolatedGood
	compactMask = 0b11
)

// Forward maps the three-bit quality flags of v onto the two-bit form:
//
//	good=0                      -> 00
//	good=1 interp=0             -> 11
//	good=1 interp=1 interpOK=1  -> 10
//	good=1 interp=1 interpOK=0  -> 01
//
// Bit 2 is cleared; bits above it are left as they are.
func Forward(v int) int {
	var code int
	switch {
	case v&Good == 0:
		code = 0b00
	case v&Interpolated == 0:
		code = 0b11
	case v&InterpolatedGood != 0:
		code = 0b10
	default:
		code = 0b01
	}
	return v&^wideMask | code
}

// Reverse maps a two-bit code in v back to the three-bit flags. Bits above
// bit 2 are left as they are.
func Reverse(v int) int {
	var flags int
	switch v & compactMask {
	case 0b00:
		flags = 0
	case 0b11:
		flags = Good
	case 0b10:
		flags = Good | Interpolated | InterpolatedGood
	case 0b01:
		flags = Good | Interpolated
	}
	return v&^wideMask | flags
}

// Canonical returns the three-bit state that survives a trip through the
// two-bit form. A pixel that is not good loses its interpolation bits and a
// good, uninterpolated pixel loses bit 2.
func Canonical(v int) int {
	return Reverse(Forward(v))
}

// ForwardAll applies Forward to each element and returns a new slice.
func ForwardAll(values []int) []int {
	return mapAll(values, Forward)
}

// ReverseAll applies Reverse to each element and returns a new slice.
func ReverseAll(values []int) []int {
	return mapAll(values, Reverse)
}

func mapAll(values []int, f func(int) int) []int {
	if values == nil {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}

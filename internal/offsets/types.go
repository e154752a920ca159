// Package offsets determines the pixel offsets that co-register a batch of
// exposures taken at different telescope pointings. Scale and position angle
// are validated across the batch, then each exposure's pointing is projected
// onto the tangent plane of the first exposure and rotated into the
// detector frame.
package offsets

import (
	"fmt"
	"strings"
)

// Mode selects which keywords supply coordinates and which geometry applies.
type Mode int

const (
	// Telescope mode reads RA/Dec pointing in degrees.
	Telescope Mode = iota
	// AdaptiveOptics mode reads tip/tilt mirror coordinates. The mirror
	// transform is not available; offsets fail with ErrNotImplemented.
	AdaptiveOptics
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == Telescope || m == AdaptiveOptics
}

func (m Mode) String() string {
	switch m {
	case Telescope:
		return "telescope"
	case AdaptiveOptics:
		return "ao"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "telescope", "tel":
		return Telescope, nil
	case "ao", "adaptive_optics":
		return AdaptiveOptics, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Format selects the scale lookup and the position-angle bias.
type Format int

const (
	// Image is a broadband imager frame: fixed scale, 47.5 degree bias.
	Image Format = iota
	// Cube is a reconstructed data cube: scale from the header, no bias.
	Cube
)

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	return f == Image || f == Cube
}

func (f Format) String() string {
	switch f {
	case Image:
		return "image"
	case Cube:
		return "cube"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "img":
		return Image, nil
	case "cube", "crb":
		return Cube, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

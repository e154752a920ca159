package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical offset defaults file.
const DefaultConfigPath = "config/offsets.defaults.json"

// Recognised format and mode names. Aliases follow the instrument's own
// spelling ("crb" for reconstructed cubes, "tel" for telescope pointing).
var (
	ValidFormats = []string{"image", "img", "cube", "crb"}
	ValidModes   = []string{"telescope", "tel", "ao", "adaptive_optics"}
)

// OffsetConfig is the root configuration for the offset tools. Every field is
// optional; the Get* methods supply defaults for anything left unset, so
// partial configs are safe.
type OffsetConfig struct {
	Format            *string `json:"format,omitempty"`
	Mode              *string `json:"mode,omitempty"`
	SkipPositionAngle *bool   `json:"skip_position_angle,omitempty"`

	// Maximum allowed deviation from the reference position angle, radians.
	PositionAngleToleranceRad *float64 `json:"position_angle_tolerance_rad,omitempty"`

	// Header keywords
	RAKeyword              *string `json:"ra_keyword,omitempty"`
	DecKeyword             *string `json:"dec_keyword,omitempty"`
	AOXKeyword             *string `json:"ao_x_keyword,omitempty"`
	AOYKeyword             *string `json:"ao_y_keyword,omitempty"`
	RotatorKeyword         *string `json:"rotator_keyword,omitempty"`
	InstrumentAngleKeyword *string `json:"instrument_angle_keyword,omitempty"`
	ScaleKeyword           *string `json:"scale_keyword,omitempty"`
	XOffKeyword            *string `json:"x_off_keyword,omitempty"`
	YOffKeyword            *string `json:"y_off_keyword,omitempty"`
	NameKeyword            *string `json:"name_keyword,omitempty"`

	// Service params
	DBPath *string `json:"db_path,omitempty"`
	Listen *string `json:"listen,omitempty"`
}

// EmptyOffsetConfig returns an OffsetConfig with all fields set to nil.
func EmptyOffsetConfig() *OffsetConfig {
	return &OffsetConfig{}
}

// LoadOffsetConfig loads an OffsetConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadOffsetConfig(path string) (*OffsetConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyOffsetConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *OffsetConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadOffsetConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *OffsetConfig) Validate() error {
	if c.Format != nil && !containsName(ValidFormats, *c.Format) {
		return fmt.Errorf("format must be one of %s, got %q", strings.Join(ValidFormats, ", "), *c.Format)
	}
	if c.Mode != nil && !containsName(ValidModes, *c.Mode) {
		return fmt.Errorf("mode must be one of %s, got %q", strings.Join(ValidModes, ", "), *c.Mode)
	}

	if c.PositionAngleToleranceRad != nil {
		tol := *c.PositionAngleToleranceRad
		if math.IsNaN(tol) || tol <= 0 || tol >= math.Pi {
			return fmt.Errorf("position_angle_tolerance_rad must be in (0, pi), got %f", tol)
		}
	}

	keywords := map[string]*string{
		"ra_keyword":               c.RAKeyword,
		"dec_keyword":              c.DecKeyword,
		"ao_x_keyword":             c.AOXKeyword,
		"ao_y_keyword":             c.AOYKeyword,
		"rotator_keyword":          c.RotatorKeyword,
		"instrument_angle_keyword": c.InstrumentAngleKeyword,
		"scale_keyword":            c.ScaleKeyword,
		"x_off_keyword":            c.XOffKeyword,
		"y_off_keyword":            c.YOffKeyword,
		"name_keyword":             c.NameKeyword,
	}
	for name, kw := range keywords {
		if kw != nil && strings.TrimSpace(*kw) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	if c.XOffKeyword != nil && c.YOffKeyword != nil && *c.XOffKeyword == *c.YOffKeyword {
		return fmt.Errorf("x_off_keyword and y_off_keyword must differ, both %q", *c.XOffKeyword)
	}

	return nil
}

// containsName matches names the way the format and mode parsers read them:
// case-insensitive, surrounding space ignored.
func containsName(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func getString(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// GetFormat returns the format name or the default.
func (c *OffsetConfig) GetFormat() string { return getString(c.Format, "cube") }

// GetMode returns the mode name or the default.
func (c *OffsetConfig) GetMode() string { return getString(c.Mode, "telescope") }

// GetSkipPositionAngle returns the skip_position_angle value or the default.
func (c *OffsetConfig) GetSkipPositionAngle() bool {
	if c.SkipPositionAngle == nil {
		return false
	}
	return *c.SkipPositionAngle
}

// GetPositionAngleToleranceRad returns the tolerance or the default of ~1 degree.
func (c *OffsetConfig) GetPositionAngleToleranceRad() float64 {
	if c.PositionAngleToleranceRad == nil {
		return 0.01745
	}
	return *c.PositionAngleToleranceRad
}

func (c *OffsetConfig) GetRAKeyword() string      { return getString(c.RAKeyword, "RA") }
func (c *OffsetConfig) GetDecKeyword() string     { return getString(c.DecKeyword, "DEC") }
func (c *OffsetConfig) GetAOXKeyword() string     { return getString(c.AOXKeyword, "AOTSX") }
func (c *OffsetConfig) GetAOYKeyword() string     { return getString(c.AOYKeyword, "AOTSY") }
func (c *OffsetConfig) GetRotatorKeyword() string { return getString(c.RotatorKeyword, "ROTPOSN") }
func (c *OffsetConfig) GetInstrumentAngleKeyword() string {
	return getString(c.InstrumentAngleKeyword, "INSTANGL")
}
func (c *OffsetConfig) GetScaleKeyword() string { return getString(c.ScaleKeyword, "SSCALE") }
func (c *OffsetConfig) GetXOffKeyword() string  { return getString(c.XOffKeyword, "X_OFF") }
func (c *OffsetConfig) GetYOffKeyword() string  { return getString(c.YOffKeyword, "Y_OFF") }
func (c *OffsetConfig) GetNameKeyword() string  { return getString(c.NameKeyword, "DATAFILE") }

// GetDBPath returns the run store path or the default.
func (c *OffsetConfig) GetDBPath() string { return getString(c.DBPath, "mosaic_offsets.db") }

// GetListen returns the HTTP listen address or the default.
func (c *OffsetConfig) GetListen() string { return getString(c.Listen, ":8080") }

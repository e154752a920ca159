package offsets

import (
	"github.com/banshee-data/mosaic.offsets/internal/config"
	"github.com/banshee-data/mosaic.offsets/internal/monitoring"
)

// Keywords names the header keywords the pipeline reads.
type Keywords struct {
	RA              string
	Dec             string
	AOX             string
	AOY             string
	Rotator         string
	InstrumentAngle string
	Scale           string
}

// Config carries everything a Pipeline needs besides its inputs.
type Config struct {
	Keywords Keywords

	// PositionAngleTolerance is the largest allowed deviation, in radians,
	// of any exposure's position angle from the reference.
	PositionAngleTolerance float64

	// Logf receives diagnostics. Nil means monitoring.Logf with an
	// "[offsets]" prefix.
	Logf func(format string, v ...interface{})
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return NewConfig(config.EmptyOffsetConfig())
}

// NewConfig maps an OffsetConfig onto a pipeline Config.
func NewConfig(c *config.OffsetConfig) Config {
	return Config{
		Keywords: Keywords{
			RA:              c.GetRAKeyword(),
			Dec:             c.GetDecKeyword(),
			AOX:             c.GetAOXKeyword(),
			AOY:             c.GetAOYKeyword(),
			Rotator:         c.GetRotatorKeyword(),
			InstrumentAngle: c.GetInstrumentAngleKeyword(),
			Scale:           c.GetScaleKeyword(),
		},
		PositionAngleTolerance: c.GetPositionAngleToleranceRad(),
		Logf:                   monitoring.Prefixed("offsets"),
	}
}

// withDefaults fills any zero-valued field from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	fill := func(s *string, d string) {
		if *s == "" {
			*s = d
		}
	}
	fill(&c.Keywords.RA, def.Keywords.RA)
	fill(&c.Keywords.Dec, def.Keywords.Dec)
	fill(&c.Keywords.AOX, def.Keywords.AOX)
	fill(&c.Keywords.AOY, def.Keywords.AOY)
	fill(&c.Keywords.Rotator, def.Keywords.Rotator)
	fill(&c.Keywords.InstrumentAngle, def.Keywords.InstrumentAngle)
	fill(&c.Keywords.Scale, def.Keywords.Scale)
	if c.PositionAngleTolerance <= 0 {
		c.PositionAngleTolerance = def.PositionAngleTolerance
	}
	if c.Logf == nil {
		c.Logf = def.Logf
	}
	return c
}

package offsets

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/mosaic.offsets/internal/header"
	"github.com/banshee-data/mosaic.offsets/internal/monitoring"
)

// Offset is one exposure's displacement from the reference, in pixels.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result is the outcome of one offset determination.
type Result struct {
	Format        Format   `json:"format"`
	Mode          Mode     `json:"mode"`
	Scale         float64  `json:"scale"`
	PositionAngle float64  `json:"position_angle"`
	Offsets       []Offset `json:"offsets"`
}

// Columns splits the offsets into x and y slices, the shape the header
// writer takes.
func (r *Result) Columns() (xs, ys []float64) {
	xs = make([]float64, len(r.Offsets))
	ys = make([]float64, len(r.Offsets))
	for i, o := range r.Offsets {
		xs[i], ys[i] = o.X, o.Y
	}
	return xs, ys
}

// Pipeline determines mosaic offsets. It holds only its configuration and is
// safe for concurrent use.
type Pipeline struct {
	cfg Config
}

// NewPipeline returns a Pipeline; zero-valued config fields take defaults.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// DetermineOffsets runs a batch through a Pipeline built from DefaultConfig.
func DetermineOffsets(batch header.Batch, format Format, mode Mode, skipPositionAngle bool) (*Result, error) {
	return NewPipeline(DefaultConfig()).DetermineOffsets(batch, format, mode, skipPositionAngle)
}

// DetermineOffsets validates the batch and returns one offset per exposure,
// with the first exposure at (0, 0). When skipPositionAngle is set the
// rotator keywords are not read and the position angle is taken as zero.
func (p *Pipeline) DetermineOffsets(batch header.Batch, format Format, mode Mode, skipPositionAngle bool) (*Result, error) {
	result, err := p.determine(batch, format, mode, skipPositionAngle)

	outcome := monitoring.OutcomeOK
	if err != nil {
		outcome = monitoring.OutcomeFailed
		p.cfg.Logf("offset determination failed (%s): %v", Classify(err), err)
	}
	formatLabel, modeLabel := metricLabels(format, mode)
	monitoring.ObserveOffsetRun(formatLabel, modeLabel, outcome, len(batch))

	return result, err
}

func (p *Pipeline) determine(batch header.Batch, format Format, mode Mode, skipPositionAngle bool) (*Result, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, mode)
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, format)
	}
	if len(batch) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, len(batch))
	}

	scale, err := p.resolveScale(batch, format)
	if err != nil {
		return nil, err
	}

	pa := 0.0
	if !skipPositionAngle {
		if pa, err = p.resolvePositionAngle(batch, format); err != nil {
			return nil, err
		}
	}

	coords, err := p.coordinates(batch, mode)
	if err != nil {
		return nil, err
	}

	det, err := Coord2Det(coords, mode, scale, pa)
	if err != nil {
		return nil, err
	}
	if err := checkOffsets(det, len(batch)); err != nil {
		return nil, err
	}

	result := &Result{
		Format:        format,
		Mode:          mode,
		Scale:         scale,
		PositionAngle: pa,
		Offsets:       make([]Offset, len(batch)),
	}
	for i := range result.Offsets {
		result.Offsets[i] = Offset{X: positiveZero(det.At(0, i)), Y: positiveZero(det.At(1, i))}
	}

	p.cfg.Logf("%d exposures, format=%s mode=%s scale=%.4f arcsec/px pa=%.5f rad", len(batch), format, mode, scale, pa)
	for i, o := range result.Offsets {
		p.cfg.Logf("  exposure %d: x=%.3f y=%.3f", i, o.X, o.Y)
	}
	return result, nil
}

func (p *Pipeline) resolveScale(batch header.Batch, format Format) (float64, error) {
	if format == Image {
		return ResolveScale(nil, format)
	}
	nominal, err := readFloats(batch, p.cfg.Keywords.Scale)
	if err != nil {
		return 0, err
	}
	return ResolveScale(nominal, format)
}

func (p *Pipeline) resolvePositionAngle(batch header.Batch, format Format) (float64, error) {
	rot, err := readFloats(batch, p.cfg.Keywords.Rotator)
	if err != nil {
		return 0, err
	}
	inst, err := readFloats(batch, p.cfg.Keywords.InstrumentAngle)
	if err != nil {
		return 0, err
	}
	return ResolvePositionAngle(rot, inst, format, p.cfg.PositionAngleTolerance)
}

// coordinates extracts the mode's coordinate keywords into a 2×n matrix.
func (p *Pipeline) coordinates(batch header.Batch, mode Mode) (*mat.Dense, error) {
	xKey, yKey := p.cfg.Keywords.RA, p.cfg.Keywords.Dec
	if mode == AdaptiveOptics {
		xKey, yKey = p.cfg.Keywords.AOX, p.cfg.Keywords.AOY
	}

	xs, err := readFloats(batch, xKey)
	if err != nil {
		return nil, err
	}
	ys, err := readFloats(batch, yKey)
	if err != nil {
		return nil, err
	}
	return coordinateMatrix(xs, ys, len(batch))
}

// coordinateMatrix stacks xs and ys as the rows of a 2×n matrix.
func coordinateMatrix(xs, ys []float64, n int) (*mat.Dense, error) {
	if len(xs) != len(ys) || len(xs) != n {
		return nil, fmt.Errorf("%w: %d x values, %d y values, %d headers", ErrShapeMismatch, len(xs), len(ys), n)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no coordinates", ErrShapeMismatch)
	}
	data := make([]float64, 0, 2*n)
	data = append(data, xs...)
	data = append(data, ys...)
	return mat.NewDense(2, n, data), nil
}

// readFloats reads a numeric keyword, reporting unreadable values as malformed input.
func readFloats(batch header.Batch, key string) ([]float64, error) {
	values, err := header.Floats(batch, key)
	if errors.Is(err, header.ErrNotNumeric) {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	return values, err
}

// metricLabels names format and mode for metrics, collapsing out-of-range
// values into one label.
func metricLabels(format Format, mode Mode) (string, string) {
	formatLabel, modeLabel := monitoring.LabelInvalid, monitoring.LabelInvalid
	if format.IsValid() {
		formatLabel = format.String()
	}
	if mode.IsValid() {
		modeLabel = mode.String()
	}
	return formatLabel, modeLabel
}

// positiveZero folds -0 into +0 so the reference exposure reads (0, 0).
func positiveZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

package offsets

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mosaic.offsets/internal/header"
	"github.com/banshee-data/mosaic.offsets/internal/monitoring"
	"github.com/banshee-data/mosaic.offsets/internal/testutil"
)

// quietPipeline routes pipeline diagnostics to the test log.
func quietPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return NewPipeline(Config{Logf: t.Logf})
}

func TestDetermineOffsets_SmallRAShift(t *testing.T) {
	batch := header.Batch{
		testutil.Exposure(10.0, 20.0, 0, 0, 0.020),
		testutil.Exposure(10.001, 20.0, 0, 0, 0.020),
	}

	res, err := DetermineOffsets(batch, Cube, Telescope, false)
	require.NoError(t, err)

	assert.Equal(t, Cube, res.Format)
	assert.Equal(t, Telescope, res.Mode)
	assert.Equal(t, 0.0203, res.Scale)
	assert.Equal(t, 0.0, res.PositionAngle)
	require.Len(t, res.Offsets, 2)
	assert.Equal(t, Offset{X: 0, Y: 0}, res.Offsets[0])
	assert.InDelta(t, 0, res.Offsets[1].X, 1e-9)
	assert.InDelta(t, -166.64499678952689, res.Offsets[1].Y, 1e-9)
}

func TestDetermineOffsets_ReferenceIsPositiveZero(t *testing.T) {
	p := quietPipeline(t)
	batch := testutil.DitherBatch(5, 0.0005)
	for i := range batch {
		batch[i]["ROTPOSN"] = 33.0
	}

	res, err := p.DetermineOffsets(batch, Cube, Telescope, false)
	require.NoError(t, err)
	require.Len(t, res.Offsets, len(batch))

	ref := res.Offsets[0]
	assert.False(t, math.Signbit(ref.X), "x of reference is -0")
	assert.False(t, math.Signbit(ref.Y), "y of reference is -0")
	assert.Equal(t, Offset{}, ref)

	// Evenly spaced dithers give evenly spaced offsets.
	for i := 2; i < len(res.Offsets); i++ {
		step := math.Hypot(res.Offsets[i].X-res.Offsets[i-1].X, res.Offsets[i].Y-res.Offsets[i-1].Y)
		first := math.Hypot(res.Offsets[1].X, res.Offsets[1].Y)
		assert.InDelta(t, first, step, 1e-6, "exposure %d", i)
	}
}

func TestDetermineOffsets_ScaleGate(t *testing.T) {
	p := quietPipeline(t)

	mixed := header.Batch{
		testutil.Exposure(10.0, 20.0, 0, 0, 0.020),
		testutil.Exposure(10.001, 20.0, 0, 0, 0.035),
	}
	_, err := p.DetermineOffsets(mixed, Cube, Telescope, false)
	assert.True(t, errors.Is(err, ErrInconsistentHeaders), "got %v", err)

	same := header.Batch{
		testutil.Exposure(10.0, 20.0, 0, 0, 0.020),
		testutil.Exposure(10.001, 20.0, 0, 0, 0.020),
	}
	res, err := p.DetermineOffsets(same, Cube, Telescope, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0203, res.Scale)

	unknown := header.Batch{
		testutil.Exposure(10.0, 20.0, 0, 0, 0.025),
		testutil.Exposure(10.001, 20.0, 0, 0, 0.025),
	}
	_, err = p.DetermineOffsets(unknown, Cube, Telescope, false)
	assert.True(t, errors.Is(err, ErrUnrecognizedScale), "got %v", err)
}

func TestDetermineOffsets_PositionAngleGate(t *testing.T) {
	p := quietPipeline(t)

	tests := []struct {
		name    string
		rot     float64
		inst    float64
		wantErr bool
	}{
		{"two degrees", 2, 0, true},
		{"two degrees via instrument", 0, 2, true},
		{"half degree", 0.5, 0, false},
		{"same", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := header.Batch{
				testutil.Exposure(10.0, 20.0, 0, 0, 0.020),
				testutil.Exposure(10.001, 20.0, tt.rot, tt.inst, 0.020),
			}
			res, err := p.DetermineOffsets(batch, Cube, Telescope, false)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInconsistentPositionAngle), "got %v", err)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0.0, res.PositionAngle)
		})
	}
}

func TestDetermineOffsets_SkipPositionAngle(t *testing.T) {
	p := quietPipeline(t)
	batch := testutil.DitherBatch(3, 0.001)
	for _, rec := range batch {
		delete(rec, "ROTPOSN")
		delete(rec, "INSTANGL")
	}

	_, err := p.DetermineOffsets(batch, Cube, Telescope, false)
	assert.True(t, errors.Is(err, ErrMissingKeyword), "got %v", err)

	res, err := p.DetermineOffsets(batch, Cube, Telescope, true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.PositionAngle)
	assert.InDelta(t, -166.64499678952689, res.Offsets[1].Y, 1e-9)

	// Skipping also bypasses the gate itself.
	wild := testutil.DitherBatch(2, 0.001)
	wild[1]["ROTPOSN"] = 90.0
	_, err = p.DetermineOffsets(wild, Cube, Telescope, true)
	assert.NoError(t, err)
}

func TestDetermineOffsets_ImageFormat(t *testing.T) {
	p := quietPipeline(t)
	batch := testutil.DitherBatch(2, 0.001)
	delete(batch[0], "SSCALE")
	batch[1]["SSCALE"] = 0.1

	res, err := p.DetermineOffsets(batch, Image, Telescope, false)
	require.NoError(t, err)
	assert.Equal(t, ImageScale, res.Scale)
	assert.InDelta(t, 0.8290313946973066, res.PositionAngle, 1e-12)

	// The 47.5 degree bias rotates the RA shift off the y axis.
	sin, cos := math.Sincos(res.PositionAngle)
	assert.InDelta(t, 166.64499678952689*sin, res.Offsets[1].X, 1e-9)
	assert.InDelta(t, -166.64499678952689*cos, res.Offsets[1].Y, 1e-9)
}

func TestDetermineOffsets_AdaptiveOptics(t *testing.T) {
	p := quietPipeline(t)

	batch := testutil.DitherBatch(2, 0.001)
	_, err := p.DetermineOffsets(batch, Cube, AdaptiveOptics, false)
	assert.True(t, errors.Is(err, ErrMissingKeyword), "got %v", err)
	assert.Contains(t, err.Error(), "AOTSX")

	for i, rec := range batch {
		rec["AOTSX"] = float64(i) * 0.5
		rec["AOTSY"] = 1.0
	}
	_, err = p.DetermineOffsets(batch, Cube, AdaptiveOptics, false)
	assert.True(t, errors.Is(err, ErrNotImplemented), "got %v", err)
}

func TestDetermineOffsets_CheckOrder(t *testing.T) {
	p := quietPipeline(t)

	single := testutil.DitherBatch(1, 0)

	badScaleAndPA := testutil.DitherBatch(2, 0.001)
	badScaleAndPA[1]["SSCALE"] = 0.035
	badScaleAndPA[1]["ROTPOSN"] = 10.0

	badPANoCoords := testutil.DitherBatch(2, 0.001)
	badPANoCoords[1]["ROTPOSN"] = 10.0
	delete(badPANoCoords[1], "RA")

	tests := []struct {
		name    string
		batch   header.Batch
		format  Format
		mode    Mode
		wantErr error
	}{
		{"mode before format", single, Format(7), Mode(7), ErrInvalidMode},
		{"format before length", single, Format(7), Telescope, ErrInvalidFormat},
		{"single exposure", single, Cube, Telescope, ErrInsufficientData},
		{"empty batch", nil, Cube, Telescope, ErrInsufficientData},
		{"scale before position angle", badScaleAndPA, Cube, Telescope, ErrInconsistentHeaders},
		{"position angle before coordinates", badPANoCoords, Cube, Telescope, ErrInconsistentPositionAngle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.DetermineOffsets(tt.batch, tt.format, tt.mode, false)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestDetermineOffsets_MalformedValues(t *testing.T) {
	p := quietPipeline(t)

	text := testutil.DitherBatch(2, 0.001)
	text[1]["RA"] = "ten"
	_, err := p.DetermineOffsets(text, Cube, Telescope, false)
	assert.True(t, errors.Is(err, ErrMalformedInput), "got %v", err)
	assert.True(t, errors.Is(err, header.ErrNotNumeric))

	numericText := testutil.DitherBatch(2, 0.001)
	numericText[1]["RA"] = " 10.001 "
	res, err := p.DetermineOffsets(numericText, Cube, Telescope, false)
	require.NoError(t, err)
	assert.InDelta(t, -166.64499678952689, res.Offsets[1].Y, 1e-9)

	nan := testutil.DitherBatch(2, 0.001)
	nan[1]["DEC"] = math.NaN()
	_, err = p.DetermineOffsets(nan, Cube, Telescope, false)
	assert.True(t, errors.Is(err, ErrTransformFailed), "got %v", err)
}

func TestDetermineOffsets_DoesNotModifyBatch(t *testing.T) {
	p := quietPipeline(t)
	batch := testutil.DitherBatch(4, 0.0007)
	before := make(header.Batch, len(batch))
	for i, rec := range batch {
		before[i] = rec.Clone()
	}

	first, err := p.DetermineOffsets(batch, Cube, Telescope, false)
	require.NoError(t, err)
	second, err := p.DetermineOffsets(batch, Cube, Telescope, false)
	require.NoError(t, err)

	if diff := cmp.Diff(before, batch); diff != "" {
		t.Errorf("batch modified (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ (-first +second):\n%s", diff)
	}
}

func TestDetermineOffsets_Concurrent(t *testing.T) {
	p := quietPipeline(t)
	batch := testutil.DitherBatch(3, 0.001)
	want, err := p.DetermineOffsets(batch, Cube, Telescope, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = p.DetermineOffsets(batch, Cube, Telescope, false)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("result %d differs:\n%s", i, diff)
		}
	}
}

func TestPipeline_CustomKeywords(t *testing.T) {
	p := NewPipeline(Config{
		Keywords: Keywords{RA: "OBJRA", Dec: "OBJDEC", Scale: "PIXSCALE"},
		Logf:     t.Logf,
	})

	batch := header.Batch{
		{"OBJRA": 10.0, "OBJDEC": 20.0, "PIXSCALE": 0.1, "ROTPOSN": 0.0, "INSTANGL": 0.0},
		{"OBJRA": 10.001, "OBJDEC": 20.0, "PIXSCALE": 0.1, "ROTPOSN": 0.0, "INSTANGL": 0.0},
	}

	res, err := p.DetermineOffsets(batch, Cube, Telescope, false)
	require.NoError(t, err)
	assert.Equal(t, 0.1009, res.Scale)
	assert.InDelta(t, -166.64499678952689*0.0203/0.1009, res.Offsets[1].Y, 1e-9)

	cfg := p.Config()
	assert.Equal(t, "ROTPOSN", cfg.Keywords.Rotator)
	assert.Equal(t, "AOTSX", cfg.Keywords.AOX)
	assert.Equal(t, DefaultPositionAngleTolerance, cfg.PositionAngleTolerance)
}

func TestPipeline_CustomTolerance(t *testing.T) {
	p := NewPipeline(Config{PositionAngleTolerance: 0.05, Logf: t.Logf})
	batch := testutil.DitherBatch(2, 0.001)
	batch[1]["ROTPOSN"] = 2.0

	res, err := p.DetermineOffsets(batch, Cube, Telescope, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.PositionAngle)
}

func TestPipeline_Logging(t *testing.T) {
	var lines []string
	p := NewPipeline(Config{Logf: func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	}})

	_, err := p.DetermineOffsets(testutil.DitherBatch(2, 0.001), Cube, Telescope, false)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "2 exposures")
	assert.Contains(t, lines[0], "scale=0.0203")
	assert.Contains(t, lines[2], "exposure 1")

	lines = nil
	bad := testutil.DitherBatch(2, 0.001)
	bad[1]["SSCALE"] = 0.05
	_, err = p.DetermineOffsets(bad, Cube, Telescope, false)
	require.Error(t, err)
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "(data_quality)"), lines[0])
}

func TestResult_Columns(t *testing.T) {
	r := &Result{Offsets: []Offset{{0, 0}, {1.5, -2}, {3, 4}}}
	xs, ys := r.Columns()
	assert.Equal(t, []float64{0, 1.5, 3}, xs)
	assert.Equal(t, []float64{0, -2, 4}, ys)
}

func TestResult_JSON(t *testing.T) {
	r := Result{
		Format:        Image,
		Mode:          Telescope,
		Scale:         0.0203,
		PositionAngle: 0.5,
		Offsets:       []Offset{{0, 0}, {1, 2}},
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"format": "image",
		"mode": "telescope",
		"scale": 0.0203,
		"position_angle": 0.5,
		"offsets": [{"x": 0, "y": 0}, {"x": 1, "y": 2}]
	}`, string(data))

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestCoordinateMatrix(t *testing.T) {
	m, err := coordinateMatrix([]float64{1, 2, 3}, []float64{4, 5, 6}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, []float64{m.At(0, 0), m.At(0, 1), m.At(0, 2)})
	assert.Equal(t, []float64{4, 5, 6}, []float64{m.At(1, 0), m.At(1, 1), m.At(1, 2)})

	_, err = coordinateMatrix([]float64{1, 2}, []float64{4}, 2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = coordinateMatrix([]float64{1, 2}, []float64{4, 5}, 3)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = coordinateMatrix(nil, nil, 0)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestReadFloats(t *testing.T) {
	batch := header.Batch{{"SSCALE": 0.020}, {"SSCALE": " 0.020 "}}
	got, err := readFloats(batch, "SSCALE")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.020, 0.020}, got)

	_, err = readFloats(header.Batch{{"SSCALE": "wide"}}, "SSCALE")
	assert.True(t, errors.Is(err, ErrMalformedInput), "got %v", err)
	assert.True(t, errors.Is(err, header.ErrNotNumeric), "got %v", err)

	_, err = readFloats(header.Batch{{"RA": 1.0}}, "SSCALE")
	assert.True(t, errors.Is(err, ErrMissingKeyword), "got %v", err)
	assert.False(t, errors.Is(err, ErrMalformedInput))
}

func TestMetricLabels(t *testing.T) {
	tests := []struct {
		name       string
		format     Format
		mode       Mode
		wantFormat string
		wantMode   string
	}{
		{"valid", Cube, Telescope, "cube", "telescope"},
		{"image ao", Image, AdaptiveOptics, "image", "ao"},
		{"bad mode", Cube, Mode(7), "cube", "invalid"},
		{"bad format", Format(-1), Telescope, "invalid", "telescope"},
		{"both bad", Format(9), Mode(9), "invalid", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, m := metricLabels(tt.format, tt.mode)
			assert.Equal(t, tt.wantFormat, f)
			assert.Equal(t, tt.wantMode, m)
		})
	}
}

func TestDetermineOffsets_InvalidModeMetricLabel(t *testing.T) {
	_, err := quietPipeline(t).DetermineOffsets(testutil.DitherBatch(2, 0.001), Cube, Mode(7), false)
	require.True(t, errors.Is(err, ErrInvalidMode))

	rec := httptest.NewRecorder()
	monitoring.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `mosaic_offset_runs_total{format="cube",mode="invalid",outcome="failed"}`)
	assert.NotContains(t, body, "Mode(7)")
}

package header_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mosaic.offsets/internal/header"
	"github.com/banshee-data/mosaic.offsets/internal/testutil"
)

func TestGetKeyword(t *testing.T) {
	batch := testutil.DitherBatch(3, 0.001)

	values, err := header.GetKeyword(batch, "DATAFILE")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"s001", "s002", "s003"}, values)
}

func TestGetKeyword_MissingFailsLoudly(t *testing.T) {
	batch := testutil.DitherBatch(3, 0.001)
	delete(batch[2], "RA")

	values, err := header.GetKeyword(batch, "RA")
	assert.Nil(t, values)
	require.Error(t, err)
	assert.True(t, errors.Is(err, header.ErrMissingKeyword))
	assert.Contains(t, err.Error(), "header 2")
}

func TestFloats_Coercion(t *testing.T) {
	batch := header.Batch{
		{"V": 1.5},
		{"V": float32(2.5)},
		{"V": 3},
		{"V": int64(4)},
		{"V": json.Number("5.25")},
		{"V": " 6.75 "},
	}

	values, err := header.Floats(batch, "V")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3, 4, 5.25, 6.75}, values)
}

func TestFloats_NotNumeric(t *testing.T) {
	batch := header.Batch{{"V": 1.0}, {"V": "north"}}
	_, err := header.Floats(batch, "V")
	assert.True(t, errors.Is(err, header.ErrNotNumeric))

	batch = header.Batch{{"V": true}}
	_, err = header.Floats(batch, "V")
	assert.True(t, errors.Is(err, header.ErrNotNumeric))
}

func TestRecordFloat(t *testing.T) {
	rec := header.Record{"SSCALE": 0.035}
	v, err := rec.Float("SSCALE")
	require.NoError(t, err)
	assert.Equal(t, 0.035, v)

	_, err = rec.Float("RA")
	assert.True(t, errors.Is(err, header.ErrMissingKeyword))
}

func TestSetOffsets(t *testing.T) {
	batch := testutil.DitherBatch(2, 0.001)

	out, err := header.SetOffsets(batch, header.XOffsetKeyword, header.YOffsetKeyword,
		[]float64{0, 1.5}, []float64{0, -166.6})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 0.0, out[0]["X_OFF"])
	assert.Equal(t, 0.0, out[0]["Y_OFF"])
	assert.Equal(t, 1.5, out[1]["X_OFF"])
	assert.Equal(t, -166.6, out[1]["Y_OFF"])
	assert.Equal(t, "s002", out[1]["DATAFILE"])

	// Input records are left untouched
	_, ok := batch[1]["X_OFF"]
	assert.False(t, ok)
}

func TestSetOffsets_LengthMismatch(t *testing.T) {
	batch := testutil.DitherBatch(3, 0.001)
	_, err := header.SetOffsets(batch, "X_OFF", "Y_OFF", []float64{0, 1}, []float64{0, 1, 2})
	assert.True(t, errors.Is(err, header.ErrLengthMismatch))
}

func TestLabel(t *testing.T) {
	rec := header.Record{"DATAFILE": " s042 ", "OBJECT": 7}
	assert.Equal(t, "s042", header.Label(rec, "DATAFILE", 0))
	assert.Equal(t, "exp005", header.Label(rec, "OBJECT", 5))
	assert.Equal(t, "exp001", header.Label(rec, "MISSING", 1))
}

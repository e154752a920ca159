// Package header holds per-exposure header records and the accessor and
// writer used by the offset pipeline. A Record maps FITS-style keywords to
// scalar values; a Batch is the ordered set of records for one mosaic.
package header

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Default keywords for the computed offsets.
const (
	XOffsetKeyword = "X_OFF"
	YOffsetKeyword = "Y_OFF"
)

var (
	// ErrMissingKeyword is returned when a record lacks a requested keyword.
	ErrMissingKeyword = errors.New("missing keyword")
	// ErrNotNumeric is returned when a keyword value cannot be read as a number.
	ErrNotNumeric = errors.New("keyword value is not numeric")
	// ErrLengthMismatch is returned when written values do not line up with the batch.
	ErrLengthMismatch = errors.New("value count does not match batch length")
)

// Record is a single exposure header.
type Record map[string]interface{}

// Batch is an ordered sequence of exposure headers. Index 0 is the reference exposure.
type Batch []Record

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float returns the numeric value of key.
func (r Record) Float(key string) (float64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKeyword, key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s=%v", ErrNotNumeric, key, v)
	}
	return f, nil
}

// GetKeyword returns the values of name across the batch, in record order.
// It fails if any record lacks the keyword; there are no silent defaults.
func GetKeyword(batch Batch, name string) ([]interface{}, error) {
	values := make([]interface{}, len(batch))
	for i, rec := range batch {
		v, ok := rec[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s not present in header %d", ErrMissingKeyword, name, i)
		}
		values[i] = v
	}
	return values, nil
}

// Floats is GetKeyword with every value coerced to float64.
func Floats(batch Batch, name string) ([]float64, error) {
	values, err := GetKeyword(batch, name)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v in header %d", ErrNotNumeric, name, v, i)
		}
		out[i] = f
	}
	return out, nil
}

// Label returns a display name for record i: the string value of key when
// present, otherwise a generated exposure name.
func Label(rec Record, key string, i int) string {
	if v, ok := rec[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fmt.Sprintf("exp%03d", i)
}

// SetOffsets returns a copy of batch with xs and ys written to xKey and yKey.
// The input batch is not modified.
func SetOffsets(batch Batch, xKey, yKey string, xs, ys []float64) (Batch, error) {
	if len(xs) != len(batch) || len(ys) != len(batch) {
		return nil, fmt.Errorf("%w: %d headers, %d x values, %d y values", ErrLengthMismatch, len(batch), len(xs), len(ys))
	}

	out := make(Batch, len(batch))
	for i, rec := range batch {
		c := rec.Clone()
		c[xKey] = xs[i]
		c[yKey] = ys[i]
		out[i] = c
	}
	return out, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Package testutil provides shared test utilities and fixtures.
//
// It centralises exposure header fixtures and small assertion helpers so
// pipeline, store, API and CLI tests build their batches the same way.
package testutil

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/banshee-data/mosaic.offsets/internal/header"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Exposure builds a telescope-mode header with the keywords the pipeline reads.
func Exposure(ra, dec, rotposn, instangl, sscale float64) header.Record {
	return header.Record{
		"RA":       ra,
		"DEC":      dec,
		"ROTPOSN":  rotposn,
		"INSTANGL": instangl,
		"SSCALE":   sscale,
	}
}

// DitherBatch returns a cube-format batch at 0.020"/px whose exposures are
// stepped in RA by stepDeg from (10, 20), all at rotator angle 0.
func DitherBatch(n int, stepDeg float64) header.Batch {
	batch := make(header.Batch, n)
	for i := range batch {
		batch[i] = Exposure(10.0+float64(i)*stepDeg, 20.0, 0, 0, 0.020)
		batch[i]["DATAFILE"] = fmt.Sprintf("s%03d", i+1)
	}
	return batch
}

// FITSCard formats a single 80-column FITS header card.
func FITSCard(key string, value interface{}) string {
	var card string
	switch v := value.(type) {
	case string:
		card = fmt.Sprintf("%-8s= %-20s", key, "'"+v+"'")
	case bool:
		tf := "F"
		if v {
			tf = "T"
		}
		card = fmt.Sprintf("%-8s= %20s", key, tf)
	case int:
		card = fmt.Sprintf("%-8s= %20d", key, v)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		card = fmt.Sprintf("%-8s= %20s", key, s)
	default:
		card = fmt.Sprintf("%-8s= %20v", key, v)
	}
	return fmt.Sprintf("%-80s", card)
}

// FITSHeader builds a minimal FITS file (primary HDU header, no data) from the
// given key/value pairs. keyvals alternates keyword and value.
func FITSHeader(keyvals ...interface{}) []byte {
	var b strings.Builder
	b.WriteString(FITSCard("SIMPLE", true))
	b.WriteString(FITSCard("BITPIX", 8))
	b.WriteString(FITSCard("NAXIS", 0))
	for i := 0; i+1 < len(keyvals); i += 2 {
		b.WriteString(FITSCard(keyvals[i].(string), keyvals[i+1]))
	}
	b.WriteString(fmt.Sprintf("%-80s", "END"))

	// Pad to a whole 2880-byte block
	out := b.String()
	if rem := len(out) % 2880; rem != 0 {
		out += strings.Repeat(" ", 2880-rem)
	}
	return []byte(out)
}

package testutil

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestAssertHelpers_Passing(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
}

func TestExposure(t *testing.T) {
	rec := Exposure(10, 20, 1, 2, 0.035)
	if rec["RA"] != 10.0 || rec["DEC"] != 20.0 {
		t.Errorf("unexpected coordinates: %v", rec)
	}
	if rec["SSCALE"] != 0.035 {
		t.Errorf("SSCALE = %v, want 0.035", rec["SSCALE"])
	}
}

func TestDitherBatch(t *testing.T) {
	batch := DitherBatch(3, 0.001)
	if len(batch) != 3 {
		t.Fatalf("len = %d, want 3", len(batch))
	}
	if batch[2]["RA"] != 10.002 {
		t.Errorf("RA[2] = %v, want 10.002", batch[2]["RA"])
	}
	if batch[0]["DATAFILE"] != "s001" {
		t.Errorf("DATAFILE[0] = %v", batch[0]["DATAFILE"])
	}
}

func TestFITSCard(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
		want  string
	}{
		{"SIMPLE", true, "SIMPLE  =                    T"},
		{"NAXIS", 0, "NAXIS   =                    0"},
		{"RA", 10.0, "RA      =                 10.0"},
		{"SSCALE", 0.02, "SSCALE  =                 0.02"},
		{"DATAFILE", "s001", "DATAFILE= 's001'"},
	}

	for _, tt := range tests {
		card := FITSCard(tt.key, tt.value)
		if len(card) != 80 {
			t.Errorf("%s: card length = %d, want 80", tt.key, len(card))
		}
		if got := strings.TrimRight(card, " "); got != tt.want {
			t.Errorf("FITSCard(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFITSHeader_BlockAligned(t *testing.T) {
	data := FITSHeader("RA", 10.0, "DEC", 20.0)
	if len(data)%2880 != 0 {
		t.Errorf("header length %d is not a multiple of 2880", len(data))
	}
	if !strings.Contains(string(data), "END     ") {
		t.Error("header missing END card")
	}
}

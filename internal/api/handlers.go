package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/mosaic.offsets/internal/db"
	"github.com/banshee-data/mosaic.offsets/internal/header"
	"github.com/banshee-data/mosaic.offsets/internal/offsets"
	"github.com/banshee-data/mosaic.offsets/internal/qbits"
	"github.com/banshee-data/mosaic.offsets/internal/report"
	"github.com/banshee-data/mosaic.offsets/internal/version"
)

// maxBodyBytes bounds request bodies; a batch is tens of headers.
const maxBodyBytes = 4 << 20

var errNoStore = errors.New("run store not configured")

type offsetsRequest struct {
	Format            string          `json:"format"`
	Mode              string          `json:"mode"`
	SkipPositionAngle *bool           `json:"skip_position_angle"`
	Headers           []header.Record `json:"headers"`
}

type offsetsResponse struct {
	RunID   string          `json:"run_id,omitempty"`
	Result  *offsets.Result `json:"result"`
	Headers header.Batch    `json:"headers"`
}

func (s *Server) handleOffsets(w http.ResponseWriter, r *http.Request) {
	var req offsetsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	for i, rec := range req.Headers {
		if rec == nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("header %d is null", i))
			return
		}
	}

	if req.Format == "" {
		req.Format = s.cfg.GetFormat()
	}
	if req.Mode == "" {
		req.Mode = s.cfg.GetMode()
	}
	skip := s.cfg.GetSkipPositionAngle()
	if req.SkipPositionAngle != nil {
		skip = *req.SkipPositionAngle
	}

	format, err := offsets.ParseFormat(req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	mode, err := offsets.ParseMode(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}

	batch := header.Batch(req.Headers)
	res, err := s.pipeline.DetermineOffsets(batch, format, mode, skip)
	if err != nil {
		writeError(w, err)
		return
	}

	xs, ys := res.Columns()
	out, err := header.SetOffsets(batch, s.cfg.GetXOffKeyword(), s.cfg.GetYOffKeyword(), xs, ys)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := offsetsResponse{Result: res, Headers: out}
	if s.store != nil {
		run := db.NewOffsetRun(res, s.names(batch))
		if err := s.store.RecordRun(run); err != nil {
			writeError(w, fmt.Errorf("failed to record run: %w", err))
			return
		}
		resp.RunID = run.RunID
	}
	writeJSON(w, http.StatusOK, resp)
}

// names labels each exposure from the configured name keyword.
func (s *Server) names(batch header.Batch) []string {
	key := s.cfg.GetNameKeyword()
	names := make([]string, len(batch))
	for i, rec := range batch {
		names[i] = header.Label(rec, key, i)
	}
	return names
}

type qbitsRequest struct {
	Direction string `json:"direction"`
	Values    []int  `json:"values"`
}

type qbitsResponse struct {
	Direction string `json:"direction"`
	Values    []int  `json:"values"`
}

func (s *Server) handleQbits(w http.ResponseWriter, r *http.Request) {
	var req qbitsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	var values []int
	switch req.Direction {
	case "", "forward":
		req.Direction = "forward"
		values = qbits.ForwardAll(req.Values)
	case "reverse":
		values = qbits.ReverseAll(req.Values)
	default:
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid direction %q: want forward or reverse", req.Direction))
		return
	}
	if values == nil {
		values = []int{}
	}
	writeJSON(w, http.StatusOK, qbitsResponse{Direction: req.Direction, Values: values})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}

	limit := db.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// loadRun fetches the run named by the {id} path segment, writing the error
// reply itself when that fails.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*db.OffsetRun, bool) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return nil, false
	}
	run, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return run, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}
	if err := s.store.DeleteRun(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runLayout returns the stored run as a pipeline result plus exposure names.
func runLayout(run *db.OffsetRun) (*offsets.Result, []string, error) {
	res, err := run.Result()
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, len(run.Exposures))
	for i, e := range run.Exposures {
		names[i] = e.Name
	}
	return res, names, nil
}

func (s *Server) handleRunChart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	res, names, err := runLayout(run)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.RenderLayoutHTML(&buf, "Mosaic run "+run.RunID, res, names); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleRunLayoutPNG(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	res, names, err := runLayout(run)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteLayoutPNG(&buf, "Mosaic run "+run.RunID, res, names); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to draw layout: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

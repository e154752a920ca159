package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/mosaic.offsets/internal/config"
	"github.com/banshee-data/mosaic.offsets/internal/db"
	"github.com/banshee-data/mosaic.offsets/internal/monitoring"
	"github.com/banshee-data/mosaic.offsets/internal/offsets"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RunStore persists offset runs. *db.DB implements it.
type RunStore interface {
	RecordRun(run *db.OffsetRun) error
	GetRun(id string) (*db.OffsetRun, error)
	ListRuns(limit int) ([]db.OffsetRun, error)
	DeleteRun(id string) error
}

type Server struct {
	pipeline *offsets.Pipeline
	store    RunStore
	cfg      *config.OffsetConfig
}

// NewServer returns a Server computing offsets with pipeline. store may be
// nil, in which case runs are not recorded and the run endpoints answer 503.
// cfg supplies request defaults and output keywords; nil means defaults.
func NewServer(pipeline *offsets.Pipeline, store RunStore, cfg *config.OffsetConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyOffsetConfig()
	}
	return &Server{
		pipeline: pipeline,
		store:    store,
		cfg:      cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/offsets", s.handleOffsets)
	mux.HandleFunc("POST /api/qbits", s.handleQbits)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /api/runs/{id}", s.handleDeleteRun)
	mux.HandleFunc("GET /api/runs/{id}/chart", s.handleRunChart)
	mux.HandleFunc("GET /api/runs/{id}/layout.png", s.handleRunLayoutPNG)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.Handle("GET /metrics", monitoring.Handler())
	return mux
}

// Handler returns the full middleware chain around ServeMux.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(monitoring.Middleware(s.ServeMux()))
}

// Package server exposes the calculator over HTTP and WebSocket.
//
// Routes:
//
//	POST /v1/compute                       workspace document in, result out
//	GET  /v1/ws                            live session with a calculating frame
//	GET  /v1/results                       archived results, newest first
//	GET  /v1/results/{id}                  one archived result
//	GET  /v1/results/{id}/report           rendered report (?format=markdown|csv|json)
//	GET  /v1/results/{id}/categories       per-category rows of one result
//	GET  /v1/categories/{name}/history     per-category rows across results
//	GET  /health
//	GET  /metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"gacha-lab/internal/config"
	"gacha-lab/internal/domain"
	"gacha-lab/internal/idgen"
	"gacha-lab/internal/ingest"
	"gacha-lab/internal/observability"
	"gacha-lab/internal/orchestrator"
	"gacha-lab/internal/reporting"
	"gacha-lab/internal/storage"
	"gacha-lab/internal/workspace"
)

// maxDocumentBytes caps a workspace document.
const maxDocumentBytes = 1 << 20

// defaultListLimit applies when ?limit is absent or 0.
const defaultListLimit = 50

// ErrArchiveDisabled is returned by archive routes when no store is configured.
var ErrArchiveDisabled = errors.New("result archive is not configured")

// Options for creating Server.
type Options struct {
	Orchestrator *orchestrator.Orchestrator // required

	// Optional archive
	ResultStore       storage.ResultStore
	CategoryStatStore storage.CategoryStatStore

	// Optional export of every computed result
	Exporter *reporting.Exporter

	Logger  *zap.Logger            // nil disables logging
	Metrics *observability.Metrics // nil uses observability.DefaultMetrics
	Now     func() time.Time       // report clock
}

// Server serves the HTTP API.
type Server struct {
	orch     *orchestrator.Orchestrator
	results  storage.ResultStore
	stats    storage.CategoryStatStore
	exporter *reporting.Exporter
	reports  *reporting.Generator
	log      *zap.Logger
	metrics  *observability.Metrics
}

// New creates a new Server.
func New(opts Options) *Server {
	s := &Server{
		orch:     opts.Orchestrator,
		results:  opts.ResultStore,
		stats:    opts.CategoryStatStore,
		exporter: opts.Exporter,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	s.reports = reporting.NewGenerator(s.results)
	if opts.Now != nil {
		s.reports = s.reports.WithClock(opts.Now)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /v1/compute", s.instrument("compute", s.handleCompute))
	mux.Handle("GET /v1/ws", s.instrument("ws", s.handleWS))
	mux.Handle("GET /v1/results", s.instrument("results", s.handleListResults))
	mux.Handle("GET /v1/results/{id}", s.instrument("result", s.handleGetResult))
	mux.Handle("GET /v1/results/{id}/report", s.instrument("report", s.handleReport))
	mux.Handle("GET /v1/results/{id}/categories", s.instrument("result_categories", s.handleResultCategories))
	mux.Handle("GET /v1/categories/{name}/history", s.instrument("category_history", s.handleCategoryHistory))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	return mux
}

// ComputeResponse is the body of a successful calculation.
type ComputeResponse struct {
	ResultID string         `json:"resultId"`
	Stored   bool           `json:"stored"`
	Location string         `json:"location,omitempty"` // exported report
	Warnings []string       `json:"warnings,omitempty"` // archive or export failures
	Result   *domain.Result `json:"result"`
}

// Compute parses a workspace document, runs it and exports the report.
// Archive and export failures become warnings; the result is still returned.
func (s *Server) Compute(ctx context.Context, doc []byte) (*ComputeResponse, error) {
	ws, err := ingest.Parse(doc)
	if err != nil {
		return nil, err
	}

	out, err := s.orch.RunWorkspace(ctx, ws)
	if err != nil {
		return nil, err
	}

	resp := &ComputeResponse{
		ResultID: out.ResultID,
		Stored:   out.Stored,
		Warnings: out.Errors,
		Result:   out.Result,
	}

	if s.exporter != nil {
		report, err := s.reports.FromResult(out.ResultID, out.Result)
		if err == nil {
			resp.Location, err = s.exporter.Export(ctx, report)
		}
		if err != nil {
			resp.Warnings = append(resp.Warnings, err.Error())
		}
	}

	return resp, nil
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	resp, err := s.Compute(r.Context(), doc)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// ResultSummary is one entry of the result listing.
type ResultSummary struct {
	ResultID                string  `json:"resultId"`
	CreatedAt               int64   `json:"createdAt"`
	TotalMaterials          int     `json:"totalMaterials"`
	CurrentExpectedValue    float64 `json:"currentExpectedValue"`
	BestExpectedValue       float64 `json:"bestExpectedValue"`
	RiskRewardExpectedValue float64 `json:"riskRewardExpectedValue"`
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, http.StatusNotImplemented, ErrArchiveDisabled)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		if n > 0 {
			limit = n
		}
	}

	recs, err := s.results.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}

	summaries := make([]ResultSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, ResultSummary{
			ResultID:                rec.ResultID,
			CreatedAt:               rec.CreatedAt,
			TotalMaterials:          rec.Result.TotalMaterials,
			CurrentExpectedValue:    rec.Result.CurrentExpectedValue,
			BestExpectedValue:       rec.Result.BestExpectedValue,
			RiskRewardExpectedValue: rec.Result.RiskRewardExpectedValue,
		})
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, http.StatusNotImplemented, ErrArchiveDisabled)
		return
	}

	id, err := resultID(r)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	rec, err := s.results.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"resultId":  rec.ResultID,
		"createdAt": rec.CreatedAt,
		"result":    rec.Result,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		s.writeError(w, http.StatusNotImplemented, ErrArchiveDisabled)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = config.FormatMarkdown
	}

	id, err := resultID(r)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	report, err := s.reports.Generate(r.Context(), id)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	rendered, err := reporting.Render(report, format)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", rendered.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(rendered.Data)
}

func (s *Server) handleResultCategories(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, http.StatusNotImplemented, ErrArchiveDisabled)
		return
	}

	id, err := resultID(r)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	rows, err := s.stats.GetByResultID(r.Context(), id)
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	if rows == nil {
		rows = []*domain.CategoryStat{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// resultID returns the {id} path value, rejecting anything idgen could not have produced.
func resultID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if !idgen.Valid(id) {
		return "", fmt.Errorf("%w: malformed result id %q", storage.ErrInvalidInput, id)
	}
	return id, nil
}

func (s *Server) handleCategoryHistory(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		s.writeError(w, http.StatusNotImplemented, ErrArchiveDisabled)
		return
	}

	rows, err := s.stats.GetByCategoryName(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, ErrorStatus(err), err)
		return
	}
	if rows == nil {
		rows = []*domain.CategoryStat{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// ErrorStatus maps an error to its HTTP status code.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, ingest.ErrInvalidDocument),
		workspace.IsInvalidInput(err),
		errors.Is(err, reporting.ErrUnknownFormat),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrNoMaterials):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, workspace.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("code", code), zap.Error(err))
	}
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response failed", zap.Error(err))
	}
}

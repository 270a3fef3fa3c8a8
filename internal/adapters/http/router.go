package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/config"
	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/legal-rag-api/internal/observability/metrics"
)

const (
	serviceName    = "Legal RAG System"
	serviceVersion = "1.0"
	maxBodyBytes   = 4 << 20
	xlsxMediaType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Dependencies are the inbound services behind the HTTP surface. BatchJobs
// and BatchJobReader may be nil when asynchronous batch jobs are disabled.
type Dependencies struct {
	Queries        ports.QueryService
	BatchJobs      ports.BatchJobSubmitter
	BatchJobReader ports.BatchJobReader
	Metrics        *metrics.HTTPServerMetrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
	api  *apiSchema
}

func NewRouter(cfg config.Config, deps Dependencies) (*Router, error) {
	if deps.Queries == nil {
		return nil, errors.New("query service is required")
	}
	api, err := loadAPISchema()
	if err != nil {
		return nil, err
	}
	return &Router{cfg: cfg, deps: deps, api: api}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.health)
	mux.HandleFunc("POST /query", rt.query)
	mux.HandleFunc("POST /batch_query", rt.batchQuery)
	mux.HandleFunc("GET /system_info", rt.systemInfo)
	mux.HandleFunc("GET /openapi.json", rt.openAPI)
	mux.HandleFunc("POST /v1/batch_jobs", rt.submitBatchJob)
	mux.HandleFunc("GET /v1/batch_jobs/{id}", rt.getBatchJob)
	mux.HandleFunc("GET /v1/batch_jobs/{id}/report.xlsx", rt.getBatchJobReport)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(handler)
	}
	handler = recoveryMiddleware(handler)
	handler = corsMiddleware(handler, rt.cfg.APICORSOrigins)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Service: serviceName, Version: serviceVersion})
}

type queryRequest struct {
	Question string `json:"question"`
	System   string `json:"system"`
}

type batchRequest struct {
	Questions []string `json:"questions"`
	System    string   `json:"system"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := rt.decodeBody(r, schemaQueryRequest, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	result, err := rt.deps.Queries.Answer(r.Context(), req.Question, req.System)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) batchQuery(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := rt.decodeBody(r, schemaBatchQueryRequest, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	result, err := rt.deps.Queries.AnswerBatch(r.Context(), req.Questions, req.System)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) systemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := rt.deps.Queries.SystemInfo(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.api.doc)
}

var errBatchJobsDisabled = domain.WrapError(domain.ErrTemporary, "batch jobs", errors.New("asynchronous batch jobs are disabled"))

func (rt *Router) submitBatchJob(w http.ResponseWriter, r *http.Request) {
	if rt.deps.BatchJobs == nil {
		rt.writeError(w, r, errBatchJobsDisabled)
		return
	}
	var req batchRequest
	if err := rt.decodeBody(r, schemaBatchQueryRequest, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}

	job, err := rt.deps.BatchJobs.Submit(r.Context(), req.Questions, req.System)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/batch_jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

type batchJobResponse struct {
	*domain.BatchJob
	Summary domain.BatchSummary `json:"summary"`
}

func (rt *Router) loadBatchJob(w http.ResponseWriter, r *http.Request) (*domain.BatchJob, bool) {
	if rt.deps.BatchJobReader == nil {
		rt.writeError(w, r, errBatchJobsDisabled)
		return nil, false
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "get batch job", errors.New("job id is required")))
		return nil, false
	}
	job, err := rt.deps.BatchJobReader.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return nil, false
	}
	return job, true
}

func (rt *Router) getBatchJob(w http.ResponseWriter, r *http.Request) {
	job, ok := rt.loadBatchJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batchJobResponse{BatchJob: job, Summary: job.Summary()})
}

func (rt *Router) getBatchJobReport(w http.ResponseWriter, r *http.Request) {
	job, ok := rt.loadBatchJob(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := xlsx.WriteBatchJobReport(&buf, *job); err != nil {
		rt.writeError(w, r, fmt.Errorf("render batch job report: %w", err))
		return
	}
	w.Header().Set("Content-Type", xlsxMediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="batch_job_%s.xlsx"`, job.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// decodeBody validates the raw body against the named schema before decoding
// it into out.
func (rt *Router) decodeBody(r *http.Request, schema string, out any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "read request body", err)
	}
	if err := rt.api.validate(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	failure := domain.NewFailure(err)

	logAttrs := []any{"path", r.URL.Path, "status", status, "type", failure.Kind, "error", err}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request_failed", logAttrs...)
	} else {
		slog.WarnContext(r.Context(), "request_rejected", logAttrs...)
	}

	message := failure.String()
	if rt.cfg.APIRedactErrors && status >= http.StatusInternalServerError {
		message = failure.Kind + ": internal error"
	}
	writeJSON(w, status, errorResponse{Error: message, Type: failure.Kind})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package httpadapter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/legal-rag-api/internal/config"
	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/observability/metrics"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestHealthReturnsServiceIdentity(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{}).Handler()
	res := doJSON(t, handler, http.MethodGet, "/health", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "Legal RAG System" || body["version"] != "1.0" {
		t.Fatalf("unexpected health payload %v", body)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestQueryReturnsResultAndForwardsSystem(t *testing.T) {
	queries := &queryServiceFake{}
	handler := newTestRouter(t, config.Config{}, Dependencies{Queries: queries}).Handler()

	res := doJSON(t, handler, http.MethodPost, "/query", map[string]any{
		"question": "What is the VAT rate in Italy?",
		"system":   "single-agent",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var result domain.QueryResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Metadata.System != "single-agent" || result.Metadata.NumSources != 1 {
		t.Fatalf("unexpected metadata %+v", result.Metadata)
	}
	if len(queries.systems) != 1 || queries.systems[0] != "single-agent" {
		t.Fatalf("expected system forwarded, got %v", queries.systems)
	}
}

func TestBatchQueryKeepsOrderAndEmbedsFailures(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{}).Handler()

	res := doJSON(t, handler, http.MethodPost, "/batch_query", map[string]any{
		"questions": []string{"What is the VAT rate in Italy?", ""},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var body struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(body.Results))
	}
	if body.Results[0]["question"] != "What is the VAT rate in Italy?" || body.Results[0]["answer"] == nil {
		t.Fatalf("unexpected first result %v", body.Results[0])
	}
	second := body.Results[1]
	if second["question"] != "" || second["type"] != "InvalidInput" {
		t.Fatalf("unexpected second result %v", second)
	}
	if msg, _ := second["error"].(string); !strings.HasPrefix(msg, "InvalidInput: ") {
		t.Fatalf("expected kind-prefixed error, got %q", msg)
	}
}

func TestSystemInfoReturnsSnapshot(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{}).Handler()
	res := doJSON(t, handler, http.MethodGet, "/system_info", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var body struct {
		LLM          map[string]string `json:"llm"`
		VectorStores []string          `json:"vector_stores"`
		System       struct {
			MultiAgent  bool   `json:"multi_agent"`
			AgenticMode string `json:"agentic_mode"`
		} `json:"system"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.LLM["provider"] != "ollama" || len(body.VectorStores) != 1 || !body.System.MultiAgent {
		t.Fatalf("unexpected system info %+v", body)
	}
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{}).Handler()
	res := doJSON(t, handler, http.MethodGet, "/openapi.json", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"/batch_query"`) {
		t.Fatalf("expected batch_query path in document")
	}
}

func TestMetricsEndpointExposesQueryCounters(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("legal-rag-api")
	m.ObserveQuery("query", "multi-agent", 2, "success", 0)
	handler := newTestRouter(t, config.Config{}, Dependencies{Metrics: m}).Handler()

	_ = doJSON(t, handler, http.MethodGet, "/health", nil)
	res := doJSON(t, handler, http.MethodGet, "/metrics", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "legal_rag_query_answers_total") || !strings.Contains(body, "legal_rag_http_requests_total") {
		t.Fatalf("expected query and http counters in exposition")
	}
}

func TestBatchJobLifecycle(t *testing.T) {
	jobs := &batchJobsFake{jobs: map[string]*domain.BatchJob{}}
	handler := newTestRouter(t, config.Config{}, Dependencies{BatchJobs: jobs, BatchJobReader: jobs}).Handler()

	res := doJSON(t, handler, http.MethodPost, "/v1/batch_jobs", map[string]any{
		"questions": []string{"q1", "q2"},
		"system":    "single-agent",
	})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get("Location") != "/v1/batch_jobs/job-1" {
		t.Fatalf("unexpected location %q", res.Header().Get("Location"))
	}

	job := jobs.jobs["job-1"]
	job.Status = domain.BatchJobCompleted
	job.Results = []domain.BatchItem{
		{Question: "q1", Result: &domain.QueryResult{Question: "q1", Answer: "a1", Metadata: domain.QueryMetadata{System: "single-agent"}}},
		{Question: "q2", Failure: &domain.Failure{Kind: "Temporary", Message: "busy"}},
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/batch_jobs/job-1", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		ID      string              `json:"id"`
		Status  string              `json:"status"`
		Summary domain.BatchSummary `json:"summary"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "job-1" || body.Status != "completed" || body.Summary.Succeeded != 1 || body.Summary.Failed != 1 {
		t.Fatalf("unexpected job body %+v", body)
	}

	res = doJSON(t, handler, http.MethodGet, "/v1/batch_jobs/job-1/report.xlsx", nil)
	if res.Code != http.StatusOK || res.Header().Get("Content-Type") != xlsxMediaType {
		t.Fatalf("unexpected report response %d %q", res.Code, res.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(res.Body.Bytes()))
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) != 2 {
		t.Fatalf("expected summary and results sheets, got %v", f.GetSheetList())
	}
}

func TestBatchJobsDisabledReturns503(t *testing.T) {
	handler := newTestRouter(t, config.Config{}, Dependencies{}).Handler()

	res := doJSON(t, handler, http.MethodPost, "/v1/batch_jobs", map[string]any{"questions": []string{"q"}})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	res = doJSON(t, handler, http.MethodGet, "/v1/batch_jobs/job-1", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for reads, got %d", res.Code)
	}
}

func TestUnknownBatchJobReturns404(t *testing.T) {
	jobs := &batchJobsFake{jobs: map[string]*domain.BatchJob{}}
	handler := newTestRouter(t, config.Config{}, Dependencies{BatchJobs: jobs, BatchJobReader: jobs}).Handler()

	res := doJSON(t, handler, http.MethodGet, "/v1/batch_jobs/missing", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-rag-api/internal/observability/logging"
)

func testConfig() domain.RAGConfig {
	return domain.RAGConfig{
		LLM:             domain.ModelSelection{Provider: "ollama", Model: "qwen2.5:7b"},
		Embeddings:      domain.ModelSelection{Provider: "ollama", Model: "bge-m3"},
		VectorStoreDirs: []string{"/data/vector_stores/fl", "/data/vector_stores/ny"},
		TopK:            5,
		UseRerank:       true,
		MultiAgent:      false,
		AgenticMode:     "standard_rag",
	}
}

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     2,
		},
	}, nil)
}

func TestAnswerSendsConfigAndDecodesDocuments(t *testing.T) {
	var captured answerRequest
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != answerPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		requestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"answer": "Florida law requires a 3-day notice.",
			"documents": [{"page_content": "Landlord must give notice", "metadata": {"source": "fl-83.56", "state": "Florida", "law": "landlord-tenant"}}],
			"reasoning_trace": [{"agent": "florida", "action": "retrieve", "detail": "1 document"}]
		}`))
	}))
	defer server.Close()

	client := New(server.URL+"/", time.Second, fastExecutor())
	ctx := logging.WithRequestID(context.Background(), "req-7")
	answer, err := client.Answer(ctx, "How much notice?", testConfig(), false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if captured.Question != "How much notice?" || captured.Config.TopK != 5 || captured.Config.MultiAgent {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
	if len(captured.Config.VectorStoreDirs) != 2 {
		t.Fatalf("expected vector store dirs in payload, got %v", captured.Config.VectorStoreDirs)
	}
	if requestID != "req-7" {
		t.Fatalf("expected request id propagation, got %q", requestID)
	}
	if answer.Text != "Florida law requires a 3-day notice." {
		t.Fatalf("unexpected answer text %q", answer.Text)
	}
	if len(answer.Documents) != 1 || answer.Documents[0].Jurisdiction() != "Florida" {
		t.Fatalf("unexpected documents %+v", answer.Documents)
	}
	if answer.Trace != nil {
		t.Fatalf("trace must be dropped when reasoning is not requested")
	}
}

func TestAnswerKeepsTraceWhenRequested(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"a","documents":[],"reasoning_trace":[{"agent":"synthesizer","action":"synthesize"}]}`))
	}))
	defer server.Close()

	answer, err := New(server.URL, time.Second, nil).Answer(context.Background(), "q", testConfig(), true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Trace) != 1 || answer.Trace[0].Agent != "synthesizer" {
		t.Fatalf("unexpected trace %+v", answer.Trace)
	}
}

func TestAnswerRetriesUnavailableUpstream(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"answer":"ok","documents":[]}`))
	}))
	defer server.Close()

	answer, err := New(server.URL, time.Second, fastExecutor()).Answer(context.Background(), "q", testConfig(), false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "ok" || calls.Load() != 3 {
		t.Fatalf("expected success on third call, got %q after %d calls", answer.Text, calls.Load())
	}
}

func TestAnswerMapsStatusToKind(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"invalid question", http.StatusUnprocessableEntity, domain.ErrInvalidInput},
		{"unavailable", http.StatusServiceUnavailable, domain.ErrTemporary},
		{"not implemented", http.StatusNotImplemented, domain.ErrBackend},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "upstream says no", tc.status)
			}))
			defer server.Close()

			_, err := New(server.URL, time.Second, fastExecutor()).Answer(context.Background(), "q", testConfig(), false)
			if !domain.IsKind(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var statusErr *resilience.HTTPStatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tc.status {
				t.Fatalf("expected wrapped status error, got %v", err)
			}
		})
	}
}

func TestAnswerRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second, nil).Answer(context.Background(), "q", testConfig(), false)
	if !domain.IsKind(err, domain.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

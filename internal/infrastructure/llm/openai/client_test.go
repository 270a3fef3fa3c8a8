package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

func TestGenerateTextUsesChatCompletion(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" Notice is required. "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	gen := NewGenerator("test-key", server.URL, "gpt-4o-mini", nil)
	text, err := gen.GenerateText(context.Background(), "Is notice required?")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if text != "Notice is required." {
		t.Fatalf("unexpected text %q", text)
	}
	if payload["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model in payload: %v", payload["model"])
	}
}

func TestEmbedQueryReturnsVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"text-embedding-3-small"}`))
	}))
	defer server.Close()

	vector, err := NewEmbedder("test-key", server.URL, "text-embedding-3-small", nil).EmbedQuery(context.Background(), "lease")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 || vector[0] != 0.5 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestGenerateTextMapsRateLimitToTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	_, err := NewGenerator("test-key", server.URL, "gpt-4o-mini", nil).GenerateText(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

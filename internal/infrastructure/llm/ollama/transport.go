package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-rag-api/internal/observability/logging"
)

// post encodes payload once and replays the bytes on every retry.
func post[T any](ctx context.Context, c *Client, operation, path string, payload any) (*T, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama %s request: %w", operation, err)
	}

	out, err := resilience.Call(ctx, c.executor, "ollama."+operation, func(callCtx context.Context) (*T, error) {
		return send[T](callCtx, c, operation, path, body)
	}, resilience.ClassifyHTTP)
	if err != nil {
		return nil, resilience.WrapHTTPError("ollama "+operation, err)
	}
	return out, nil
}

func send[T any](ctx context.Context, c *Client, operation, path string, body []byte) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ollama %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()
	slog.DebugContext(ctx, "ollama_call",
		"operation", operation,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, resilience.NewHTTPStatusError("ollama", operation, resp)
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ollama %s response: %w", operation, err)
	}
	return &out, nil
}

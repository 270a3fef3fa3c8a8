package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

const (
	probeTimeout = 5 * time.Second
	maxErrorBody = 2 << 10
)

// Client talks to a running legal RAG API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, queryTimeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: queryTimeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SystemInfo(ctx context.Context) (*domain.SystemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var out domain.SystemInfo
	if err := c.do(ctx, http.MethodGet, "/system_info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Query(ctx context.Context, question, system string) (*domain.QueryResult, error) {
	payload := map[string]string{"question": question, "system": system}
	var out domain.QueryResult
	if err := c.do(ctx, http.MethodPost, "/query", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HTTPError is a non-2xx answer from the API.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

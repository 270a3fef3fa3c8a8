package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
)

// Client searches per-jurisdiction collections. Each vector store directory
// maps to one collection named after the directory.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type searchHit struct {
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) SearchCollection(ctx context.Context, collection string, queryVector []float32, limit int) ([]domain.ScoredDocument, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "qdrant search", errors.New("collection name is empty"))
	}
	if limit <= 0 {
		limit = 5
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	hits, err := resilience.Call(ctx, c.executor, "qdrant.search", func(callCtx context.Context) ([]searchHit, error) {
		return c.search(callCtx, collection, reqBody)
	}, resilience.ClassifyHTTP)
	if err != nil {
		var statusErr *resilience.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, domain.WrapError(domain.ErrConfiguration, "qdrant search", fmt.Errorf("collection %q not found: %w", collection, err))
		}
		return nil, resilience.WrapHTTPError("qdrant search", err)
	}

	out := make([]domain.ScoredDocument, 0, len(hits))
	for _, hit := range hits {
		out = append(out, domain.ScoredDocument{
			Document: documentFromPayload(hit.Payload),
			Score:    hit.Score,
		})
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, collection string, reqBody map[string]any) ([]searchHit, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError("qdrant", "search", resp)
	}

	var searchResp struct {
		Result []searchHit `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return searchResp.Result, nil
}

// documentFromPayload accepts both the nested {page_content, metadata} layout
// and flat payloads where every key except the text is metadata.
func documentFromPayload(payload map[string]any) domain.LegalDocument {
	doc := domain.LegalDocument{Metadata: map[string]any{}}

	for _, key := range []string{"page_content", "text"} {
		if text, ok := payload[key].(string); ok {
			doc.Content = text
			break
		}
	}

	if nested, ok := payload["metadata"].(map[string]any); ok {
		for k, v := range nested {
			doc.Metadata[k] = v
		}
		return doc
	}

	for k, v := range payload {
		if k == "page_content" || k == "text" {
			continue
		}
		doc.Metadata[k] = v
	}
	return doc
}

package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
)

// Client is a thin Ollama HTTP client shared by the embedder and generator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
	model  string
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	response, err := post[embedResponse](ctx, e.client, "embed", "/api/embed", embedRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return nil, domain.WrapError(domain.ErrBackend, "ollama embed", errors.New("empty embedding result"))
	}
	return response.Embeddings[0], nil
}

type Generator struct {
	client *Client
	model  string
}

func NewGenerator(client *Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	response, err := post[generateResponse](ctx, g.client, "generate", "/api/generate", generateRequest{
		Model:  g.model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

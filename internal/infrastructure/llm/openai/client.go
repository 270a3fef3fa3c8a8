package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
)

func newClient(apiKey, baseURL string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return goopenai.NewClientWithConfig(cfg)
}

type Generator struct {
	client   *goopenai.Client
	model    string
	executor *resilience.Executor
}

func NewGenerator(apiKey, baseURL, model string, executor *resilience.Executor) *Generator {
	return &Generator{
		client:   newClient(apiKey, baseURL),
		model:    model,
		executor: executor,
	}
}

func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := resilience.Call(ctx, g.executor, "openai.generate", func(callCtx context.Context) (goopenai.ChatCompletionResponse, error) {
		return g.client.CreateChatCompletion(callCtx, req)
	}, classifyOpenAIError)
	if err != nil {
		return "", wrapOpenAIError("openai generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.WrapError(domain.ErrBackend, "openai generate", errors.New("chat completion returned no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type Embedder struct {
	client   *goopenai.Client
	model    string
	executor *resilience.Executor
}

func NewEmbedder(apiKey, baseURL, model string, executor *resilience.Executor) *Embedder {
	return &Embedder{
		client:   newClient(apiKey, baseURL),
		model:    model,
		executor: executor,
	}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	req := goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(e.model),
		Input: []string{text},
	}

	resp, err := resilience.Call(ctx, e.executor, "openai.embed", func(callCtx context.Context) (goopenai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(callCtx, req)
	}, classifyOpenAIError)
	if err != nil {
		return nil, wrapOpenAIError("openai embed", err)
	}
	if len(resp.Data) == 0 {
		return nil, domain.WrapError(domain.ErrBackend, "openai embed", errors.New("empty embedding result"))
	}
	return resp.Data[0].Embedding, nil
}

func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// asStatusError lifts SDK status failures into the shared HTTP error type.
func asStatusError(operation string, err error) error {
	code := statusCode(err)
	if code == 0 {
		return err
	}
	return fmt.Errorf("%w: %w", &resilience.HTTPStatusError{
		Service:    "openai",
		Operation:  operation,
		StatusCode: code,
		Status:     fmt.Sprintf("%d", code),
	}, err)
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	return resilience.ClassifyHTTP(asStatusError("call", err))
}

func wrapOpenAIError(operation string, err error) error {
	return resilience.WrapHTTPError(operation, asStatusError(operation, err))
}

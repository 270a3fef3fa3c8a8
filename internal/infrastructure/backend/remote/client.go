package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/resilience"
)

const (
	answerPath      = "/v1/answer"
	answerOperation = "remote.answer"
)

// Client answers questions by delegating to an external RAG service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type answerRequest struct {
	Question      string     `json:"question"`
	ShowReasoning bool       `json:"show_reasoning"`
	Config        wireConfig `json:"config"`
}

type wireConfig struct {
	LLM             domain.ModelSelection `json:"llm"`
	Embeddings      domain.ModelSelection `json:"embeddings"`
	VectorStoreDirs []string              `json:"vector_store_dirs"`
	TopK            int                   `json:"top_k"`
	UseRerank       bool                  `json:"use_rerank"`
	MultiAgent      bool                  `json:"multi_agent"`
	AgenticMode     string                `json:"agentic_mode"`
}

type answerResponse struct {
	Answer         string                 `json:"answer"`
	Documents      []domain.LegalDocument `json:"documents"`
	ReasoningTrace []domain.TraceStep     `json:"reasoning_trace"`
}

func (c *Client) Answer(ctx context.Context, question string, cfg domain.RAGConfig, showReasoning bool) (*domain.BackendAnswer, error) {
	request := answerRequest{
		Question:      question,
		ShowReasoning: showReasoning,
		Config: wireConfig{
			LLM:             cfg.LLM,
			Embeddings:      cfg.Embeddings,
			VectorStoreDirs: append([]string(nil), cfg.VectorStoreDirs...),
			TopK:            cfg.TopK,
			UseRerank:       cfg.UseRerank,
			MultiAgent:      cfg.MultiAgent,
			AgenticMode:     cfg.AgenticMode,
		},
	}

	response, err := resilience.Call(ctx, c.executor, answerOperation, func(callCtx context.Context) (answerResponse, error) {
		var out answerResponse
		err := c.postJSON(callCtx, answerPath, request, &out)
		return out, err
	}, resilience.ClassifyHTTP)
	if err != nil {
		return nil, resilience.WrapHTTPError("remote answer", err)
	}

	answer := &domain.BackendAnswer{
		Text:      response.Answer,
		Documents: response.Documents,
	}
	if showReasoning {
		answer.Trace = response.ReasoningTrace
	}
	return answer, nil
}

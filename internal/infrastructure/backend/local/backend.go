package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/vectorstore"
)

const (
	standardRAG      = "standard_rag"
	rerankPoolFactor = 3
)

// Backend answers questions in-process from an embedder, per-jurisdiction
// collections and a text generator.
type Backend struct {
	embedder  ports.QueryEmbedder
	searcher  ports.CollectionSearcher
	generator ports.TextGenerator
}

func New(embedder ports.QueryEmbedder, searcher ports.CollectionSearcher, generator ports.TextGenerator) *Backend {
	return &Backend{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
	}
}

func (b *Backend) Answer(ctx context.Context, question string, cfg domain.RAGConfig, showReasoning bool) (*domain.BackendAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "local answer", errors.New("question is required"))
	}
	if mode := strings.TrimSpace(cfg.AgenticMode); mode != "" && mode != standardRAG {
		return nil, domain.WrapError(domain.ErrInvalidInput, "local answer", fmt.Errorf("unsupported agentic mode %q", mode))
	}

	vector, err := b.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	trace := &traceRecorder{enabled: showReasoning}
	var answer *domain.BackendAnswer
	if cfg.MultiAgent {
		answer, err = b.answerMultiAgent(ctx, question, vector, cfg, trace)
	} else {
		answer, err = b.answerSingleAgent(ctx, question, vector, cfg, trace)
	}
	if err != nil {
		return nil, err
	}
	answer.Trace = trace.steps
	return answer, nil
}

func (b *Backend) answerSingleAgent(ctx context.Context, question string, vector []float32, cfg domain.RAGConfig, trace *traceRecorder) (*domain.BackendAnswer, error) {
	merged := make([]domain.ScoredDocument, 0, cfg.TopK*len(cfg.VectorStoreDirs))
	for _, dir := range cfg.VectorStoreDirs {
		collection := vectorstore.CollectionName(dir)
		found, err := b.searcher.SearchCollection(ctx, collection, vector, candidateLimit(cfg))
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", collection, err)
		}
		trace.add("retriever", "retrieve", fmt.Sprintf("%s: %d documents", collection, len(found)))
		merged = append(merged, found...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if cfg.UseRerank {
		merged = rerankDocuments(question, merged, len(merged))
		trace.add("retriever", "rerank", fmt.Sprintf("%d candidates", len(merged)))
	}
	merged = keepTop(merged, cfg.TopK)

	docs := documentsOf(merged)
	text, err := b.generator.GenerateText(ctx, buildAnswerPrompt(question, docs))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	trace.add("generator", "answer", fmt.Sprintf("%d documents in context", len(docs)))

	return &domain.BackendAnswer{Text: text, Documents: docs}, nil
}

// candidateLimit widens the search when reranking reorders candidates.
func candidateLimit(cfg domain.RAGConfig) int {
	if cfg.UseRerank {
		return cfg.TopK * rerankPoolFactor
	}
	return cfg.TopK
}

func keepTop(docs []domain.ScoredDocument, topK int) []domain.ScoredDocument {
	if topK > 0 && len(docs) > topK {
		return docs[:topK]
	}
	return docs
}

func documentsOf(scored []domain.ScoredDocument) []domain.LegalDocument {
	out := make([]domain.LegalDocument, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Document)
	}
	return out
}

type traceRecorder struct {
	enabled bool
	steps   []domain.TraceStep
}

func (t *traceRecorder) add(agent, action, detail string) {
	if !t.enabled {
		return
	}
	t.steps = append(t.steps, domain.TraceStep{Agent: agent, Action: action, Detail: detail})
}

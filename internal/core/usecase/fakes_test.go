package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

type locatorFake struct {
	dirs []string
	err  error
}

func (f *locatorFake) Discover(context.Context, string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.dirs...), nil
}

type backendCall struct {
	question      string
	multiAgent    bool
	topK          int
	showReasoning bool
}

// backendFake answers from a per-question table; questions listed in
// failures return the mapped error.
type backendFake struct {
	mu       sync.Mutex
	calls    []backendCall
	answers  map[string]*domain.BackendAnswer
	failures map[string]error
	panics   map[string]bool
}

func (f *backendFake) Answer(_ context.Context, question string, cfg domain.RAGConfig, showReasoning bool) (*domain.BackendAnswer, error) {
	f.mu.Lock()
	f.calls = append(f.calls, backendCall{
		question:      question,
		multiAgent:    cfg.MultiAgent,
		topK:          cfg.TopK,
		showReasoning: showReasoning,
	})
	f.mu.Unlock()

	if f.panics[question] {
		panic("backend exploded")
	}
	if err, ok := f.failures[question]; ok {
		return nil, err
	}
	if answer, ok := f.answers[question]; ok {
		return answer, nil
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is empty"))
	}
	return &domain.BackendAnswer{Text: "answer to " + question}, nil
}

func defaultRAGConfig() domain.RAGConfig {
	return domain.RAGConfig{
		LLM:                   domain.ModelSelection{Provider: "openai", Model: "gpt-4o-mini"},
		Embeddings:            domain.ModelSelection{Provider: "huggingface", Model: "sentence-transformers/all-MiniLM-L6-v2"},
		DataFolders:           []string{"Contest_Data/Italy", "Contest_Data/Estonia"},
		VectorStoreBaseDir:    "vector_store",
		DefaultVectorStoreDir: "vector_store/default",
		TopK:                  3,
		UseRerank:             true,
		MultiAgent:            true,
		AgenticMode:           "standard_rag",
	}
}

func legalDoc(content, source, state, law string) domain.LegalDocument {
	meta := map[string]any{}
	if source != "" {
		meta[domain.MetadataSource] = source
	}
	if state != "" {
		meta[domain.MetadataState] = state
	}
	if law != "" {
		meta[domain.MetadataLaw] = law
	}
	return domain.LegalDocument{Content: content, Metadata: meta}
}

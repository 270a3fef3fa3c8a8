package httpadapter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/config"
	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

// queryServiceFake answers from fixed data; an empty question fails with
// InvalidInput the way the answering backend does.
type queryServiceFake struct {
	mu      sync.Mutex
	err     error
	systems []string
	block   chan struct{}
	panic   bool
}

func (f *queryServiceFake) record(system string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, system)
}

func (f *queryServiceFake) result(question, system string) (*domain.QueryResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("question is required"))
	}
	return &domain.QueryResult{
		Question:  question,
		Answer:    "The standard VAT rate in Italy is 22%.",
		Contexts:  []string{"Aliquota IVA ordinaria 22%"},
		SourceIDs: []string{"it-dpr-633"},
		Metadata: domain.QueryMetadata{
			System:           domain.ResolveSystemLabel(system),
			NumSources:       1,
			CountriesCovered: []string{"Italy"},
			LawTypesCovered:  []string{"tax"},
		},
	}, nil
}

func (f *queryServiceFake) Answer(ctx context.Context, question, system string) (*domain.QueryResult, error) {
	f.record(system)
	if f.panic {
		panic("backend exploded")
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result(question, system)
}

func (f *queryServiceFake) AnswerBatch(_ context.Context, questions []string, system string) (*domain.BatchResult, error) {
	f.record(system)
	if f.err != nil {
		return nil, f.err
	}
	out := &domain.BatchResult{Items: make([]domain.BatchItem, 0, len(questions))}
	for _, q := range questions {
		result, err := f.result(q, system)
		if err != nil {
			out.Items = append(out.Items, domain.BatchItem{Question: q, Failure: domain.NewFailure(err)})
			continue
		}
		out.Items = append(out.Items, domain.BatchItem{Question: q, Result: result})
	}
	return out, nil
}

func (f *queryServiceFake) SystemInfo(context.Context) (*domain.SystemInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info := domain.RAGConfig{
		LLM:             domain.ModelSelection{Provider: "ollama", Model: "qwen2.5:7b"},
		Embeddings:      domain.ModelSelection{Provider: "ollama", Model: "bge-m3"},
		VectorStoreDirs: []string{"/stores/italy"},
		TopK:            5,
		UseRerank:       true,
		MultiAgent:      true,
		AgenticMode:     "standard_rag",
	}.Describe()
	return &info, nil
}

type batchJobsFake struct {
	jobs map[string]*domain.BatchJob
}

func (f *batchJobsFake) Submit(_ context.Context, questions []string, system string) (*domain.BatchJob, error) {
	if len(questions) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch job", errors.New("questions are required"))
	}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := &domain.BatchJob{
		ID:        "job-1",
		Questions: questions,
		System:    domain.ResolveSystemLabel(system),
		Status:    domain.BatchJobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *batchJobsFake) GetByID(_ context.Context, id string) (*domain.BatchJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrBatchJobNotFound, "get batch job", errors.New("id="+id))
	}
	return job, nil
}

func newTestRouter(t *testing.T, cfg config.Config, deps Dependencies) *Router {
	t.Helper()
	if deps.Queries == nil {
		deps.Queries = &queryServiceFake{}
	}
	router, err := NewRouter(cfg, deps)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router
}

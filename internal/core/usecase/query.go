package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
)

const (
	endpointQuery      = "query"
	endpointBatchQuery = "batch_query"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

type QueryUseCase struct {
	configs  ports.ConfigResolver
	backend  ports.AnsweringBackend
	observer ports.QueryObserver
}

func NewQueryUseCase(
	configs ports.ConfigResolver,
	backend ports.AnsweringBackend,
	observer ports.QueryObserver,
) *QueryUseCase {
	return &QueryUseCase{
		configs:  configs,
		backend:  backend,
		observer: observer,
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, question, system string) (*domain.QueryResult, error) {
	label := domain.ResolveSystemLabel(system)
	cfg, err := uc.requestConfig(ctx, label)
	if err != nil {
		return nil, err
	}
	return uc.answerOne(ctx, endpointQuery, question, label, cfg)
}

// AnswerBatch answers questions in input order. A failing question becomes a
// failure item; only configuration resolution aborts the whole batch.
func (uc *QueryUseCase) AnswerBatch(ctx context.Context, questions []string, system string) (*domain.BatchResult, error) {
	label := domain.ResolveSystemLabel(system)
	cfg, err := uc.requestConfig(ctx, label)
	if err != nil {
		return nil, err
	}

	items := make([]domain.BatchItem, 0, len(questions))
	for _, question := range questions {
		items = append(items, uc.answerIsolated(ctx, question, label, cfg))
	}
	return &domain.BatchResult{Items: items}, nil
}

func (uc *QueryUseCase) SystemInfo(ctx context.Context) (*domain.SystemInfo, error) {
	cfg, err := uc.configs.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	info := cfg.Describe()
	return &info, nil
}

func (uc *QueryUseCase) requestConfig(ctx context.Context, label string) (domain.RAGConfig, error) {
	cfg, err := uc.configs.Resolve(ctx)
	if err != nil {
		return domain.RAGConfig{}, err
	}
	return cfg.WithSystemMode(label), nil
}

func (uc *QueryUseCase) answerIsolated(
	ctx context.Context,
	question, label string,
	cfg domain.RAGConfig,
) (item domain.BatchItem) {
	item.Question = question
	defer func() {
		if recovered := recover(); recovered != nil {
			err := domain.WrapError(domain.ErrPanic, "answer question", fmt.Errorf("%v", recovered))
			slog.Error("batch_item_panic", "question", question, "error", err)
			item.Result = nil
			item.Failure = domain.NewFailure(err)
		}
	}()

	if err := ctx.Err(); err != nil {
		item.Failure = domain.NewFailure(err)
		return item
	}

	result, err := uc.answerOne(ctx, endpointBatchQuery, question, label, cfg)
	if err != nil {
		slog.Warn("batch_item_failed", "question", question, "error", err)
		item.Failure = domain.NewFailure(err)
		return item
	}
	item.Result = result
	return item
}

func (uc *QueryUseCase) answerOne(
	ctx context.Context,
	endpoint, question, label string,
	cfg domain.RAGConfig,
) (*domain.QueryResult, error) {
	start := time.Now()
	answer, err := uc.backend.Answer(ctx, question, cfg, false)
	if err != nil {
		uc.observe(endpoint, label, 0, outcomeError, time.Since(start))
		return nil, err
	}
	if answer == nil {
		answer = &domain.BackendAnswer{}
	}

	result := buildQueryResult(question, label, answer)
	uc.observe(endpoint, label, result.Metadata.NumSources, outcomeSuccess, time.Since(start))
	return result, nil
}

func (uc *QueryUseCase) observe(endpoint, label string, sources int, outcome string, duration time.Duration) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveQuery(endpoint, label, sources, outcome, duration)
}

func buildQueryResult(question, label string, answer *domain.BackendAnswer) *domain.QueryResult {
	docs := answer.Documents
	contexts := make([]string, 0, len(docs))
	sourceIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		contexts = append(contexts, doc.Content)
		sourceIDs = append(sourceIDs, doc.SourceID())
	}

	return &domain.QueryResult{
		Question:  question,
		Answer:    answer.Text,
		Contexts:  contexts,
		SourceIDs: sourceIDs,
		Metadata: domain.QueryMetadata{
			System:           label,
			NumSources:       len(docs),
			CountriesCovered: distinctTags(docs, domain.LegalDocument.Jurisdiction),
			LawTypesCovered:  distinctTags(docs, domain.LegalDocument.LawType),
		},
	}
}

// distinctTags deduplicates by value. Callers must not rely on the order.
func distinctTags(docs []domain.LegalDocument, tag func(domain.LegalDocument) string) []string {
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		value := tag(doc)
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

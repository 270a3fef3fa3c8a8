package local

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/infrastructure/vectorstore"
)

type agentDraft struct {
	jurisdiction string
	documents    []domain.LegalDocument
	draft        string
	steps        []domain.TraceStep
}

// answerMultiAgent runs one jurisdiction agent per vector store and merges
// their drafts in store order.
func (b *Backend) answerMultiAgent(ctx context.Context, question string, vector []float32, cfg domain.RAGConfig, trace *traceRecorder) (*domain.BackendAnswer, error) {
	drafts := make([]agentDraft, len(cfg.VectorStoreDirs))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, dir := range cfg.VectorStoreDirs {
		group.Go(func() error {
			draft, err := b.runAgent(groupCtx, question, vector, vectorstore.CollectionName(dir), cfg, trace.enabled)
			if err != nil {
				return err
			}
			drafts[i] = draft
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var docs []domain.LegalDocument
	for _, d := range drafts {
		docs = append(docs, d.documents...)
		trace.steps = append(trace.steps, d.steps...)
	}

	if len(drafts) == 1 {
		return &domain.BackendAnswer{Text: drafts[0].draft, Documents: docs}, nil
	}

	text, err := b.generator.GenerateText(ctx, buildSynthesisPrompt(question, drafts))
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	trace.add("synthesizer", "synthesize", fmt.Sprintf("%d jurisdiction drafts", len(drafts)))

	return &domain.BackendAnswer{Text: text, Documents: docs}, nil
}

func (b *Backend) runAgent(ctx context.Context, question string, vector []float32, collection string, cfg domain.RAGConfig, withTrace bool) (agentDraft, error) {
	local := &traceRecorder{enabled: withTrace}

	found, err := b.searcher.SearchCollection(ctx, collection, vector, candidateLimit(cfg))
	if err != nil {
		return agentDraft{}, fmt.Errorf("agent %s search: %w", collection, err)
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})
	local.add(collection, "retrieve", fmt.Sprintf("%d documents", len(found)))

	if cfg.UseRerank {
		found = rerankDocuments(question, found, len(found))
		local.add(collection, "rerank", fmt.Sprintf("%d candidates", len(found)))
	}
	docs := documentsOf(keepTop(found, cfg.TopK))

	draft, err := b.generator.GenerateText(ctx, buildJurisdictionPrompt(question, collection, docs))
	if err != nil {
		return agentDraft{}, fmt.Errorf("agent %s draft: %w", collection, err)
	}
	local.add(collection, "draft", fmt.Sprintf("%d documents in context", len(docs)))

	return agentDraft{
		jurisdiction: collection,
		documents:    docs,
		draft:        draft,
		steps:        local.steps,
	}, nil
}

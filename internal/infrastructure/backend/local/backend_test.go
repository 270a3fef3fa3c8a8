package local

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

type embedderFake struct {
	err error
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type searcherFake struct {
	mu          sync.Mutex
	collections map[string][]domain.ScoredDocument
	errs        map[string]error
	searched    []string
}

func (f *searcherFake) SearchCollection(_ context.Context, collection string, _ []float32, limit int) ([]domain.ScoredDocument, error) {
	f.mu.Lock()
	f.searched = append(f.searched, collection)
	f.mu.Unlock()
	if err := f.errs[collection]; err != nil {
		return nil, err
	}
	docs := f.collections[collection]
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return append([]domain.ScoredDocument(nil), docs...), nil
}

type generatorFake struct {
	mu      sync.Mutex
	prompts []string
}

func (f *generatorFake) GenerateText(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	switch {
	case strings.Contains(prompt, "Jurisdiction drafts:"):
		return "synthesized answer", nil
	case strings.Contains(prompt, "specialised in"):
		return "draft", nil
	default:
		return "single answer", nil
	}
}

func scored(source, state, content string, score float64) domain.ScoredDocument {
	return domain.ScoredDocument{
		Document: domain.LegalDocument{
			Content:  content,
			Metadata: map[string]any{"source": source, "state": state, "law": "landlord-tenant"},
		},
		Score: score,
	}
}

func newFixture() (*Backend, *searcherFake, *generatorFake) {
	searcher := &searcherFake{
		collections: map[string][]domain.ScoredDocument{
			"florida": {
				scored("fl-1", "Florida", "three day notice", 0.9),
				scored("fl-2", "Florida", "security deposit", 0.4),
			},
			"new_york": {
				scored("ny-1", "New York", "fourteen day notice", 0.7),
			},
		},
	}
	generator := &generatorFake{}
	return New(&embedderFake{}, searcher, generator), searcher, generator
}

func baseConfig(multiAgent bool) domain.RAGConfig {
	return domain.RAGConfig{
		VectorStoreDirs: []string{"/stores/florida", "/stores/new_york"},
		TopK:            2,
		MultiAgent:      multiAgent,
		AgenticMode:     standardRAG,
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	backend, _, _ := newFixture()
	_, err := backend.Answer(context.Background(), "   ", baseConfig(false), false)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAnswerRejectsUnsupportedAgenticMode(t *testing.T) {
	backend, _, _ := newFixture()
	cfg := baseConfig(false)
	cfg.AgenticMode = "react"
	_, err := backend.Answer(context.Background(), "notice?", cfg, false)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSingleAgentMergesByScoreAndKeepsTopK(t *testing.T) {
	backend, searcher, generator := newFixture()
	answer, err := backend.Answer(context.Background(), "notice period?", baseConfig(false), false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "single answer" {
		t.Fatalf("unexpected text %q", answer.Text)
	}
	if len(answer.Documents) != 2 || answer.Documents[0].SourceID() != "fl-1" || answer.Documents[1].SourceID() != "ny-1" {
		t.Fatalf("unexpected documents %+v", answer.Documents)
	}
	if len(searcher.searched) != 2 {
		t.Fatalf("expected both collections searched, got %v", searcher.searched)
	}
	if len(generator.prompts) != 1 || !strings.Contains(generator.prompts[0], "state=Florida") {
		t.Fatalf("unexpected prompts %v", generator.prompts)
	}
	if answer.Trace != nil {
		t.Fatalf("trace must be empty without showReasoning")
	}
}

func TestSingleAgentRerankPrefersLexicalMatch(t *testing.T) {
	backend, searcher, _ := newFixture()
	searcher.collections["florida"] = []domain.ScoredDocument{
		scored("fl-1", "Florida", "three day notice", 0.50),
		scored("fl-2", "Florida", "security deposit return rules", 0.49),
		scored("fl-3", "Florida", "pets", 0.10),
	}
	cfg := baseConfig(false)
	cfg.UseRerank = true
	cfg.TopK = 1
	cfg.VectorStoreDirs = []string{"/stores/florida"}

	answer, err := backend.Answer(context.Background(), "security deposit return", cfg, true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Documents) != 1 || answer.Documents[0].SourceID() != "fl-2" {
		t.Fatalf("expected reranked deposit document, got %+v", answer.Documents)
	}
	if len(answer.Trace) == 0 {
		t.Fatalf("expected trace with showReasoning")
	}
}

func TestMultiAgentSynthesizesDraftsInStoreOrder(t *testing.T) {
	backend, _, generator := newFixture()
	answer, err := backend.Answer(context.Background(), "notice period?", baseConfig(true), true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "synthesized answer" {
		t.Fatalf("unexpected text %q", answer.Text)
	}
	if len(answer.Documents) != 3 || answer.Documents[0].SourceID() != "fl-1" || answer.Documents[2].SourceID() != "ny-1" {
		t.Fatalf("expected documents in store order, got %+v", answer.Documents)
	}
	if len(generator.prompts) != 3 {
		t.Fatalf("expected two drafts and one synthesis, got %d prompts", len(generator.prompts))
	}
	last := answer.Trace[len(answer.Trace)-1]
	if last.Agent != "synthesizer" {
		t.Fatalf("expected synthesis as last trace step, got %+v", last)
	}
}

func TestMultiAgentPropagatesAgentFailure(t *testing.T) {
	backend, searcher, _ := newFixture()
	searcher.errs = map[string]error{
		"new_york": domain.WrapError(domain.ErrTemporary, "qdrant search", errors.New("unavailable")),
	}
	_, err := backend.Answer(context.Background(), "notice period?", baseConfig(true), false)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestEmbedFailureStopsPipeline(t *testing.T) {
	searcher := &searcherFake{}
	backend := New(&embedderFake{err: errors.New("embed down")}, searcher, &generatorFake{})
	if _, err := backend.Answer(context.Background(), "q", baseConfig(false), false); err == nil {
		t.Fatalf("expected embed error")
	}
	if len(searcher.searched) != 0 {
		t.Fatalf("search must not run after embed failure")
	}
}

func TestRerankKeepsTailOrder(t *testing.T) {
	candidates := []domain.ScoredDocument{
		scored("a", "Texas", "unrelated", 0.90),
		scored("b", "Texas", "eviction notice", 0.88),
		scored("c", "Texas", "other", 0.10),
		scored("d", "Texas", "tail", 0.05),
	}
	out := rerankDocuments("eviction notice", candidates, 3)
	if out[0].Document.SourceID() != "b" || out[3].Document.SourceID() != "d" {
		t.Fatalf("unexpected order %v %v %v", out[0].Document.SourceID(), out[1].Document.SourceID(), out[3].Document.SourceID())
	}
}

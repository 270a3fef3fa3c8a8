package ports

import (
	"context"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

// AnsweringBackend is the retrieval-augmented pipeline. Implementations must
// read cfg on every call and keep no per-call state between calls.
type AnsweringBackend interface {
	Answer(ctx context.Context, question string, cfg domain.RAGConfig, showReasoning bool) (*domain.BackendAnswer, error)
}

// ConfigResolver yields a fully resolved configuration snapshot.
type ConfigResolver interface {
	Resolve(ctx context.Context) (domain.RAGConfig, error)
}

// VectorStoreLocator discovers vector index directories under a base dir.
type VectorStoreLocator interface {
	Discover(ctx context.Context, baseDir string) ([]string, error)
}

// BatchJobRepository persists batch job state.
type BatchJobRepository interface {
	Create(ctx context.Context, job *domain.BatchJob) error
	GetByID(ctx context.Context, id string) (*domain.BatchJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.BatchJobStatus, errMessage string) error
	SaveResults(ctx context.Context, id string, results []domain.BatchItem) error
}

// MessageQueue publishes/consumes batch job events.
type MessageQueue interface {
	PublishBatchJobQueued(ctx context.Context, jobID string) error
	SubscribeBatchJobQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// QueryObserver receives one observation per answered question.
type QueryObserver interface {
	ObserveQuery(endpoint, system string, sourceCount int, outcome string, duration time.Duration)
}

// QueryEmbedder builds the vector for a query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CollectionSearcher runs similarity search against a named collection.
type CollectionSearcher interface {
	SearchCollection(ctx context.Context, collection string, queryVector []float32, limit int) ([]domain.ScoredDocument, error)
}

// TextGenerator produces model output for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

package ports

import (
	"context"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

// QueryService is the inbound contract for legal question answering.
type QueryService interface {
	Answer(ctx context.Context, question, system string) (*domain.QueryResult, error)
	AnswerBatch(ctx context.Context, questions []string, system string) (*domain.BatchResult, error)
	SystemInfo(ctx context.Context) (*domain.SystemInfo, error)
}

// BatchJobSubmitter accepts asynchronous batch requests.
type BatchJobSubmitter interface {
	Submit(ctx context.Context, questions []string, system string) (*domain.BatchJob, error)
}

// BatchJobReader is the read model for asynchronous batch jobs.
type BatchJobReader interface {
	GetByID(ctx context.Context, id string) (*domain.BatchJob, error)
}

// BatchJobProcessor runs a queued batch job to completion.
type BatchJobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}

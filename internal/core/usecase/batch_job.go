package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
)

type SubmitBatchJobUseCase struct {
	repo         ports.BatchJobRepository
	queue        ports.MessageQueue
	maxQuestions int
}

func NewSubmitBatchJobUseCase(repo ports.BatchJobRepository, queue ports.MessageQueue, maxQuestions int) *SubmitBatchJobUseCase {
	return &SubmitBatchJobUseCase{
		repo:         repo,
		queue:        queue,
		maxQuestions: maxQuestions,
	}
}

func (uc *SubmitBatchJobUseCase) Submit(ctx context.Context, questions []string, system string) (*domain.BatchJob, error) {
	if len(questions) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch job", errors.New("questions are required"))
	}
	if uc.maxQuestions > 0 && len(questions) > uc.maxQuestions {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"submit batch job",
			fmt.Errorf("too many questions: %d > %d", len(questions), uc.maxQuestions),
		)
	}

	now := time.Now().UTC()
	job := &domain.BatchJob{
		ID:        uuid.NewString(),
		Questions: append([]string(nil), questions...),
		System:    domain.ResolveSystemLabel(system),
		Status:    domain.BatchJobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create batch job: %w", err)
	}
	if err := uc.queue.PublishBatchJobQueued(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish batch job event: %w", err)
	}
	return job, nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
	"github.com/kirillkom/legal-rag-api/internal/core/ports"
)

// finalizeTimeout bounds the writes that record a job's outcome.
const finalizeTimeout = 10 * time.Second

type ProcessBatchJobUseCase struct {
	repo    ports.BatchJobRepository
	queries ports.QueryService
}

func NewProcessBatchJobUseCase(repo ports.BatchJobRepository, queries ports.QueryService) *ProcessBatchJobUseCase {
	return &ProcessBatchJobUseCase{
		repo:    repo,
		queries: queries,
	}
}

func (uc *ProcessBatchJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	if err := uc.repo.UpdateStatus(ctx, jobID, domain.BatchJobProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return uc.fail(ctx, jobID, fmt.Errorf("fetch batch job by id: %w", err))
	}

	result, err := uc.queries.AnswerBatch(ctx, job.Questions, job.System)
	if err != nil {
		return uc.fail(ctx, jobID, fmt.Errorf("answer batch: %w", err))
	}

	// Results and the terminal status are written even after the job
	// deadline has passed.
	finalCtx, cancel := finalizeContext(ctx)
	defer cancel()

	if err := uc.repo.SaveResults(finalCtx, jobID, result.Items); err != nil {
		return uc.fail(ctx, jobID, fmt.Errorf("save batch results: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return uc.fail(ctx, jobID, fmt.Errorf("batch job interrupted: %w", err))
	}

	if err := uc.repo.UpdateStatus(finalCtx, jobID, domain.BatchJobCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

func (uc *ProcessBatchJobUseCase) fail(ctx context.Context, jobID string, processErr error) error {
	finalCtx, cancel := finalizeContext(ctx)
	defer cancel()

	if failErr := uc.repo.UpdateStatus(finalCtx, jobID, domain.BatchJobFailed, processErr.Error()); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, failErr)
	}
	return processErr
}

func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

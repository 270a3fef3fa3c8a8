package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

type BatchJobRepository struct {
	db *sql.DB
}

func NewBatchJobRepository(db *sql.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

func (r *BatchJobRepository) Create(ctx context.Context, job *domain.BatchJob) error {
	questionsJSON, err := json.Marshal(job.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO batch_jobs (id, system_label, questions, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, job.ID, job.System, questionsJSON, string(job.Status), job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert batch job: %w", err)
	}
	return nil
}

func (r *BatchJobRepository) GetByID(ctx context.Context, id string) (*domain.BatchJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, system_label, questions, results, status, error_message, created_at, updated_at
FROM batch_jobs
WHERE id = $1
`, id)

	var job domain.BatchJob
	var questionsRaw, resultsRaw []byte
	var status string

	err := row.Scan(
		&job.ID, &job.System, &questionsRaw, &resultsRaw, &status, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchJobNotFound, "get batch job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan batch job: %w", err)
	}

	if err := json.Unmarshal(questionsRaw, &job.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &job.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	job.Status = domain.BatchJobStatus(status)
	return &job, nil
}

func (r *BatchJobRepository) UpdateStatus(ctx context.Context, id string, status domain.BatchJobStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE batch_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch job status: %w", err)
	}
	return requireAffected(result, "update batch job status", id)
}

func (r *BatchJobRepository) SaveResults(ctx context.Context, id string, results []domain.BatchItem) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE batch_jobs
SET results = $2, updated_at = $3
WHERE id = $1
`, id, resultsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save batch job results: %w", err)
	}
	return requireAffected(result, "save batch job results", id)
}

func requireAffected(result sql.Result, op, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrBatchJobNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}

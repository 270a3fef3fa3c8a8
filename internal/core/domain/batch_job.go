package domain

import "time"

type BatchJobStatus string

const (
	BatchJobQueued     BatchJobStatus = "queued"
	BatchJobProcessing BatchJobStatus = "processing"
	BatchJobCompleted  BatchJobStatus = "completed"
	BatchJobFailed     BatchJobStatus = "failed"
)

type BatchJob struct {
	ID        string         `json:"id"`
	Questions []string       `json:"questions"`
	System    string         `json:"system"`
	Status    BatchJobStatus `json:"status"`
	Results   []BatchItem    `json:"results,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (j BatchJob) Summary() BatchSummary {
	return SummarizeItems(j.Results)
}

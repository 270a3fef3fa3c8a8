package xlsx

import (
	"io"
	"strings"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

const (
	summarySheet = "Summary"
	resultsSheet = "Results"
)

// WriteBatchJobReport renders a batch job as a Summary and a Results sheet.
func WriteBatchJobReport(out io.Writer, job domain.BatchJob) error {
	wb, err := NewWorkbook()
	if err != nil {
		return err
	}

	summary := job.Summary()
	summaryRows := [][]any{
		{"job_id", job.ID},
		{"system", job.System},
		{"status", string(job.Status)},
		{"total", summary.Total},
		{"succeeded", summary.Succeeded},
		{"failed", summary.Failed},
		{"created_at", job.CreatedAt.UTC().Format(time.RFC3339)},
		{"updated_at", job.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	if job.Error != "" {
		summaryRows = append(summaryRows, []any{"error", job.Error})
	}
	if err := wb.AddSheet(summarySheet, []string{"field", "value"}, summaryRows, 16, 48); err != nil {
		return err
	}

	header := []string{"#", "question", "answer", "num_sources", "countries_covered", "law_types_covered", "source_ids", "error_type", "error"}
	rows := make([][]any, 0, len(job.Results))
	for i, item := range job.Results {
		rows = append(rows, batchItemRow(i+1, item))
	}
	if err := wb.AddSheet(resultsSheet, header, rows, 5, 50, 80, 12, 24, 24, 30, 16, 40); err != nil {
		return err
	}
	return wb.WriteTo(out)
}

func batchItemRow(n int, item domain.BatchItem) []any {
	if item.Failure != nil {
		return []any{n, item.Question, "", 0, "", "", "", item.Failure.Kind, item.Failure.Message}
	}
	if item.Result == nil {
		return []any{n, item.Question}
	}
	r := item.Result
	return []any{
		n,
		item.Question,
		r.Answer,
		r.Metadata.NumSources,
		strings.Join(r.Metadata.CountriesCovered, ", "),
		strings.Join(r.Metadata.LawTypesCovered, ", "),
		strings.Join(r.SourceIDs, ", "),
		"",
		"",
	}
}

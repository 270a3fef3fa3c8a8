package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/legal-rag-api/internal/infrastructure/report/xlsx"
)

func WriteJSON(out io.Writer, report *Report) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode evaluation report: %w", err)
	}
	return nil
}

// WriteXLSX renders a summary sheet followed by one sheet per system.
func WriteXLSX(out io.Writer, report *Report) error {
	book, err := xlsx.NewWorkbook()
	if err != nil {
		return err
	}

	summaryRows := make([][]any, 0, len(Systems))
	for _, s := range report.Summaries() {
		summaryRows = append(summaryRows, []any{
			s.System, s.Successful, s.Total, round2(s.SuccessRate()), round2(s.AverageResponse),
		})
	}
	if err := book.AddSheet("Summary",
		[]string{"System", "Successful", "Total", "Success Rate %", "Avg Response (s)"},
		summaryRows, 18, 12, 10, 16, 18,
	); err != nil {
		return err
	}

	for _, system := range Systems {
		rows := make([][]any, 0, len(report.Results[system]))
		for _, o := range report.Results[system] {
			rows = append(rows, []any{
				string(o.QuestionID),
				o.Status,
				round2(o.ResponseTime),
				o.NumSources,
				strings.Join(o.Countries, ", "),
				o.Answer,
				o.Error,
			})
		}
		if err := book.AddSheet(system,
			[]string{"Question ID", "Status", "Response (s)", "Sources", "Countries", "Answer", "Error"},
			rows, 12, 10, 12, 9, 20, 80, 30,
		); err != nil {
			return err
		}
	}
	return book.WriteTo(out)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	previewLen = 150
)

// Systems are evaluated in this order.
var Systems = []string{string(domain.ModeSingleAgent), string(domain.ModeMultiAgent)}

// Outcome is the record kept for one question against one system.
type Outcome struct {
	QuestionID   QuestionID `json:"question_id"`
	Status       string     `json:"status"`
	Answer       string     `json:"answer,omitempty"`
	NumSources   int        `json:"num_sources,omitempty"`
	Countries    []string   `json:"countries_covered,omitempty"`
	ResponseTime float64    `json:"response_time"`
	Contexts     []string   `json:"contexts,omitempty"`
	Error        string     `json:"error,omitempty"`
	Detail       string     `json:"detail,omitempty"`
}

type Report struct {
	TestSet   string               `json:"test_set"`
	BaseURL   string               `json:"base_url"`
	Timestamp float64              `json:"timestamp"`
	Results   map[string][]Outcome `json:"results"`
}

type SystemSummary struct {
	System          string
	Successful      int
	Total           int
	AverageResponse float64
}

func (s SystemSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total) * 100
}

func (r *Report) Summaries() []SystemSummary {
	out := make([]SystemSummary, 0, len(Systems))
	for _, system := range Systems {
		outcomes := r.Results[system]
		summary := SystemSummary{System: system, Total: len(outcomes)}
		var elapsed float64
		for _, o := range outcomes {
			if o.Status == StatusSuccess {
				summary.Successful++
			}
			elapsed += o.ResponseTime
		}
		if summary.Total > 0 {
			summary.AverageResponse = elapsed / float64(summary.Total)
		}
		out = append(out, summary)
	}
	return out
}

var ErrUnhealthy = errors.New("api health check failed")

// Runner drives a test set through both systems and narrates progress.
type Runner struct {
	client *Client
	out    io.Writer
	limit  int
	now    func() time.Time
}

func NewRunner(client *Client, out io.Writer, limit int) *Runner {
	return &Runner{client: client, out: out, limit: limit, now: time.Now}
}

func (r *Runner) Run(ctx context.Context, set *TestSet, testSetPath string) (*Report, error) {
	health, err := r.client.Health(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "health check failed: %v\n", err)
		return nil, fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	fmt.Fprintf(r.out, "health: %s (%s %s)\n", health.Status, health.Service, health.Version)

	if info, err := r.client.SystemInfo(ctx); err != nil {
		fmt.Fprintf(r.out, "system info unavailable: %v\n", err)
	} else {
		fmt.Fprintf(r.out, "llm: %s / %s\n", info.LLM.Provider, info.LLM.Model)
		fmt.Fprintf(r.out, "embeddings: %s / %s\n", info.Embeddings.Provider, info.Embeddings.Model)
		fmt.Fprintf(r.out, "vector stores: %d\n", len(info.VectorStores))
		fmt.Fprintf(r.out, "multi-agent default: %t\n", info.System.MultiAgent)
	}

	questions := set.Questions
	if r.limit > 0 && len(questions) > r.limit {
		questions = questions[:r.limit]
	}

	report := &Report{
		TestSet:   testSetPath,
		BaseURL:   r.client.BaseURL(),
		Timestamp: float64(r.now().UnixNano()) / float64(time.Second),
		Results:   make(map[string][]Outcome, len(Systems)),
	}
	for _, system := range Systems {
		fmt.Fprintf(r.out, "\n== %s ==\n", system)
		outcomes := make([]Outcome, 0, len(questions))
		for i, q := range questions {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			fmt.Fprintf(r.out, "[%d/%d] %s\n", i+1, len(questions), truncate(q.Question, 80))
			outcome := r.ask(ctx, q, system)
			if outcome.Status == StatusSuccess {
				fmt.Fprintf(r.out, "  ok %.2fs sources=%d countries=%v\n", outcome.ResponseTime, outcome.NumSources, outcome.Countries)
				fmt.Fprintf(r.out, "  %s\n", truncate(outcome.Answer, previewLen))
			} else {
				fmt.Fprintf(r.out, "  error: %s\n", outcome.Error)
			}
			outcomes = append(outcomes, outcome)
		}
		report.Results[system] = outcomes
	}
	return report, nil
}

func (r *Runner) ask(ctx context.Context, q TestQuestion, system string) Outcome {
	started := r.now()
	result, err := r.client.Query(ctx, q.Question, system)
	elapsed := r.now().Sub(started).Seconds()

	if err != nil {
		outcome := Outcome{QuestionID: q.ID, Status: StatusError, Error: err.Error(), ResponseTime: elapsed}
		var statusErr *HTTPError
		if errors.As(err, &statusErr) {
			outcome.Detail = statusErr.Detail
		}
		slog.Debug("evaluation_query_failed", "question_id", string(q.ID), "system", system, "error", err)
		return outcome
	}
	return Outcome{
		QuestionID:   q.ID,
		Status:       StatusSuccess,
		Answer:       result.Answer,
		NumSources:   result.Metadata.NumSources,
		Countries:    result.Metadata.CountriesCovered,
		ResponseTime: elapsed,
		Contexts:     result.Contexts,
	}
}

func (r *Runner) PrintSummary(report *Report) {
	fmt.Fprintln(r.out, "\n== summary ==")
	for _, s := range report.Summaries() {
		fmt.Fprintf(r.out, "%s: success %d/%d (%.1f%%), average response %.2fs\n",
			s.System, s.Successful, s.Total, s.SuccessRate(), s.AverageResponse)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

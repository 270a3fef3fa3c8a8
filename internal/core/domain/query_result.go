package domain

import (
	"encoding/json"
	"fmt"
)

type QueryMetadata struct {
	System           string   `json:"system"`
	NumSources       int      `json:"num_sources"`
	CountriesCovered []string `json:"countries_covered"`
	LawTypesCovered  []string `json:"law_types_covered"`
}

type QueryResult struct {
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Contexts  []string      `json:"contexts"`
	SourceIDs []string      `json:"source_ids"`
	Metadata  QueryMetadata `json:"metadata"`
}

// BatchItem holds the outcome for one question of a batch: either Result or
// Failure is set, never both.
type BatchItem struct {
	Question string
	Result   *QueryResult
	Failure  *Failure
}

func (i BatchItem) Succeeded() bool {
	return i.Failure == nil && i.Result != nil
}

type batchItemFailureJSON struct {
	Question string `json:"question"`
	Error    string `json:"error"`
	Type     string `json:"type"`
}

func (i BatchItem) MarshalJSON() ([]byte, error) {
	if i.Failure != nil {
		return json.Marshal(batchItemFailureJSON{
			Question: i.Question,
			Error:    i.Failure.String(),
			Type:     i.Failure.Kind,
		})
	}
	if i.Result == nil {
		return nil, fmt.Errorf("batch item %q has neither result nor failure", i.Question)
	}
	return json.Marshal(i.Result)
}

func (i *BatchItem) UnmarshalJSON(data []byte) error {
	var probe struct {
		Question string  `json:"question"`
		Error    *string `json:"error"`
		Type     string  `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Error != nil {
		message := *probe.Error
		if prefix := probe.Type + ": "; probe.Type != "" && len(message) >= len(prefix) && message[:len(prefix)] == prefix {
			message = message[len(prefix):]
		}
		*i = BatchItem{
			Question: probe.Question,
			Failure:  &Failure{Kind: probe.Type, Message: message},
		}
		return nil
	}

	var result QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	*i = BatchItem{Question: result.Question, Result: &result}
	return nil
}

type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type BatchResult struct {
	Items []BatchItem `json:"results"`
}

func (r BatchResult) Summary() BatchSummary {
	return SummarizeItems(r.Items)
}

func SummarizeItems(items []BatchItem) BatchSummary {
	summary := BatchSummary{Total: len(items)}
	for _, item := range items {
		if item.Succeeded() {
			summary.Succeeded++
			continue
		}
		summary.Failed++
	}
	return summary
}

package domain

import "fmt"

const (
	MetadataSource = "source"
	MetadataState  = "state"
	MetadataLaw    = "law"

	UnknownTag = "unknown"
)

// LegalDocument is one retrieved passage with its provenance metadata.
type LegalDocument struct {
	Content  string         `json:"page_content"`
	Metadata map[string]any `json:"metadata"`
}

// MetadataValue returns the metadata entry for key, or UnknownTag when the
// document does not carry it.
func (d LegalDocument) MetadataValue(key string) string {
	raw, ok := d.Metadata[key]
	if !ok || raw == nil {
		return UnknownTag
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprint(raw)
}

func (d LegalDocument) SourceID() string     { return d.MetadataValue(MetadataSource) }
func (d LegalDocument) Jurisdiction() string { return d.MetadataValue(MetadataState) }
func (d LegalDocument) LawType() string      { return d.MetadataValue(MetadataLaw) }

type ScoredDocument struct {
	Document LegalDocument `json:"document"`
	Score    float64       `json:"score"`
}

type TraceStep struct {
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// BackendAnswer is what an answering backend returns for one question.
type BackendAnswer struct {
	Text      string          `json:"answer"`
	Documents []LegalDocument `json:"documents"`
	Trace     []TraceStep     `json:"reasoning_trace,omitempty"`
}

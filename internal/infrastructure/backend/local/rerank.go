package local

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

// rerankDocuments blends vector similarity with lexical overlap between the
// question and each candidate. Candidates past topN keep their order.
func rerankDocuments(question string, candidates []domain.ScoredDocument, topN int) []domain.ScoredDocument {
	if len(candidates) == 0 {
		return candidates
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	head := make([]domain.ScoredDocument, topN)
	copy(head, candidates[:topN])
	queryTokens := toTokenSet(question)

	minScore, maxScore := head[0].Score, head[0].Score
	for _, c := range head[1:] {
		minScore = min(minScore, c.Score)
		maxScore = max(maxScore, c.Score)
	}

	rangeScore := maxScore - minScore
	normalize := func(v float64) float64 {
		if rangeScore <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / rangeScore
	}

	for i := range head {
		doc := head[i].Document
		overlap := tokenOverlap(queryTokens, toTokenSet(doc.Content))
		tagBoost := tagTokenHit(queryTokens, doc.Jurisdiction(), doc.LawType())
		head[i].Score = 0.60*normalize(head[i].Score) + 0.30*overlap + 0.10*tagBoost
	}

	sort.SliceStable(head, func(i, j int) bool {
		if head[i].Score != head[j].Score {
			return head[i].Score > head[j].Score
		}
		return head[i].Document.SourceID() < head[j].Document.SourceID()
	})

	if topN == len(candidates) {
		return head
	}
	out := make([]domain.ScoredDocument, 0, len(candidates))
	out = append(out, head...)
	return append(out, candidates[topN:]...)
}

func tokenOverlap(query, text map[string]struct{}) float64 {
	if len(query) == 0 || len(text) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := text[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

// tagTokenHit is 1 when the question names the document's state or law type.
func tagTokenHit(query map[string]struct{}, tags ...string) float64 {
	for _, tag := range tags {
		if tag == domain.UnknownTag {
			continue
		}
		for token := range toTokenSet(tag) {
			if _, ok := query[token]; ok {
				return 1
			}
		}
	}
	return 0
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

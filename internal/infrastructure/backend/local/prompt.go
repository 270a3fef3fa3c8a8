package local

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/legal-rag-api/internal/core/domain"
)

const maxDocumentChars = 2000

func formatDocuments(docs []domain.LegalDocument) string {
	if len(docs) == 0 {
		return "(no documents retrieved)\n"
	}
	var b strings.Builder
	for idx, doc := range docs {
		content := truncateUTF8(doc.Content, maxDocumentChars)
		fmt.Fprintf(&b, "[%d] source=%s state=%s law=%s\n%s\n\n",
			idx+1,
			doc.SourceID(),
			doc.Jurisdiction(),
			doc.LawType(),
			content,
		)
	}
	return b.String()
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func buildAnswerPrompt(question string, docs []domain.LegalDocument) string {
	return fmt.Sprintf(`You are a legal research assistant.
Answer the question only from the legal sources below and cite them by number.
Name the jurisdiction each rule comes from. If the sources are insufficient, say so.

Question:
%s

Sources:
%s`, question, formatDocuments(docs))
}

func buildJurisdictionPrompt(question, jurisdiction string, docs []domain.LegalDocument) string {
	return fmt.Sprintf(`You are a legal research assistant specialised in %s law.
Using only the sources below, write a short draft answer for this jurisdiction.
If the sources do not address the question, reply "No relevant provisions found."

Question:
%s

Sources:
%s`, jurisdiction, question, formatDocuments(docs))
}

func buildSynthesisPrompt(question string, drafts []agentDraft) string {
	var b strings.Builder
	for _, d := range drafts {
		fmt.Fprintf(&b, "### %s\n%s\n\n", d.jurisdiction, strings.TrimSpace(d.draft))
	}
	return fmt.Sprintf(`You combine per-jurisdiction legal research into one answer.
Compare the jurisdictions, keep their differences explicit and drop drafts that found nothing relevant.

Question:
%s

Jurisdiction drafts:
%s`, question, b.String())
}

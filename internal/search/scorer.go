package search

import (
	"strings"
	"unicode/utf8"

	"github.com/DeafMist/govsite-search/backend/internal/models"
)

const (
	fullQueryWeight = 10
	tokenWeight     = 3
	prefixWeight    = 2
	partialWeight   = 1
	titleBoost      = 1.5
	minTokenLength  = 3
)

// Score computes the heuristic relevance of a record from its text fields.
// fields[0] is treated as the title and boosted; empty fields are skipped.
// Tokens of two characters or fewer never contribute.
func Score(query string, fields []string) float64 {
	tokens := scoringTokens(query)
	if len(tokens) == 0 {
		return 0
	}
	fullQuery := strings.ToLower(query)

	var total float64
	for i, field := range fields {
		if field == "" {
			continue
		}
		text := strings.ToLower(field)

		var contribution float64
		for _, tok := range tokens {
			if strings.Contains(text, fullQuery) {
				contribution += fullQueryWeight
			}
			if strings.Contains(text, tok.text) {
				contribution += tokenWeight
			}
			if strings.HasPrefix(text, tok.text) {
				contribution += prefixWeight
			}
			if strings.Contains(text, tok.stem) {
				contribution += partialWeight
			}
		}

		if i == 0 {
			contribution *= titleBoost
		}
		total += contribution
	}
	return total
}

type token struct {
	text string
	// stem is text without its last character; never empty because
	// tokens shorter than minTokenLength are dropped.
	stem string
}

func scoringTokens(query string) []token {
	fields := strings.Fields(query)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenLength {
			continue
		}
		text := strings.ToLower(f)
		_, size := utf8.DecodeLastRuneInString(text)
		out = append(out, token{text: text, stem: text[:len(text)-size]})
	}
	return out
}

// scoredFields lists the text fields scored for each kind, title first.
func scoredFields(kind models.Kind, rec models.Record) []string {
	switch kind {
	case models.KindArticle:
		return []string{rec.Text("title"), rec.Text("content"), rec.Text("excerpt")}
	case models.KindSpeech:
		return []string{rec.Text("title"), rec.Text("description"), rec.Text("venue")}
	case models.KindMedia:
		return []string{rec.Text("name"), rec.Text("alt_text"), rec.Text("tags")}
	default:
		return nil
	}
}

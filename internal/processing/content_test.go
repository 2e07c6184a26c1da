package processing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/govsite-search/backend/internal/processing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "punctuation", input: "Hello!!!   Accra", want: "Hello Accra"},
		{name: "collapse whitespace", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "remove urls", input: "Read https://example.gov/statement for info", want: "Read for info"},
		{name: "markup and entities", input: "<p>Trade &amp; <b>investment</b></p>", want: "Trade investment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.CleanText(tt.input))
		})
	}
}

func TestStripHTML(t *testing.T) {
	require.Equal(t, "Minister's address: trade & jobs.", processing.StripHTML("<h1>Minister&#39;s address:</h1> <p>trade &amp; jobs.</p>"))
	require.Equal(t, "", processing.StripHTML(""))
}

func TestExtractKeywords(t *testing.T) {
	text := "Trade trade investment investment investment summit and and the growth"
	got := processing.ExtractKeywords(text, 3, 4)
	require.Equal(t, []string{"investment", "trade", "growth"}, got)

	require.Nil(t, processing.ExtractKeywords("", 5, 3))
}

func TestExtractKeywordsIgnoresURLWords(t *testing.T) {
	text := "Budget budget https://example.gov/budget-report debate"
	got := processing.ExtractKeywords(text, 3, 4)
	require.ElementsMatch(t, []string{"budget", "debate"}, got)
}

func TestRemoveURLs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "no urls", input: "Hello world", want: "Hello world"},
		{name: "single url", input: "Check https://example.com for more", want: "Check   for more"},
		{name: "multiple urls", input: "Go https://example.com and http://test.org now", want: "Go   and   now"},
		{name: "url only", input: "https://example.com", want: " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.RemoveURLs(tt.input))
		})
	}
}

func TestGenerateExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxWords int
		want     string
	}{
		{name: "empty", body: "", maxWords: 10, want: ""},
		{name: "single sentence", body: "The minister visited Kumasi.", maxWords: 10, want: "The minister visited Kumasi"},
		{name: "multiple sentences", body: "Parliament approved the budget! Debate lasted two days.", maxWords: 10, want: "Parliament approved the budget"},
		{name: "truncated", body: "A new programme for rural schools across every region of the country", maxWords: 5, want: "A new programme for rural..."},
		{name: "html body", body: "<p><strong>Accra</strong> hosts the summit.</p><p>More soon.</p>", maxWords: 10, want: "Accra hosts the summit"},
		{name: "question mark", body: "What does the plan cover? Read on.", maxWords: 10, want: "What does the plan cover"},
		{name: "unlimited words", body: "Statement on regional trade", maxWords: 0, want: "Statement on regional trade"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.GenerateExcerpt(tt.body, tt.maxWords))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	require.Equal(t, []string{"summit", "press"}, processing.NormalizeTags([]string{" Summit", "press", "SUMMIT", ""}))
	require.Nil(t, processing.NormalizeTags([]string{" ", ""}))
	require.Nil(t, processing.NormalizeTags(nil))
}

func TestContentHash(t *testing.T) {
	a, err := processing.ContentHash(map[string]string{"title": "x"})
	require.NoError(t, err)
	b, err := processing.ContentHash(map[string]string{"title": "x"})
	require.NoError(t, err)
	c, err := processing.ContentHash(map[string]string{"title": "y"})
	require.NoError(t, err)

	require.NotEmpty(t, a)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

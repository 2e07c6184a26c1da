package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/govsite-search/backend/internal/models"
)

func TestParseKind(t *testing.T) {
	kind, err := models.ParseKind(" Speech ")
	require.NoError(t, err)
	require.Equal(t, models.KindSpeech, kind)

	_, err = models.ParseKind("podcast")
	require.Error(t, err)
}

func TestRecordText(t *testing.T) {
	rec := models.Record{
		"title":  "Budget",
		"tags":   []any{"economy", 3, "trade"},
		"labels": []string{"a", "b"},
		"views":  12,
	}

	require.Equal(t, "Budget", rec.Text("title"))
	require.Equal(t, "economy trade", rec.Text("tags"))
	require.Equal(t, "a b", rec.Text("labels"))
	require.Equal(t, "", rec.Text("views"))
	require.Equal(t, "", rec.Text("missing"))
}

func TestRecordAnnotateCopies(t *testing.T) {
	rec := models.Record{"id": "a1"}
	out := rec.Annotate(models.KindArticle, 4.5)

	require.Equal(t, "article", out["kind"])
	require.Equal(t, 4.5, out.Relevance())
	require.NotContains(t, rec, "kind")
	require.Zero(t, rec.Relevance())
}

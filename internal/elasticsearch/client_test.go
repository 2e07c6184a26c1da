package elasticsearch_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/govsite-search/backend/internal/config"
	"github.com/DeafMist/govsite-search/backend/internal/elasticsearch"
	"github.com/DeafMist/govsite-search/backend/internal/logger"
	"github.com/DeafMist/govsite-search/backend/internal/models"
)

type captured struct {
	method string
	path   string
	body   map[string]any
}

// fakeCluster answers with canned bodies keyed by "METHOD /path".
type fakeCluster struct {
	mu        sync.Mutex
	requests  []captured
	responses map[string]fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, captured{method: r.Method, path: r.URL.Path, body: body})
	resp, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		resp = fakeResponse{status: http.StatusOK, body: `{}`}
	}
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeCluster) last() captured {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newClient(t *testing.T, responses map[string]fakeResponse) (*elasticsearch.Client, *fakeCluster) {
	t.Helper()
	fake := &fakeCluster{responses: responses}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.New(srv.URL, config.Indices{
		Articles: "articles",
		Speeches: "speeches",
		Media:    "media",
	}, logger.Discard())
	require.NoError(t, err)
	return client, fake
}

func TestFindArticlesBuildsQueryAndParsesHits(t *testing.T) {
	client, fake := newClient(t, map[string]fakeResponse{
		"POST /articles/_search": {status: http.StatusOK, body: `{
			"hits": {
				"total": {"value": 42},
				"hits": [
					{"_id": "a1", "_source": {"title": "Trade summit", "status": "published"}},
					{"_id": "a2", "_source": {"id": "custom", "title": "Budget"}}
				]
			}
		}`},
	})

	page, err := client.FindArticles(context.Background(), models.ListQuery{
		Text:     "trade",
		Category: "Economy",
		From:     10,
		Size:     5,
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, page.Total)
	require.Len(t, page.Records, 2)
	require.Equal(t, "a1", page.Records[0]["id"])
	require.Equal(t, "custom", page.Records[1]["id"])

	req := fake.last()
	require.Equal(t, "/articles/_search", req.path)
	require.EqualValues(t, 10, req.body["from"])
	require.EqualValues(t, 5, req.body["size"])
	require.Equal(t, true, req.body["track_total_hits"])

	boolQuery := req.body["query"].(map[string]any)["bool"].(map[string]any)
	filters := boolQuery["filter"].([]any)
	require.Len(t, filters, 2)
	require.Equal(t, map[string]any{"term": map[string]any{"status": "published"}}, filters[0])
	require.Equal(t, map[string]any{"term": map[string]any{"category": "Economy"}}, filters[1])

	match := boolQuery["must"].([]any)[0].(map[string]any)["multi_match"].(map[string]any)
	require.Equal(t, "trade", match["query"])
}

func TestFindSpeechesIgnoresCategory(t *testing.T) {
	client, fake := newClient(t, map[string]fakeResponse{
		"POST /speeches/_search": {status: http.StatusOK, body: `{"hits":{"total":{"value":0},"hits":[]}}`},
	})

	page, err := client.FindSpeeches(context.Background(), models.ListQuery{Text: "summit", Category: "Economy"})
	require.NoError(t, err)
	require.Empty(t, page.Records)

	req := fake.last()
	require.EqualValues(t, 20, req.body["size"])
	boolQuery := req.body["query"].(map[string]any)["bool"].(map[string]any)
	require.NotContains(t, boolQuery, "filter")

	sort := req.body["sort"].([]any)[0].(map[string]any)
	require.Contains(t, sort, "date")
}

func TestFindMediaReportsClusterError(t *testing.T) {
	client, _ := newClient(t, map[string]fakeResponse{
		"POST /media/_search": {status: http.StatusInternalServerError, body: `{"error":"shard failure"}`},
	})

	_, err := client.FindMedia(context.Background(), models.ListQuery{Text: "flag"})
	require.ErrorContains(t, err, "shard failure")
}

func TestSuggestionSamples(t *testing.T) {
	client, fake := newClient(t, map[string]fakeResponse{
		"POST /articles/_search": {status: http.StatusOK, body: `{"aggregations":{"terms":{"buckets":[
			{"key":"Economy","doc_count":9},{"key":"Diplomacy","doc_count":4}
		]}}}`},
		"POST /media/_search": {status: http.StatusOK, body: `{"aggregations":{"terms":{"buckets":[
			{"key":"summit","doc_count":2}
		]}}}`},
	})

	categories, err := client.ArticleCategories(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, []string{"Economy", "Diplomacy"}, categories)

	req := fake.last()
	require.EqualValues(t, 0, req.body["size"])
	terms := req.body["aggs"].(map[string]any)["terms"].(map[string]any)["terms"].(map[string]any)
	require.Equal(t, "category", terms["field"])
	require.EqualValues(t, 20, terms["size"])

	tags, err := client.MediaTags(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, []string{"summit"}, tags)
}

func TestCountsAndTermCounts(t *testing.T) {
	client, _ := newClient(t, map[string]fakeResponse{
		"POST /speeches/_count": {status: http.StatusOK, body: `{"count": 7}`},
		"POST /articles/_search": {status: http.StatusOK, body: `{"aggregations":{"terms":{"buckets":[
			{"key":"published","doc_count":5},{"key":"draft","doc_count":2}
		]}}}`},
	})

	count, err := client.CountDocuments(context.Background(), models.KindSpeech)
	require.NoError(t, err)
	require.EqualValues(t, 7, count)

	byStatus, err := client.TermCounts(context.Background(), models.KindArticle, "status", 10)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"published": 5, "draft": 2}, byStatus)

	_, err = client.CountDocuments(context.Background(), models.Kind("podcast"))
	require.Error(t, err)
}

func TestIndexAndDeleteDocument(t *testing.T) {
	client, fake := newClient(t, map[string]fakeResponse{
		"PUT /media/_doc/m1":         {status: http.StatusCreated, body: `{"result":"created"}`},
		"DELETE /articles/_doc/gone": {status: http.StatusNotFound, body: `{"result":"not_found"}`},
		"DELETE /speeches/_doc/s1":   {status: http.StatusForbidden, body: `{"error":"read only"}`},
	})

	uploaded := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err := client.IndexDocument(context.Background(), models.KindMedia, "m1", models.MediaAsset{
		ID:         "m1",
		Name:       "flag.png",
		Tags:       []string{"ghana"},
		UploadedAt: uploaded,
	})
	require.NoError(t, err)

	req := fake.last()
	require.Equal(t, "flag.png", req.body["name"])
	require.Equal(t, "2024-01-02T03:04:05Z", req.body["uploaded_at"])

	require.NoError(t, client.DeleteDocument(context.Background(), models.KindArticle, "gone"))
	require.ErrorContains(t, client.DeleteDocument(context.Background(), models.KindSpeech, "s1"), "read only")
}

func TestDeleteArchivedOlderThanLoopsUntilShortBatch(t *testing.T) {
	calls := 0
	fake := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		require.Equal(t, "/articles/_delete_by_query", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		filters := body["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
		require.Equal(t, map[string]any{"term": map[string]any{"status": "archived"}}, filters[0])

		calls++
		deleted := 2
		if calls > 1 {
			deleted = 1
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"deleted": deleted})
	})
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := elasticsearch.New(srv.URL, config.Indices{Articles: "articles"}, logger.Discard())
	require.NoError(t, err)

	deleted, err := client.DeleteArchivedOlderThan(context.Background(), time.Hour, 2)
	require.NoError(t, err)
	require.EqualValues(t, 3, deleted)
	require.Equal(t, 2, calls)
}

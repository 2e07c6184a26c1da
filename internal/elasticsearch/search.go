package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/DeafMist/govsite-search/backend/internal/models"
)

const defaultSize = 20

// collectionQuery describes how one collection is searched.
type collectionQuery struct {
	fields      []string
	sortField   string
	categoryKey string
	filters     []map[string]any
}

var collectionQueries = map[models.Kind]collectionQuery{
	models.KindArticle: {
		fields:      []string{"title^2", "content", "excerpt"},
		sortField:   "published_at",
		categoryKey: "category",
		filters: []map[string]any{
			{"term": map[string]any{"status": models.StatusPublished}},
		},
	},
	models.KindSpeech: {
		fields:    []string{"title^2", "description", "venue"},
		sortField: "date",
	},
	models.KindMedia: {
		fields:      []string{"name^2", "alt_text", "tags"},
		sortField:   "uploaded_at",
		categoryKey: "category",
	},
}

// FindArticles returns published articles matching q, most recent first.
func (c *Client) FindArticles(ctx context.Context, q models.ListQuery) (models.RecordPage, error) {
	return c.find(ctx, models.KindArticle, q)
}

// FindSpeeches returns speeches matching q, most recent first. q.Category is ignored.
func (c *Client) FindSpeeches(ctx context.Context, q models.ListQuery) (models.RecordPage, error) {
	return c.find(ctx, models.KindSpeech, q)
}

// FindMedia returns media assets matching q, most recently uploaded first.
func (c *Client) FindMedia(ctx context.Context, q models.ListQuery) (models.RecordPage, error) {
	return c.find(ctx, models.KindMedia, q)
}

func (c *Client) find(ctx context.Context, kind models.Kind, q models.ListQuery) (models.RecordPage, error) {
	name, err := c.index(kind)
	if err != nil {
		return models.RecordPage{}, err
	}

	payload, err := json.Marshal(buildSearchBody(kind, q))
	if err != nil {
		return models.RecordPage{}, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(name),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return models.RecordPage{}, fmt.Errorf("search %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return models.RecordPage{}, fmt.Errorf("search %s failed: %s", name, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string        `json:"_id"`
				Source models.Record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.RecordPage{}, fmt.Errorf("decode search response: %w", err)
	}

	records := make([]models.Record, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		rec := hit.Source
		if rec == nil {
			rec = models.Record{}
		}
		if _, ok := rec["id"]; !ok {
			rec["id"] = hit.ID
		}
		records = append(records, rec)
	}

	return models.RecordPage{Records: records, Total: parsed.Hits.Total.Value}, nil
}

func buildSearchBody(kind models.Kind, q models.ListQuery) map[string]any {
	cq := collectionQueries[kind]

	size := q.Size
	if size <= 0 {
		size = defaultSize
	}
	from := q.From
	if from < 0 {
		from = 0
	}

	must := make([]map[string]any, 0, 1)
	filters := make([]map[string]any, 0, len(cq.filters)+1)
	filters = append(filters, cq.filters...)

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": cq.fields,
			},
		})
	}

	if q.Category != "" && cq.categoryKey != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{cq.categoryKey: q.Category},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	return map[string]any{
		"from":             from,
		"size":             size,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": boolQuery,
		},
		"sort": []map[string]any{
			{cq.sortField: map[string]any{"order": "desc", "unmapped_type": "date"}},
		},
	}
}

// ArticleCategories samples up to size categories of published articles.
func (c *Client) ArticleCategories(ctx context.Context, size int) ([]string, error) {
	counts, err := c.termCounts(ctx, c.indices.Articles, "category", size, []map[string]any{
		{"term": map[string]any{"status": models.StatusPublished}},
	})
	if err != nil {
		return nil, err
	}
	return bucketKeys(counts), nil
}

// MediaTags samples up to size media tags.
func (c *Client) MediaTags(ctx context.Context, size int) ([]string, error) {
	counts, err := c.termCounts(ctx, c.indices.Media, "tags", size, nil)
	if err != nil {
		return nil, err
	}
	return bucketKeys(counts), nil
}

type bucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

func bucketKeys(buckets []bucket) []string {
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Key)
	}
	return out
}

// termCounts runs a terms aggregation on field, most frequent bucket first.
func (c *Client) termCounts(ctx context.Context, index, field string, size int, filters []map[string]any) ([]bucket, error) {
	if size <= 0 {
		size = 10
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(filters) > 0 {
		query = map[string]any{"bool": map[string]any{"filter": filters}}
	}

	body := map[string]any{
		"size":  0,
		"query": query,
		"aggs": map[string]any{
			"terms": map[string]any{
				"terms": map[string]any{"field": field, "size": size},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal aggregation body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s.%s: %w", index, field, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("aggregate %s.%s failed: %s", index, field, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Aggregations struct {
			Terms struct {
				Buckets []bucket `json:"buckets"`
			} `json:"terms"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode aggregation response: %w", err)
	}

	return parsed.Aggregations.Terms.Buckets, nil
}

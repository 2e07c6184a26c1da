package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/govsite-search/backend/internal/config"
	"github.com/DeafMist/govsite-search/backend/internal/models"
)

// Client wraps go-elasticsearch with helpers tailored to the content indices.
type Client struct {
	es      *elasticsearch.Client
	indices config.Indices
	log     *slog.Logger
}

// New instantiates the Elasticsearch client.
func New(addr string, indices config.Indices, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, indices: indices, log: logger}, nil
}

func (c *Client) index(kind models.Kind) (string, error) {
	switch kind {
	case models.KindArticle:
		return c.indices.Articles, nil
	case models.KindSpeech:
		return c.indices.Speeches, nil
	case models.KindMedia:
		return c.indices.Media, nil
	default:
		return "", fmt.Errorf("no index for kind %q", kind)
	}
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Health reports cluster health; any 4xx/5xx answer is treated as unhealthy.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}

var mappings = map[models.Kind]map[string]any{
	models.KindArticle: {
		"properties": map[string]any{
			"id":           map[string]any{"type": "keyword"},
			"title":        map[string]any{"type": "text"},
			"content":      map[string]any{"type": "text"},
			"excerpt":      map[string]any{"type": "text"},
			"category":     map[string]any{"type": "keyword"},
			"status":       map[string]any{"type": "keyword"},
			"keywords":     map[string]any{"type": "keyword"},
			"published_at": map[string]any{"type": "date"},
			"updated_at":   map[string]any{"type": "date"},
		},
	},
	models.KindSpeech: {
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"title":       map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"venue":       map[string]any{"type": "text"},
			"date":        map[string]any{"type": "date"},
		},
	},
	models.KindMedia: {
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"name":        map[string]any{"type": "text"},
			"alt_text":    map[string]any{"type": "text"},
			"category":    map[string]any{"type": "keyword"},
			"tags":        map[string]any{"type": "keyword"},
			"uploaded_at": map[string]any{"type": "date"},
		},
	},
}

// EnsureIndices creates any missing content index with its mapping.
func (c *Client) EnsureIndices(ctx context.Context) error {
	for _, kind := range []models.Kind{models.KindArticle, models.KindSpeech, models.KindMedia} {
		name, err := c.index(kind)
		if err != nil {
			return err
		}

		res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("check index %s: %w", name, err)
		}
		res.Body.Close()
		if res.StatusCode == http.StatusOK {
			continue
		}

		payload, err := json.Marshal(map[string]any{"mappings": mappings[kind]})
		if err != nil {
			return fmt.Errorf("marshal mapping: %w", err)
		}

		res, err = c.es.Indices.Create(name,
			c.es.Indices.Create.WithContext(ctx),
			c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
		)
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		if res.IsError() {
			data, _ := io.ReadAll(res.Body)
			res.Body.Close()
			// another worker won the race
			if strings.Contains(string(data), "resource_already_exists_exception") {
				continue
			}
			return fmt.Errorf("create index %s failed: %s", name, strings.TrimSpace(string(data)))
		}
		res.Body.Close()
		c.log.Info("created index", slog.String("index", name), slog.String("kind", string(kind)))
	}
	return nil
}

// IndexDocument writes a document into the index of its kind.
func (c *Client) IndexDocument(ctx context.Context, kind models.Kind, id string, doc any) error {
	name, err := c.index(kind)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      name,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

// DeleteDocument removes a document. Deleting a missing document is not an error.
func (c *Client) DeleteDocument(ctx context.Context, kind models.Kind, id string) error {
	name, err := c.index(kind)
	if err != nil {
		return err
	}

	req := esapi.DeleteRequest{Index: name, DocumentID: id}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("delete doc: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete doc failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// DeleteArchivedOlderThan removes archived articles last updated before now-maxAge
// using batched delete-by-query. It loops until a batch deletes fewer than batchSize.
func (c *Client) DeleteArchivedOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339)
	totalDeleted := int64(0)

	for {
		body := map[string]any{
			"max_docs": batchSize,
			"query": map[string]any{
				"bool": map[string]any{
					"filter": []map[string]any{
						{"term": map[string]any{"status": models.StatusArchived}},
						{"range": map[string]any{"updated_at": map[string]any{"lte": cutoff}}},
					},
				},
			},
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return totalDeleted, fmt.Errorf("marshal delete body: %w", err)
		}

		res, err := c.es.DeleteByQuery(
			[]string{c.indices.Articles},
			bytes.NewReader(payload),
			c.es.DeleteByQuery.WithContext(ctx),
			c.es.DeleteByQuery.WithWaitForCompletion(true),
			c.es.DeleteByQuery.WithConflicts("proceed"),
			c.es.DeleteByQuery.WithScrollSize(batchSize),
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("delete by query: %w", err)
		}

		if res.IsError() {
			data, _ := io.ReadAll(res.Body)
			res.Body.Close()
			return totalDeleted, fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
		}

		var parsed struct {
			Deleted int64 `json:"deleted"`
		}
		if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
			res.Body.Close()
			return totalDeleted, fmt.Errorf("decode delete response: %w", err)
		}
		res.Body.Close()

		totalDeleted += parsed.Deleted

		if parsed.Deleted < int64(batchSize) {
			break
		}
	}

	return totalDeleted, nil
}

package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/DeafMist/govsite-search/backend/internal/models"
)

// CountDocuments returns the number of documents in the index of kind.
func (c *Client) CountDocuments(ctx context.Context, kind models.Kind) (int64, error) {
	name, err := c.index(kind)
	if err != nil {
		return 0, err
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(name),
	)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("count %s failed: %s", name, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return parsed.Count, nil
}

// TermCounts returns document counts per value of field in the index of kind.
func (c *Client) TermCounts(ctx context.Context, kind models.Kind, field string, size int) (map[string]int64, error) {
	name, err := c.index(kind)
	if err != nil {
		return nil, err
	}

	buckets, err := c.termCounts(ctx, name, field, size, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		out[b.Key] = b.DocCount
	}
	return out, nil
}

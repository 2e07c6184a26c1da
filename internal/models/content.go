package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind names one of the searchable collections.
type Kind string

const (
	KindArticle Kind = "article"
	KindSpeech  Kind = "speech"
	KindMedia   Kind = "media"
)

// ParseKind validates a kind coming from an external event.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindArticle, KindSpeech, KindMedia:
		return k, nil
	default:
		return "", fmt.Errorf("unknown content kind %q", raw)
	}
}

// Article statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Article is a news article as stored in the articles index.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Category    string     `json:"category,omitempty"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Keywords    []string   `json:"keywords,omitempty"`
}

// Speech is a speech as stored in the speeches index.
type Speech struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

// MediaAsset is an uploaded file as stored in the media index.
type MediaAsset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	AltText    string    `json:"alt_text,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Record is a search hit as returned by the store: field name to value.
type Record map[string]any

// Text returns the textual value of a field, or "" when absent.
// List fields are joined with single spaces.
func (r Record) Text(field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Annotate returns a shallow copy of the record carrying kind and relevance.
func (r Record) Annotate(kind Kind, relevance float64) Record {
	out := make(Record, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	out["kind"] = string(kind)
	out["relevance"] = relevance
	return out
}

// Relevance reads back the score written by Annotate.
func (r Record) Relevance() float64 {
	v, _ := r["relevance"].(float64)
	return v
}

// ListQuery is a filtered lookup against one collection. Category is ignored
// by collections without a category field. Size <= 0 means the store default.
type ListQuery struct {
	Text     string
	Category string
	From     int
	Size     int
}

// RecordPage is one page of hits plus the total number of matches at the source.
type RecordPage struct {
	Records []Record
	Total   int64
}

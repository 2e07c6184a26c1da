package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/govsite-search/backend/internal/config"
	"github.com/DeafMist/govsite-search/backend/internal/dedupe"
	"github.com/DeafMist/govsite-search/backend/internal/metrics"
	"github.com/DeafMist/govsite-search/backend/internal/models"
	"github.com/DeafMist/govsite-search/backend/internal/processing"
)

const (
	actionUpsert = "upsert"
	actionDelete = "delete"
)

// contentEvent is a change published by the CMS.
type contentEvent struct {
	Action string          `json:"action"`
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Record json.RawMessage `json:"record"`
}

type rawArticle struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Excerpt     string `json:"excerpt"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	PublishedAt string `json:"published_at"`
	UpdatedAt   string `json:"updated_at"`
}

type rawSpeech struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	Date        string `json:"date"`
}

type rawMedia struct {
	Name       string   `json:"name"`
	AltText    string   `json:"alt_text"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	UploadedAt string   `json:"uploaded_at"`
}

type contentIndexer interface {
	IndexDocument(ctx context.Context, kind models.Kind, id string, doc any) error
	DeleteDocument(ctx context.Context, kind models.Kind, id string) error
}

func processEvent(ctx context.Context, log *slog.Logger, idx contentIndexer, cache *dedupe.Cache, cfg *config.Worker, value []byte) error {
	var event contentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		metrics.WorkerEvents.WithLabelValues("unknown", "failed").Inc()
		return fmt.Errorf("decode event: %w", err)
	}

	kind, err := models.ParseKind(event.Kind)
	if err != nil {
		metrics.WorkerEvents.WithLabelValues("unknown", "failed").Inc()
		return err
	}

	result, err := applyEvent(ctx, log, idx, cache, cfg, kind, event)
	if err != nil {
		metrics.WorkerEvents.WithLabelValues(string(kind), "failed").Inc()
		return err
	}
	metrics.WorkerEvents.WithLabelValues(string(kind), result).Inc()
	return nil
}

func applyEvent(ctx context.Context, log *slog.Logger, idx contentIndexer, cache *dedupe.Cache, cfg *config.Worker, kind models.Kind, event contentEvent) (string, error) {
	id := strings.TrimSpace(event.ID)

	switch strings.ToLower(strings.TrimSpace(event.Action)) {
	case actionDelete:
		if id == "" {
			return "", errors.New("delete event without id")
		}
		if err := idx.DeleteDocument(ctx, kind, id); err != nil {
			return "", err
		}
		cache.Forget(cacheKey(kind, id))
		log.Info("deleted content", slog.String("kind", string(kind)), slog.String("id", id))
		return "deleted", nil

	case actionUpsert:
		if len(event.Record) == 0 {
			return "", errors.New("upsert event without record")
		}
		// the raw record is hashed so that defaulted timestamps do not defeat dedupe
		hash, err := processing.ContentHash(event.Record)
		if err != nil {
			return "", fmt.Errorf("hash record: %w", err)
		}
		if id == "" {
			id = fallbackID(kind, hash)
		}
		key := cacheKey(kind, id)
		if cache.Unchanged(key, hash) {
			log.Debug("unchanged content", slog.String("kind", string(kind)), slog.String("id", id))
			return "skipped", nil
		}

		doc, err := buildDocument(kind, id, event.Record, cfg)
		if err != nil {
			return "", err
		}
		if err := idx.IndexDocument(ctx, kind, id, doc); err != nil {
			return "", err
		}

		cache.Remember(key, hash)
		log.Info("indexed content", slog.String("kind", string(kind)), slog.String("id", id))
		return "indexed", nil

	default:
		return "", fmt.Errorf("unknown action %q", event.Action)
	}
}

// fallbackID derives a stable id for records sent without one, so a
// redelivered event maps to the same document.
func fallbackID(kind models.Kind, hash string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(kind)+":"+hash)).String()
}

func cacheKey(kind models.Kind, id string) string {
	return string(kind) + ":" + id
}

func buildDocument(kind models.Kind, id string, record json.RawMessage, cfg *config.Worker) (any, error) {
	switch kind {
	case models.KindArticle:
		var raw rawArticle
		if err := json.Unmarshal(record, &raw); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		return buildArticle(id, raw, cfg)
	case models.KindSpeech:
		var raw rawSpeech
		if err := json.Unmarshal(record, &raw); err != nil {
			return nil, fmt.Errorf("decode speech: %w", err)
		}
		return buildSpeech(id, raw)
	case models.KindMedia:
		var raw rawMedia
		if err := json.Unmarshal(record, &raw); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
		return buildMedia(id, raw)
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

func buildArticle(id string, raw rawArticle, cfg *config.Worker) (models.Article, error) {
	title := strings.TrimSpace(raw.Title)
	content := strings.TrimSpace(raw.Content)
	if title == "" && content == "" {
		return models.Article{}, errors.New("empty article")
	}

	status := strings.ToLower(strings.TrimSpace(raw.Status))
	switch status {
	case "":
		status = models.StatusDraft
	case models.StatusDraft, models.StatusPublished, models.StatusArchived:
	default:
		return models.Article{}, fmt.Errorf("unknown article status %q", raw.Status)
	}

	excerpt := strings.TrimSpace(raw.Excerpt)
	if excerpt == "" {
		excerpt = processing.GenerateExcerpt(content, cfg.ExcerptWords)
	}
	if title == "" {
		title = processing.GenerateExcerpt(content, 10)
	}

	updated := parseTimestamp(raw.UpdatedAt)
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	cleaned := processing.CleanText(content)
	return models.Article{
		ID:          id,
		Title:       title,
		Content:     content,
		Excerpt:     excerpt,
		Category:    strings.TrimSpace(raw.Category),
		Status:      status,
		PublishedAt: optionalTime(raw.PublishedAt),
		UpdatedAt:   updated,
		Keywords:    processing.ExtractKeywords(title+" "+cleaned, cfg.KeywordLimit, cfg.KeywordMinLength),
	}, nil
}

func buildSpeech(id string, raw rawSpeech) (models.Speech, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return models.Speech{}, errors.New("speech title is required")
	}
	return models.Speech{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(raw.Description),
		Venue:       strings.TrimSpace(raw.Venue),
		Date:        optionalTime(raw.Date),
	}, nil
}

func buildMedia(id string, raw rawMedia) (models.MediaAsset, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return models.MediaAsset{}, errors.New("media name is required")
	}

	uploaded := parseTimestamp(raw.UploadedAt)
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}

	return models.MediaAsset{
		ID:         id,
		Name:       name,
		AltText:    strings.TrimSpace(raw.AltText),
		Category:   strings.TrimSpace(raw.Category),
		Tags:       processing.NormalizeTags(raw.Tags),
		UploadedAt: uploaded,
	}, nil
}

func optionalTime(raw string) *time.Time {
	ts := parseTimestamp(raw)
	if ts.IsZero() {
		return nil
	}
	return &ts
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		time.DateOnly,
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}

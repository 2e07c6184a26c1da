// Package stats aggregates content counts for the admin dashboard.
package stats

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DeafMist/govsite-search/backend/internal/logger"
	"github.com/DeafMist/govsite-search/backend/internal/metrics"
	"github.com/DeafMist/govsite-search/backend/internal/models"
)

const categoryBuckets = 25

// Source counts documents per collection.
type Source interface {
	CountDocuments(ctx context.Context, kind models.Kind) (int64, error)
	TermCounts(ctx context.Context, kind models.Kind, field string, size int) (map[string]int64, error)
}

// Articles summarises the articles collection.
type Articles struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByCategory map[string]int64 `json:"byCategory"`
}

// Speeches summarises the speeches collection.
type Speeches struct {
	Total int64 `json:"total"`
}

// Media summarises the media collection.
type Media struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"byCategory"`
}

// Dashboard is the body of a stats reply.
type Dashboard struct {
	Articles Articles `json:"articles"`
	Speeches Speeches `json:"speeches"`
	Media    Media    `json:"media"`
	Error    string   `json:"error,omitempty"`
}

// NotConfigured is served when no store is available.
func NotConfigured() *Dashboard {
	d := empty()
	d.Error = "Search service not configured"
	return d
}

func empty() *Dashboard {
	return &Dashboard{
		Articles: Articles{ByStatus: map[string]int64{}, ByCategory: map[string]int64{}},
		Media:    Media{ByCategory: map[string]int64{}},
	}
}

// Aggregator collects dashboard counts.
type Aggregator struct {
	src Source
	log *slog.Logger
}

// New creates an Aggregator.
func New(src Source, log *slog.Logger) *Aggregator {
	if log == nil {
		log = logger.Discard()
	}
	return &Aggregator{src: src, log: log}
}

// Collect runs every count concurrently. A failed count is logged and left at zero.
func (a *Aggregator) Collect(ctx context.Context) *Dashboard {
	d := empty()

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				metrics.CollectionFailures.WithLabelValues(name).Inc()
				a.log.WarnContext(ctx, "stats lookup failed", slog.String("collection", name), slog.Any("err", err))
			}
		}()
	}

	run("articles", func() (err error) {
		d.Articles.Total, err = a.src.CountDocuments(ctx, models.KindArticle)
		return err
	})
	run("articles", func() error {
		counts, err := a.src.TermCounts(ctx, models.KindArticle, "status", categoryBuckets)
		if err == nil && counts != nil {
			d.Articles.ByStatus = counts
		}
		return err
	})
	run("articles", func() error {
		counts, err := a.src.TermCounts(ctx, models.KindArticle, "category", categoryBuckets)
		if err == nil && counts != nil {
			d.Articles.ByCategory = counts
		}
		return err
	})
	run("speeches", func() (err error) {
		d.Speeches.Total, err = a.src.CountDocuments(ctx, models.KindSpeech)
		return err
	})
	run("media", func() (err error) {
		d.Media.Total, err = a.src.CountDocuments(ctx, models.KindMedia)
		return err
	})
	run("media", func() error {
		counts, err := a.src.TermCounts(ctx, models.KindMedia, "category", categoryBuckets)
		if err == nil && counts != nil {
			d.Media.ByCategory = counts
		}
		return err
	})

	wg.Wait()
	return d
}

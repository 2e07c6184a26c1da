// Package search ranks content from the articles, speeches and media
// collections against a free-text query.
//
// A single-collection search is paginated by the store and keeps its natural
// most-recent-first order. Searching "all" collections fetches every
// candidate, scores it with Score and paginates the merged ranking in memory.
// A collection whose lookup fails contributes no results; the request still
// succeeds.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/DeafMist/govsite-search/backend/internal/logger"
	"github.com/DeafMist/govsite-search/backend/internal/metrics"
	"github.com/DeafMist/govsite-search/backend/internal/models"
)

// ArticleFinder looks up published articles.
type ArticleFinder interface {
	FindArticles(ctx context.Context, q models.ListQuery) (models.RecordPage, error)
}

// SpeechFinder looks up speeches.
type SpeechFinder interface {
	FindSpeeches(ctx context.Context, q models.ListQuery) (models.RecordPage, error)
}

// MediaFinder looks up media assets.
type MediaFinder interface {
	FindMedia(ctx context.Context, q models.ListQuery) (models.RecordPage, error)
}

// TermSampler returns existing categories and tags used for suggestions.
type TermSampler interface {
	ArticleCategories(ctx context.Context, size int) ([]string, error)
	MediaTags(ctx context.Context, size int) ([]string, error)
}

// Store is everything the search service reads.
type Store interface {
	ArticleFinder
	SpeechFinder
	MediaFinder
	TermSampler
}

// Pagination describes the page returned to the client.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Response is the body of a search reply.
type Response struct {
	Results     []models.Record `json:"results"`
	Pagination  Pagination      `json:"pagination"`
	Suggestions []string        `json:"suggestions"`
	Query       string          `json:"query,omitempty"`
	Type        Type            `json:"type,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// NotConfigured is the reply served when no store is available.
func NotConfigured() *Response {
	return &Response{
		Results:     []models.Record{},
		Pagination:  Pagination{Page: DefaultPage, Limit: DefaultLimit},
		Suggestions: []string{},
		Error:       "Search service not configured",
	}
}

// maxResultWindow is the deepest row a single-collection lookup can reach,
// matching the Elasticsearch index.max_result_window default.
const maxResultWindow = 10_000

// Service runs searches against a Store.
type Service struct {
	store       Store
	mergeWindow int
	vocabulary  []string
	log         *slog.Logger
}

// New creates a search service. mergeWindow caps how many rows each
// collection contributes to an "all" search.
func New(store Store, mergeWindow int, log *slog.Logger) *Service {
	if mergeWindow <= 0 {
		mergeWindow = 1000
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:       store,
		mergeWindow: mergeWindow,
		vocabulary:  Vocabulary,
		log:         log,
	}
}

type collection struct {
	kind models.Kind
	name string
	// speeches have no category
	categorized bool
	find        func(context.Context, models.ListQuery) (models.RecordPage, error)
}

func (s *Service) collections() []collection {
	return []collection{
		{kind: models.KindArticle, name: "articles", categorized: true, find: s.store.FindArticles},
		{kind: models.KindSpeech, name: "speeches", find: s.store.FindSpeeches},
		{kind: models.KindMedia, name: "media", categorized: true, find: s.store.FindMedia},
	}
}

func (s *Service) collectionFor(t Type) (collection, error) {
	cols := s.collections()
	switch t {
	case TypeNews, TypeContent:
		return cols[0], nil
	case TypeSpeeches:
		return cols[1], nil
	case TypeMedia:
		return cols[2], nil
	default:
		return collection{}, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
}

// Search runs one search request. Suggestions are computed concurrently with
// the main lookup. The only error is an unknown collection selector.
func (s *Service) Search(ctx context.Context, p Params) (*Response, error) {
	p = p.Normalize()
	metrics.SearchRequests.WithLabelValues(string(p.Type)).Inc()

	var (
		wg          sync.WaitGroup
		suggestions []string
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		suggestions = s.Suggest(ctx, p.Query)
	}()

	var (
		results []models.Record
		total   int64
		err     error
	)
	if p.Type == TypeAll {
		results, total = s.searchAll(ctx, p)
	} else {
		results, total, err = s.searchOne(ctx, p)
	}
	wg.Wait()
	if err != nil {
		return nil, err
	}

	return &Response{
		Results:     results,
		Pagination:  paginate(p, total),
		Suggestions: suggestions,
		Query:       p.Query,
		Type:        p.Type,
	}, nil
}

func (s *Service) searchOne(ctx context.Context, p Params) ([]models.Record, int64, error) {
	col, err := s.collectionFor(p.Type)
	if err != nil {
		return nil, 0, err
	}

	q := models.ListQuery{Text: p.Query, From: p.offset(), Size: p.Limit}
	if col.categorized {
		q.Category = p.Category
	}

	// the store cannot page past its result window; only the total is needed
	beyondWindow := q.From >= maxResultWindow
	if beyondWindow {
		q.From, q.Size = 0, 1
	} else if q.From+q.Size > maxResultWindow {
		q.Size = maxResultWindow - q.From
	}

	page := s.lookup(ctx, col, q)
	if beyondWindow {
		return []models.Record{}, page.Total, nil
	}
	results := make([]models.Record, 0, len(page.Records))
	for _, rec := range page.Records {
		results = append(results, rec.Annotate(col.kind, Score(p.Query, scoredFields(col.kind, rec))))
	}
	return results, page.Total, nil
}

func (s *Service) searchAll(ctx context.Context, p Params) ([]models.Record, int64) {
	cols := s.collections()
	pages := make([]models.RecordPage, len(cols))

	var wg sync.WaitGroup
	for i, col := range cols {
		q := models.ListQuery{Text: p.Query, Size: s.mergeWindow}
		if col.categorized {
			q.Category = p.Category
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pages[i] = s.lookup(ctx, col, q)
		}()
	}
	wg.Wait()

	var merged []models.Record
	for i, col := range cols {
		for _, rec := range pages[i].Records {
			merged = append(merged, rec.Annotate(col.kind, Score(p.Query, scoredFields(col.kind, rec))))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Relevance() > merged[j].Relevance()
	})

	total := len(merged)
	start := p.offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if p.Limit < total-start {
		end = start + p.Limit
	}

	page := make([]models.Record, end-start)
	copy(page, merged[start:end])
	return page, int64(total)
}

// lookup queries one collection, degrading any failure to an empty page.
func (s *Service) lookup(ctx context.Context, col collection, q models.ListQuery) models.RecordPage {
	page, err := col.find(ctx, q)
	if err != nil {
		metrics.CollectionFailures.WithLabelValues(col.name).Inc()
		s.log.WarnContext(ctx, "collection lookup failed",
			slog.String("collection", col.name),
			slog.Any("err", err),
		)
		return models.RecordPage{}
	}
	return page
}

func paginate(p Params, total int64) Pagination {
	pages := 0
	if total > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

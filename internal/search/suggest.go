package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	maxSuggestions = 8
	sampleSize     = 20
	prefixLength   = 3
)

// Vocabulary is the fixed list of domain terms offered as suggestions.
var Vocabulary = []string{
	"diplomacy",
	"foreign affairs",
	"trade",
	"economy",
	"investment",
	"education",
	"healthcare",
	"infrastructure",
	"agriculture",
	"energy",
	"security",
	"youth empowerment",
	"women empowerment",
	"regional integration",
	"development",
	"tourism",
	"climate change",
	"governance",
	"parliament",
	"press release",
	"bilateral relations",
	"community engagement",
}

// Suggest returns up to eight de-duplicated terms that overlap the first
// three characters of query: sampled article categories and media tags
// first, then vocabulary entries. A failed sample yields no suggestions.
func (s *Service) Suggest(ctx context.Context, query string) []string {
	prefix := leadingRunes(strings.ToLower(strings.TrimSpace(query)), prefixLength)
	if prefix == "" {
		return []string{}
	}

	var (
		wg                  sync.WaitGroup
		categories, tags    []string
		categoryErr, tagErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		categories, categoryErr = s.store.ArticleCategories(ctx, sampleSize)
	}()
	go func() {
		defer wg.Done()
		tags, tagErr = s.store.MediaTags(ctx, sampleSize)
	}()
	wg.Wait()

	for _, err := range []error{categoryErr, tagErr} {
		if err != nil {
			s.log.WarnContext(ctx, "suggestion sampling failed", slog.Any("err", err))
			return []string{}
		}
	}

	out := make([]string, 0, maxSuggestions)
	seen := make(map[string]struct{}, maxSuggestions)
	for _, group := range [][]string{categories, tags, s.vocabulary} {
		for _, term := range group {
			if len(out) == maxSuggestions {
				return out
			}
			term = strings.TrimSpace(term)
			key := strings.ToLower(term)
			if key == "" || !overlaps(key, prefix) {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}

func overlaps(term, prefix string) bool {
	return strings.Contains(term, prefix) || strings.Contains(prefix, term)
}

func leadingRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

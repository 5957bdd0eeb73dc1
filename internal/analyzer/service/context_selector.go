package service

import (
	"context"
	"fmt"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/entity"
)

// ContextRange selects how far back historical context reaches.
type ContextRange string

const (
	RangeWeek  ContextRange = "week"
	RangeMonth ContextRange = "month"
	RangeYear  ContextRange = "year"
	RangeAll   ContextRange = "all"
)

var lookbacks = map[ContextRange]time.Duration{
	RangeWeek:  7 * 24 * time.Hour,
	RangeMonth: 30 * 24 * time.Hour,
	RangeYear:  365 * 24 * time.Hour,
}

// ParseContextRange validates a configured range value.
func ParseContextRange(s string) (ContextRange, error) {
	switch r := ContextRange(s); r {
	case RangeWeek, RangeMonth, RangeYear, RangeAll:
		return r, nil
	default:
		return "", fmt.Errorf("invalid historical context range: %q", s)
	}
}

// ContextSelector picks the window of prior news fed to the scorer as
// context. Selection is deterministic for a fixed store state.
type ContextSelector struct {
	newsRepo repository.NewsRepository
	maxItems int
}

// NewContextSelector creates a selector capped at maxItems per window.
func NewContextSelector(newsRepo repository.NewsRepository, maxItems int) *ContextSelector {
	if maxItems <= 0 {
		maxItems = 10
	}
	return &ContextSelector{newsRepo: newsRepo, maxItems: maxItems}
}

// Select returns same-symbol articles published in
// [published_at - lookback, published_at), most recent first. The target
// article's own publication instant is excluded, so nothing published at or
// after it can leak into its context.
func (s *ContextSelector) Select(ctx context.Context, article *entity.NewsArticle, rangeKind ContextRange) ([]entity.NewsArticle, error) {
	end := article.PublishedAt

	var start time.Time
	if rangeKind == RangeAll {
		start = time.Unix(0, 0).UTC()
	} else {
		lookback, ok := lookbacks[rangeKind]
		if !ok {
			return nil, fmt.Errorf("invalid historical context range: %q", rangeKind)
		}
		start = end.Add(-lookback)
	}

	window, err := s.newsRepo.Window(ctx, article.Symbol, start, end, s.maxItems+1)
	if err != nil {
		return nil, err
	}

	// An article sharing the exact publication instant could be the target
	// itself; drop it by id.
	filtered := window[:0]
	for _, item := range window {
		if item.ID == article.ID {
			continue
		}
		filtered = append(filtered, item)
	}
	if len(filtered) > s.maxItems {
		filtered = filtered[:s.maxItems]
	}
	return filtered, nil
}

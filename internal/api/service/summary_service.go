package service

import (
	"context"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/entity"
)

// SentimentSummary aggregates scored news for one symbol over a window.
type SentimentSummary struct {
	Symbol       string         `json:"symbol"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	Articles     int            `json:"articles"`
	Scored       int            `json:"scored"`
	MeanScore    float64        `json:"mean_score"`
	OverallLevel string         `json:"overall_level"`
	LevelCounts  map[string]int `json:"level_counts"`
}

// SummaryService computes read-side sentiment aggregates.
type SummaryService interface {
	Summarize(ctx context.Context, symbol string, from, to time.Time) (*SentimentSummary, error)
}

// NewSummaryService creates a SummaryService over the news store.
func NewSummaryService(newsRepo repository.NewsRepository) SummaryService {
	return &summaryService{newsRepo: newsRepo}
}

type summaryService struct {
	newsRepo repository.NewsRepository
}

func (s *summaryService) Summarize(ctx context.Context, symbol string, from, to time.Time) (*SentimentSummary, error) {
	articles, err := s.newsRepo.Range(ctx, symbol, from, to, 0)
	if err != nil {
		return nil, err
	}

	summary := &SentimentSummary{
		Symbol:      symbol,
		From:        from,
		To:          to,
		Articles:    len(articles),
		LevelCounts: map[string]int{},
	}

	var total float64
	for _, a := range articles {
		if !a.Scored() {
			continue
		}
		summary.Scored++
		total += *a.SentimentScore
		summary.LevelCounts[string(a.SentimentLevel)]++
	}

	if summary.Scored > 0 {
		summary.MeanScore = total / float64(summary.Scored)
		summary.OverallLevel = string(entity.SentimentLevelFromScore(summary.MeanScore))
	}
	return summary, nil
}

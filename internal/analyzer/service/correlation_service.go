package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/utils"
)

// ErrInsufficientData is returned when fewer than two paired observations
// exist for a correlation.
var ErrInsufficientData = errors.New("not enough paired observations")

// CorrelationResult pairs daily mean sentiment with next-day price returns.
type CorrelationResult struct {
	Symbol       string    `json:"symbol"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Pearson      float64   `json:"pearson"`
	Observations int       `json:"observations"`
}

// CorrelationService measures how daily sentiment relates to the following
// day's price move.
type CorrelationService interface {
	Correlate(ctx context.Context, symbol string, from, to time.Time) (*CorrelationResult, error)
}

type correlationService struct {
	newsRepo  repository.NewsRepository
	priceRepo repository.PriceRepository
	logger    *logger.Logger
}

// NewCorrelationService creates a CorrelationService over the news and
// price stores.
func NewCorrelationService(newsRepo repository.NewsRepository, priceRepo repository.PriceRepository, log *logger.Logger) CorrelationService {
	return &correlationService{newsRepo: newsRepo, priceRepo: priceRepo, logger: log}
}

// Correlate computes the Pearson coefficient between the mean sentiment
// score of each day and the close-to-close return of the following trading
// day. Days without scored news or without a next-day price are dropped.
func (s *correlationService) Correlate(ctx context.Context, symbol string, from, to time.Time) (*CorrelationResult, error) {
	articles, err := s.newsRepo.Range(ctx, symbol, from, to, 0)
	if err != nil {
		return nil, err
	}

	sentimentByDay := map[time.Time][]float64{}
	for _, a := range articles {
		if !a.Scored() {
			continue
		}
		day := utils.TruncateToDay(a.PublishedAt, time.UTC)
		sentimentByDay[day] = append(sentimentByDay[day], *a.SentimentScore)
	}
	if len(sentimentByDay) == 0 {
		return nil, fmt.Errorf("%w: no scored news for %s", ErrInsufficientData, symbol)
	}

	// Fetch one extra day of prices so the last sentiment day still has a
	// next-day return.
	bars, err := s.priceRepo.Range(ctx, symbol, from, to.Add(7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: need at least two price bars for %s", ErrInsufficientData, symbol)
	}

	// Next-day return keyed by the sentiment day: the move from that day's
	// close to the next trading day's close.
	returnsByDay := map[time.Time]float64{}
	for i := 0; i < len(bars)-1; i++ {
		if bars[i].Close == 0 {
			continue
		}
		day := utils.TruncateToDay(bars[i].Date, time.UTC)
		returnsByDay[day] = (bars[i+1].Close - bars[i].Close) / bars[i].Close
	}

	days := make([]time.Time, 0, len(sentimentByDay))
	for day := range sentimentByDay {
		if _, ok := returnsByDay[day]; ok {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	if len(days) < 2 {
		return nil, fmt.Errorf("%w: %d paired day(s) for %s", ErrInsufficientData, len(days), symbol)
	}

	xs := make([]float64, len(days))
	ys := make([]float64, len(days))
	for i, day := range days {
		xs[i] = mean(sentimentByDay[day])
		ys[i] = returnsByDay[day]
	}

	r, err := pearson(xs, ys)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Correlation computed",
		logger.StringField("symbol", symbol),
		logger.Float64Field("pearson", r),
		logger.IntField("observations", len(days)),
	)
	return &CorrelationResult{
		Symbol:       symbol,
		From:         from,
		To:           to,
		Pearson:      r,
		Observations: len(days),
	}, nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func pearson(xs, ys []float64) (float64, error) {
	mx, my := mean(xs), mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, fmt.Errorf("%w: zero variance across %d observations", ErrInsufficientData, len(xs))
	}
	return cov / math.Sqrt(varX*varY), nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/collector/config"
	"news-sentiment-tracker/internal/collector/dto"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/utils"

	"github.com/patrickmn/go-cache"
)

const defaultChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// PriceCollector pulls daily OHLCV bars from a Yahoo-chart-shaped endpoint
// and upserts them into the store.
type PriceCollector struct {
	cfg           *config.Config
	logger        *logger.Logger
	priceRepo     repository.PriceRepository
	client        *http.Client
	inmemoryCache *cache.Cache
}

// NewPriceCollector creates a new instance of PriceCollector.
func NewPriceCollector(cfg *config.Config, log *logger.Logger, priceRepo repository.PriceRepository) *PriceCollector {
	return &PriceCollector{
		cfg:           cfg,
		logger:        log,
		priceRepo:     priceRepo,
		client:        &http.Client{Timeout: 30 * time.Second},
		inmemoryCache: cache.New(15*time.Minute, 10*time.Minute),
	}
}

// CollectAll fetches bars for every configured symbol. A per-symbol failure
// is logged and the rest of the run continues.
func (c *PriceCollector) CollectAll(ctx context.Context) error {
	for _, symbol := range c.cfg.Prices.Symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.CollectSymbol(ctx, symbol); err != nil {
			c.logger.Error("Failed to collect prices",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err),
			)
		}
	}
	return nil
}

// CollectSymbol fetches and stores bars for one symbol. Responses are cached
// briefly so repeated runs inside one window skip the network.
func (c *PriceCollector) CollectSymbol(ctx context.Context, symbol string) error {
	cacheKey := fmt.Sprintf("prices:%s:%s", symbol, c.cfg.Prices.Range)
	if _, done := c.inmemoryCache.Get(cacheKey); done {
		c.logger.Debug("Price fetch cached, skipping", logger.StringField("symbol", symbol))
		return nil
	}

	bars, err := c.fetchBars(ctx, symbol)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		c.logger.Warn("No price bars returned", logger.StringField("symbol", symbol))
		return nil
	}

	if err := c.priceRepo.UpsertBars(ctx, bars); err != nil {
		return err
	}

	c.inmemoryCache.Set(cacheKey, struct{}{}, cache.DefaultExpiration)
	c.logger.Info("Price bars stored",
		logger.StringField("symbol", symbol),
		logger.IntField("bars", len(bars)),
	)
	return nil
}

func (c *PriceCollector) fetchBars(ctx context.Context, symbol string) ([]entity.PriceBar, error) {
	baseURL := c.cfg.Prices.BaseURL
	if baseURL == "" {
		baseURL = defaultChartBaseURL
	}

	q := url.Values{}
	q.Set("range", orDefault(c.cfg.Prices.Range, "3mo"))
	q.Set("interval", orDefault(c.cfg.Prices.Interval, "1d"))
	endpoint := fmt.Sprintf("%s/%s?%s", baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart endpoint returned status %d", resp.StatusCode)
	}

	var chart dto.ChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart endpoint error: %s - %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart response has no quote data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]entity.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		bar := entity.PriceBar{
			Symbol: symbol,
			Date:   utils.TruncateToDay(time.Unix(ts, 0).UTC(), time.UTC),
			Close:  quote.Close[i],
		}
		if i < len(quote.Open) {
			bar.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			bar.High = quote.High[i]
		}
		if i < len(quote.Low) {
			bar.Low = quote.Low[i]
		}
		if i < len(quote.Volume) {
			bar.Volume = quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

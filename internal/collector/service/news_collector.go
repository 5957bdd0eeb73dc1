package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/collector/config"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
)

// FeedResult summarizes one feed's collection pass.
type FeedResult struct {
	Symbol      string   `json:"symbol"`
	FeedURL     string   `json:"feed_url"`
	Fetched     int      `json:"fetched"`
	Stored      int      `json:"stored"`
	FailedLinks []string `json:"failed_links,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// NewsCollector pulls configured RSS feeds and upserts new articles into the
// store. Storage is idempotent, so overlapping feeds and reruns are safe.
type NewsCollector struct {
	cfg           *config.Config
	logger        *logger.Logger
	newsRepo      repository.NewsRepository
	client        *http.Client
	inmemoryCache *cache.Cache
}

// NewNewsCollector creates a new instance of NewsCollector.
func NewNewsCollector(cfg *config.Config, log *logger.Logger, newsRepo repository.NewsRepository) *NewsCollector {
	return &NewsCollector{
		cfg:           cfg,
		logger:        log,
		newsRepo:      newsRepo,
		client:        &http.Client{Timeout: 30 * time.Second},
		inmemoryCache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

// CollectAll processes every configured feed with bounded concurrency and
// returns a JSON summary of the run.
func (c *NewsCollector) CollectAll(ctx context.Context) (string, error) {
	maxConcurrent := c.cfg.Collector.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	var results []FeedResult
	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, maxConcurrent)

	for _, feed := range c.cfg.Collector.Feeds {
		if ctx.Err() != nil {
			break
		}
		feed := feed
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result := c.collectFeed(ctx, feed)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		})
	}

	wg.Wait()

	resultJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(resultJSON), nil
}

func (c *NewsCollector) collectFeed(ctx context.Context, feed config.Feed) FeedResult {
	result := FeedResult{Symbol: feed.Symbol, FeedURL: feed.URL}

	c.logger.Info("Processing RSS feed",
		logger.StringField("symbol", feed.Symbol),
		logger.StringField("url", feed.URL),
	)

	fp := gofeed.NewParser()
	parsed, err := fp.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		c.logger.Error("Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("url", feed.URL))
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	sort.Slice(parsed.Items, func(i, j int) bool {
		if parsed.Items[i].PublishedParsed == nil || parsed.Items[j].PublishedParsed == nil {
			return false
		}
		return parsed.Items[i].PublishedParsed.After(*parsed.Items[j].PublishedParsed)
	})

	result.Fetched = len(parsed.Items)
	maxNews := c.cfg.Collector.MaxNewsPerFeed
	if maxNews <= 0 {
		maxNews = 50
	}

	for _, item := range parsed.Items {
		if ctx.Err() != nil {
			return result
		}
		if result.Stored >= maxNews {
			break
		}

		stored, err := c.processItem(ctx, feed.Symbol, item)
		if err != nil {
			result.FailedLinks = append(result.FailedLinks, item.Link)
			result.Errors = append(result.Errors, err.Error())
			c.logger.Error("Failed to process news item", logger.ErrorField(err), logger.StringField("title", item.Title))
			continue
		}
		if stored {
			result.Stored++
			if c.cfg.Collector.DelayInterval > 0 {
				time.Sleep(time.Duration(c.cfg.Collector.DelayInterval) * time.Second)
			}
		}
	}

	return result
}

// processItem validates one feed item and upserts it. Returns true when the
// item was new and stored.
func (c *NewsCollector) processItem(ctx context.Context, symbol string, item *gofeed.Item) (bool, error) {
	if item.PublishedParsed == nil {
		return false, fmt.Errorf("item %q has no parsable published date", item.Title)
	}

	maxAge := c.cfg.Collector.MaxNewsAgeInDays
	if maxAge > 0 && item.PublishedParsed.Before(time.Now().AddDate(0, 0, -maxAge)) {
		return false, nil
	}

	id := entity.NewsID(symbol, *item.PublishedParsed, item.Title)
	if _, seen := c.inmemoryCache.Get(id); seen {
		return false, nil
	}

	linkURL, err := url.Parse(item.Link)
	if err != nil {
		return false, fmt.Errorf("failed to parse item link: %w", err)
	}
	if containsString(c.cfg.Collector.BlacklistedDomains, linkURL.Hostname()) {
		c.logger.Warn("Skip news from blacklisted domain", logger.StringField("domain", linkURL.Hostname()))
		return false, nil
	}

	content := item.Description
	if c.cfg.Collector.FetchFullContent {
		full, err := c.extractContent(ctx, item.Link)
		if err != nil {
			c.logger.Warn("Falling back to feed description",
				logger.StringField("url", item.Link),
				logger.ErrorField(err),
			)
		} else {
			content = full
		}
	}

	article := &entity.NewsArticle{
		ID:          id,
		Symbol:      symbol,
		Title:       item.Title,
		Content:     content,
		Source:      linkURL.Hostname(),
		URL:         item.Link,
		PublishedAt: item.PublishedParsed.UTC(),
	}

	if _, err := c.newsRepo.Upsert(ctx, article); err != nil {
		return false, err
	}

	c.inmemoryCache.Set(id, struct{}{}, cache.DefaultExpiration)
	return true, nil
}

// extractContent fetches the article page and strips it down to readable
// text.
func (c *NewsCollector) extractContent(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for news item: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch news content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch news content, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse news content: %w", err)
	}

	docHTML, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(doc.Content())))
	if err != nil {
		return "", fmt.Errorf("failed to parse extracted content: %w", err)
	}
	return docHTML.Text(), nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

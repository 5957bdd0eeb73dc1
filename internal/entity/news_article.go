package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// AnalyzerType identifies which analyzer produced a sentiment result.
type AnalyzerType string

const (
	AnalyzerLexical AnalyzerType = "lexical"
	AnalyzerLLM     AnalyzerType = "llm"
)

// NewsArticle represents one ingested news item and, once scored, its
// sentiment result. Sentiment fields stay empty until a scoring pass sets
// all four of them together.
type NewsArticle struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	Symbol         string         `gorm:"index:idx_news_symbol_published;not null" json:"symbol"`
	PublishedAt    time.Time      `gorm:"index:idx_news_symbol_published;not null" json:"published_at"`
	Title          string         `gorm:"not null" json:"title"`
	Content        string         `json:"content"`
	Source         string         `json:"source"`
	URL            string         `json:"url,omitempty"`
	SentimentLevel SentimentLevel `json:"sentiment_level,omitempty"`
	SentimentScore *float64       `json:"sentiment_score,omitempty"`
	Explanation    string         `json:"explanation,omitempty"`
	AnalyzerUsed   AnalyzerType   `json:"analyzer_used,omitempty"`
	ContextIDs     datatypes.JSON `json:"context_ids,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the NewsArticle model.
func (NewsArticle) TableName() string {
	return "news"
}

// Scored reports whether a sentiment pass has completed for this article.
func (a *NewsArticle) Scored() bool {
	return a.SentimentScore != nil
}

// NewsID derives the stable article identifier from symbol, publication
// date and title. Re-ingesting the same article always yields the same id.
func NewsID(symbol string, publishedAt time.Time, title string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", symbol, publishedAt.UTC().Format("2006-01-02"), title)))
	return hex.EncodeToString(sum[:16])
}

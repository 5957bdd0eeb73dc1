package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"news-sentiment-tracker/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SentimentUpdate carries the full set of sentiment fields written in one
// atomic update. Partial sentiment state is never persisted.
type SentimentUpdate struct {
	Level       entity.SentimentLevel
	Score       float64
	Explanation string
	Analyzer    entity.AnalyzerType
	ContextIDs  []string
}

// NewsRepository defines the interface for interacting with stored news.
type NewsRepository interface {
	Upsert(ctx context.Context, article *entity.NewsArticle) (*entity.NewsArticle, error)
	UpdateSentiment(ctx context.Context, id string, update SentimentUpdate) error
	Range(ctx context.Context, symbol string, from, to time.Time, limit int) ([]entity.NewsArticle, error)
	Window(ctx context.Context, symbol string, start, end time.Time, limit int) ([]entity.NewsArticle, error)
	FindUnscored(ctx context.Context, symbol string, limit int) ([]entity.NewsArticle, error)
	CountBySymbol(ctx context.Context, symbol string) (int64, error)
}

// NewNewsRepository creates a new instance of NewsRepository.
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

type newsRepository struct {
	db *gorm.DB
}

// Upsert inserts the article if its id is absent and returns the stored
// row. An existing row is returned unchanged, so re-ingesting an already
// scored article never wipes its sentiment fields.
func (r *newsRepository) Upsert(ctx context.Context, article *entity.NewsArticle) (*entity.NewsArticle, error) {
	if article.ID == "" {
		article.ID = entity.NewsID(article.Symbol, article.PublishedAt, article.Title)
	}

	var stored entity.NewsArticle
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(article).Error; err != nil {
			return err
		}
		return tx.First(&stored, "id = ?", article.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert news article: %w", err)
	}
	return &stored, nil
}

// UpdateSentiment atomically sets the sentiment fields for one article.
// This is the only mutation path for stored news.
func (r *newsRepository) UpdateSentiment(ctx context.Context, id string, update SentimentUpdate) error {
	values := map[string]interface{}{
		"sentiment_level": update.Level,
		"sentiment_score": update.Score,
		"explanation":     update.Explanation,
		"analyzer_used":   update.Analyzer,
	}
	if update.ContextIDs != nil {
		raw, err := json.Marshal(update.ContextIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal context ids: %w", err)
		}
		values["context_ids"] = datatypes.JSON(raw)
	}

	tx := r.db.WithContext(ctx).Model(&entity.NewsArticle{}).Where("id = ?", id).Updates(values)
	if tx.Error != nil {
		return fmt.Errorf("failed to update sentiment: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNewsNotFound, id)
	}
	return nil
}

// Range returns articles for a symbol with inclusive date bounds, newest
// first. Ties on published_at break on id so the ordering is deterministic.
func (r *newsRepository) Range(ctx context.Context, symbol string, from, to time.Time, limit int) ([]entity.NewsArticle, error) {
	var articles []entity.NewsArticle
	q := r.db.WithContext(ctx).
		Where("symbol = ? AND published_at >= ? AND published_at <= ?", symbol, from, to).
		Order("published_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to query news range: %w", err)
	}
	return articles, nil
}

// Window returns articles in [start, end), newest first. The exclusive
// upper bound is what keeps future items out of historical context.
func (r *newsRepository) Window(ctx context.Context, symbol string, start, end time.Time, limit int) ([]entity.NewsArticle, error) {
	var articles []entity.NewsArticle
	q := r.db.WithContext(ctx).
		Where("symbol = ? AND published_at >= ? AND published_at < ?", symbol, start, end).
		Order("published_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to query news window: %w", err)
	}
	return articles, nil
}

// FindUnscored returns articles that have not been through a scoring pass,
// oldest first so context accumulates in publication order.
func (r *newsRepository) FindUnscored(ctx context.Context, symbol string, limit int) ([]entity.NewsArticle, error) {
	var articles []entity.NewsArticle
	q := r.db.WithContext(ctx).
		Where("sentiment_score IS NULL").
		Order("published_at ASC, id ASC")
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to query unscored news: %w", err)
	}
	return articles, nil
}

func (r *newsRepository) CountBySymbol(ctx context.Context, symbol string) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&entity.NewsArticle{})
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count news: %w", err)
	}
	return count, nil
}

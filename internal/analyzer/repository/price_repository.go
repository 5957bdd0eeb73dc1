package repository

import (
	"context"
	"fmt"
	"time"

	"news-sentiment-tracker/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceRepository defines the interface for stored daily price bars.
type PriceRepository interface {
	UpsertBars(ctx context.Context, bars []entity.PriceBar) error
	Range(ctx context.Context, symbol string, from, to time.Time) ([]entity.PriceBar, error)
}

// NewPriceRepository creates a new instance of PriceRepository.
func NewPriceRepository(db *gorm.DB) PriceRepository {
	return &priceRepository{db: db}
}

type priceRepository struct {
	db *gorm.DB
}

// UpsertBars inserts bars, leaving already stored days untouched.
func (r *priceRepository) UpsertBars(ctx context.Context, bars []entity.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&bars).Error
	if err != nil {
		return fmt.Errorf("failed to upsert price bars: %w", err)
	}
	return nil
}

// Range returns bars for a symbol ordered by date ascending.
func (r *priceRepository) Range(ctx context.Context, symbol string, from, to time.Time) ([]entity.PriceBar, error) {
	var bars []entity.PriceBar
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND date >= ? AND date <= ?", symbol, from, to).
		Order("date ASC").
		Find(&bars).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	return bars, nil
}

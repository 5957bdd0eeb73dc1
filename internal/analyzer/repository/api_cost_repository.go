package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/utils"

	"gorm.io/gorm"
)

// DailyCost aggregates ledger entries for one calendar day.
type DailyCost struct {
	Date             time.Time `json:"date"`
	Requests         int       `json:"requests"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
}

// SymbolCost aggregates ledger entries for one symbol.
type SymbolCost struct {
	Symbol   string  `json:"symbol"`
	Requests int     `json:"requests"`
	CostUSD  float64 `json:"cost_usd"`
}

// APICostRepository defines the interface for the append-only cost ledger.
type APICostRepository interface {
	Record(ctx context.Context, record *entity.APICost) error
	SumForDay(ctx context.Context, day time.Time, loc *time.Location) (float64, error)
	Total(ctx context.Context) (float64, error)
	DailyTotals(ctx context.Context, days int, loc *time.Location) ([]DailyCost, error)
	TotalsBySymbol(ctx context.Context) ([]SymbolCost, error)
}

// NewAPICostRepository creates a new instance of APICostRepository.
func NewAPICostRepository(db *gorm.DB) APICostRepository {
	return &apiCostRepository{db: db}
}

type apiCostRepository struct {
	db *gorm.DB
}

// Record appends one ledger entry. A replayed call id is rejected with
// ErrDuplicateCostRecord so a retried scoring pass can never double-charge.
func (r *apiCostRepository) Record(ctx context.Context, record *entity.APICost) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			return fmt.Errorf("%w: %s", ErrDuplicateCostRecord, record.CallID)
		}
		return fmt.Errorf("failed to record api cost: %w", err)
	}
	return nil
}

// SumForDay returns the total spend for the calendar day containing the
// given instant. The sum is recomputed from the ledger on every call; there
// is no cached running total to drift.
func (r *apiCostRepository) SumForDay(ctx context.Context, day time.Time, loc *time.Location) (float64, error) {
	start, end := utils.DayBounds(day, loc)

	var total float64
	err := r.db.WithContext(ctx).Model(&entity.APICost{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum costs for day: %w", err)
	}
	return total, nil
}

func (r *apiCostRepository) Total(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&entity.APICost{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum total costs: %w", err)
	}
	return total, nil
}

// DailyTotals aggregates the last N days of the ledger. Bucketing happens
// in Go so the query stays identical across sqlite and postgres.
func (r *apiCostRepository) DailyTotals(ctx context.Context, days int, loc *time.Location) ([]DailyCost, error) {
	cutoff := utils.TruncateToDay(time.Now().In(loc), loc).AddDate(0, 0, -(days - 1))

	var records []entity.APICost
	if err := r.db.WithContext(ctx).
		Where("timestamp >= ?", cutoff).
		Order("timestamp ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load cost records: %w", err)
	}

	buckets := make(map[time.Time]*DailyCost)
	var order []time.Time
	for _, rec := range records {
		day := utils.TruncateToDay(rec.Timestamp, loc)
		bucket, ok := buckets[day]
		if !ok {
			bucket = &DailyCost{Date: day}
			buckets[day] = bucket
			order = append(order, day)
		}
		bucket.Requests++
		bucket.PromptTokens += rec.PromptTokens
		bucket.CompletionTokens += rec.CompletionTokens
		bucket.CostUSD += rec.CostUSD
	}

	totals := make([]DailyCost, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		totals = append(totals, *buckets[order[i]])
	}
	return totals, nil
}

func (r *apiCostRepository) TotalsBySymbol(ctx context.Context) ([]SymbolCost, error) {
	var totals []SymbolCost
	err := r.db.WithContext(ctx).Model(&entity.APICost{}).
		Select("symbol, COUNT(*) AS requests, SUM(cost_usd) AS cost_usd").
		Where("symbol <> ''").
		Group("symbol").
		Order("cost_usd DESC").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate costs by symbol: %w", err)
	}
	return totals, nil
}

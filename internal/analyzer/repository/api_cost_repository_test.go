package repository

import (
	"context"
	"testing"
	"time"

	"news-sentiment-tracker/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCostRecord(callID, symbol string, ts time.Time, cost float64) *entity.APICost {
	return &entity.APICost{
		CallID:           callID,
		Timestamp:        ts,
		Symbol:           symbol,
		ModelName:        "gpt-3.5-turbo",
		PromptTokens:     100,
		CompletionTokens: 50,
		CostUSD:          cost,
	}
}

func TestRecordRejectsDuplicateCallID(t *testing.T) {
	repo := NewAPICostRepository(newTestDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Record(ctx, newCostRecord("call-1", "AAPL", now, 0.01)))

	err := repo.Record(ctx, newCostRecord("call-1", "AAPL", now, 0.01))
	assert.ErrorIs(t, err, ErrDuplicateCostRecord)

	total, err := repo.Total(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, total, 1e-9)
}

func TestSumForDayBounds(t *testing.T) {
	repo := NewAPICostRepository(newTestDB(t))
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Record(ctx, newCostRecord("call-1", "AAPL", day, 0.5)))
	require.NoError(t, repo.Record(ctx, newCostRecord("call-2", "AAPL", day.Add(11*time.Hour), 0.25)))
	// Previous and next day must not count.
	require.NoError(t, repo.Record(ctx, newCostRecord("call-3", "AAPL", day.AddDate(0, 0, -1), 1.0)))
	require.NoError(t, repo.Record(ctx, newCostRecord("call-4", "AAPL", day.AddDate(0, 0, 1), 1.0)))

	total, err := repo.SumForDay(ctx, day, time.UTC)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, total, 1e-9)
}

func TestSumForDayEmptyLedger(t *testing.T) {
	repo := NewAPICostRepository(newTestDB(t))

	total, err := repo.SumForDay(context.Background(), time.Now(), time.UTC)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTotalsBySymbol(t *testing.T) {
	repo := NewAPICostRepository(newTestDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Record(ctx, newCostRecord("call-1", "AAPL", now, 0.2)))
	require.NoError(t, repo.Record(ctx, newCostRecord("call-2", "AAPL", now, 0.3)))
	require.NoError(t, repo.Record(ctx, newCostRecord("call-3", "MSFT", now, 0.1)))

	totals, err := repo.TotalsBySymbol(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, "AAPL", totals[0].Symbol)
	assert.Equal(t, 2, totals[0].Requests)
	assert.InDelta(t, 0.5, totals[0].CostUSD, 1e-9)
	assert.Equal(t, "MSFT", totals[1].Symbol)
}

func TestDailyTotalsBucketsByDay(t *testing.T) {
	repo := NewAPICostRepository(newTestDB(t))
	ctx := context.Background()

	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)
	require.NoError(t, repo.Record(ctx, newCostRecord("call-1", "AAPL", today, 0.2)))
	require.NoError(t, repo.Record(ctx, newCostRecord("call-2", "AAPL", today, 0.3)))
	require.NoError(t, repo.Record(ctx, newCostRecord("call-3", "AAPL", yesterday, 0.1)))

	totals, err := repo.DailyTotals(ctx, 7, time.UTC)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	// Newest day first.
	assert.Equal(t, 2, totals[0].Requests)
	assert.InDelta(t, 0.5, totals[0].CostUSD, 1e-9)
	assert.Equal(t, 1, totals[1].Requests)
	assert.InDelta(t, 0.1, totals[1].CostUSD, 1e-9)
}

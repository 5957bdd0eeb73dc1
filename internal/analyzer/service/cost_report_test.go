package service

import (
	"context"
	"testing"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCostReport(t *testing.T) {
	db := newTestDB(t)
	costs := repository.NewAPICostRepository(db)
	ctx := context.Background()

	require.NoError(t, costs.Record(ctx, &entity.APICost{
		CallID:           "call-1",
		Timestamp:        time.Now(),
		Symbol:           "AAPL",
		ModelName:        "gpt-3.5-turbo",
		PromptTokens:     800,
		CompletionTokens: 200,
		CostUSD:          0.0016,
	}))
	require.NoError(t, costs.Record(ctx, &entity.APICost{
		CallID:    "call-2",
		Timestamp: time.Now(),
		Symbol:    "MSFT",
		ModelName: "gpt-3.5-turbo",
		CostUSD:   0.001,
	}))

	report, err := NewCostReportService(costs, time.UTC).Generate(ctx, 7)
	require.NoError(t, err)

	assert.Contains(t, report, "# API Cost Report")
	assert.Contains(t, report, "$0.0026")
	assert.Contains(t, report, "| AAPL | 1 | $0.0016 |")
	assert.Contains(t, report, "| MSFT | 1 | $0.0010 |")
}

func TestGenerateCostReportEmptyLedger(t *testing.T) {
	db := newTestDB(t)
	costs := repository.NewAPICostRepository(db)

	report, err := NewCostReportService(costs, time.UTC).Generate(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, report, "No API calls recorded.")
}

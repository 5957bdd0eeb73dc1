package budget

import (
	"context"
	"testing"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestLedger(t *testing.T, cfg Config) (*Ledger, repository.APICostRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.APICost{}))

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	costs := repository.NewAPICostRepository(db)
	ledger, err := NewLedger(costs, log, cfg)
	require.NoError(t, err)
	return ledger, costs
}

func spend(t *testing.T, costs repository.APICostRepository, callID string, cost float64) {
	t.Helper()
	require.NoError(t, costs.Record(context.Background(), &entity.APICost{
		CallID:    callID,
		Timestamp: time.Now(),
		Symbol:    "AAPL",
		ModelName: "gpt-3.5-turbo",
		CostUSD:   cost,
	}))
}

func TestEstimateCost(t *testing.T) {
	ledger, _ := newTestLedger(t, Config{DailyLimitUSD: 5, AlertThreshold: 80, Timezone: "UTC"})

	// gpt-3.5-turbo: 0.0015 per 1K prompt, 0.002 per 1K completion.
	cost, err := ledger.EstimateCost("gpt-3.5-turbo", 1000, 500)
	require.NoError(t, err)
	assert.InDelta(t, 0.0015+0.001, cost, 1e-9)
}

func TestEstimateCostUnknownModel(t *testing.T) {
	ledger, _ := newTestLedger(t, Config{DailyLimitUSD: 5, AlertThreshold: 80, Timezone: "UTC"})

	_, err := ledger.EstimateCost("gpt-99", 1000, 500)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestAuthorizeDeniesOverLimit(t *testing.T) {
	ledger, costs := newTestLedger(t, Config{DailyLimitUSD: 5.0, AlertThreshold: 80, Timezone: "UTC"})
	spend(t, costs, "prior", 4.5)

	decision, err := ledger.Authorize(context.Background(), 0.6)
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, decision)
}

func TestAuthorizeAlertsNearLimit(t *testing.T) {
	ledger, costs := newTestLedger(t, Config{DailyLimitUSD: 5.0, AlertThreshold: 80, Timezone: "UTC"})
	spend(t, costs, "prior", 4.5)

	decision, err := ledger.Authorize(context.Background(), 0.4)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllowWithAlert, decision)
}

func TestAuthorizeAllowsBelowThreshold(t *testing.T) {
	ledger, costs := newTestLedger(t, Config{DailyLimitUSD: 5.0, AlertThreshold: 80, Timezone: "UTC"})
	spend(t, costs, "prior", 2.0)

	decision, err := ledger.Authorize(context.Background(), 0.1)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestAuthorizeUnlimitedWhenNoLimit(t *testing.T) {
	ledger, costs := newTestLedger(t, Config{DailyLimitUSD: 0, AlertThreshold: 80, Timezone: "UTC"})
	spend(t, costs, "prior", 1000)

	decision, err := ledger.Authorize(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestCommitPersistsActualCost(t *testing.T) {
	ledger, costs := newTestLedger(t, Config{DailyLimitUSD: 5.0, AlertThreshold: 80, Timezone: "UTC"})

	cost, err := ledger.Commit(context.Background(), NewCallID(), "AAPL", "gpt-4", "news-1", 2000, 1000)
	require.NoError(t, err)
	// gpt-4: 0.03 per 1K prompt, 0.06 per 1K completion.
	assert.InDelta(t, 0.06+0.06, cost, 1e-9)

	total, err := costs.Total(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, cost, total, 1e-9)
}

func TestCommitIgnoresReplayedCallID(t *testing.T) {
	ledger, costs := newTestLedger(t, Config{DailyLimitUSD: 5.0, AlertThreshold: 80, Timezone: "UTC"})

	callID := NewCallID()
	first, err := ledger.Commit(context.Background(), callID, "AAPL", "gpt-3.5-turbo", "news-1", 100, 50)
	require.NoError(t, err)

	second, err := ledger.Commit(context.Background(), callID, "AAPL", "gpt-3.5-turbo", "news-1", 100, 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	total, err := costs.Total(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, first, total, 1e-9)
}

func TestCommitRefusesUnknownModel(t *testing.T) {
	ledger, _ := newTestLedger(t, Config{DailyLimitUSD: 5.0, AlertThreshold: 80, Timezone: "UTC"})

	_, err := ledger.Commit(context.Background(), NewCallID(), "AAPL", "gpt-99", "news-1", 100, 50)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

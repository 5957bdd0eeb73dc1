// Package budget enforces the daily spending limit for paid model calls.
// Spend is always recomputed from the append-only cost ledger, never cached.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/logger"

	"github.com/google/uuid"
)

// ErrUnknownModel is returned when a model has no entry in the price table.
// Callers must not proceed with an unpriced call.
var ErrUnknownModel = errors.New("model not in price table")

// Decision is the outcome of an authorization check. Denial is normal
// control flow, not an error.
type Decision string

const (
	DecisionAllow          Decision = "allow"
	DecisionAllowWithAlert Decision = "allow_with_alert"
	DecisionDeny           Decision = "deny"
)

// ModelPrice holds USD rates per 1000 tokens.
type ModelPrice struct {
	PromptPer1K     float64
	CompletionPer1K float64
}

// PriceTableVersion identifies the rates below. Historical cost records are
// never recomputed when the table changes.
const PriceTableVersion = "2024-03"

var priceTable = map[string]ModelPrice{
	"gpt-3.5-turbo":    {PromptPer1K: 0.0015, CompletionPer1K: 0.002},
	"gpt-4":            {PromptPer1K: 0.03, CompletionPer1K: 0.06},
	"gpt-4-turbo":      {PromptPer1K: 0.01, CompletionPer1K: 0.03},
	"gemini-1.5-flash": {PromptPer1K: 0.000075, CompletionPer1K: 0.0003},
	"gemini-1.5-pro":   {PromptPer1K: 0.00125, CompletionPer1K: 0.005},
}

// Config holds the ledger limits. A DailyLimitUSD of 0 means unlimited.
type Config struct {
	DailyLimitUSD  float64
	AlertThreshold float64
	Timezone       string
}

// Ledger authorizes paid calls against the daily limit and commits their
// actual cost to the store.
type Ledger struct {
	costs  repository.APICostRepository
	logger *logger.Logger
	cfg    Config
	loc    *time.Location
}

// NewLedger creates a budget ledger over the given cost repository.
func NewLedger(costs repository.APICostRepository, log *logger.Logger, cfg Config) (*Ledger, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid budget timezone %q: %w", cfg.Timezone, err)
		}
	}
	return &Ledger{costs: costs, logger: log, cfg: cfg, loc: loc}, nil
}

// EstimateCost prices a prospective call from token estimates.
func (l *Ledger) EstimateCost(modelName string, promptTokens, completionTokens int) (float64, error) {
	price, ok := priceTable[modelName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModel, modelName)
	}
	return float64(promptTokens)/1000*price.PromptPer1K + float64(completionTokens)/1000*price.CompletionPer1K, nil
}

// Authorize checks an estimated cost against today's spend. Two concurrent
// authorizations can both observe pre-call spend; each call is small against
// the daily limit, so the overshoot window is accepted and bounded.
func (l *Ledger) Authorize(ctx context.Context, estimatedCost float64) (Decision, error) {
	if l.cfg.DailyLimitUSD == 0 {
		return DecisionAllow, nil
	}

	todaySpend, err := l.costs.SumForDay(ctx, time.Now(), l.loc)
	if err != nil {
		return DecisionDeny, fmt.Errorf("failed to compute today's spend: %w", err)
	}

	projected := todaySpend + estimatedCost
	if projected > l.cfg.DailyLimitUSD {
		l.logger.Warn("Budget denied",
			logger.Float64Field("today_spend", todaySpend),
			logger.Float64Field("estimated_cost", estimatedCost),
			logger.Float64Field("daily_limit", l.cfg.DailyLimitUSD),
		)
		return DecisionDeny, nil
	}

	if l.cfg.AlertThreshold > 0 && projected/l.cfg.DailyLimitUSD*100 >= l.cfg.AlertThreshold {
		return DecisionAllowWithAlert, nil
	}

	return DecisionAllow, nil
}

// Commit prices a completed call from the actual token counts and appends
// it to the ledger. The persisted value is authoritative; the earlier
// estimate is discarded. A replayed call id is logged and ignored.
func (l *Ledger) Commit(ctx context.Context, callID, symbol, modelName, newsID string, promptTokens, completionTokens int) (float64, error) {
	cost, err := l.EstimateCost(modelName, promptTokens, completionTokens)
	if err != nil {
		return 0, err
	}

	record := &entity.APICost{
		CallID:           callID,
		Timestamp:        time.Now(),
		Symbol:           symbol,
		ModelName:        modelName,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD:          cost,
		NewsID:           newsID,
	}

	if err := l.costs.Record(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateCostRecord) {
			l.logger.Warn("Cost record replay ignored", logger.StringField("call_id", callID))
			return cost, nil
		}
		return 0, err
	}

	l.logger.Info("API call cost recorded",
		logger.StringField("call_id", callID),
		logger.StringField("model", modelName),
		logger.IntField("prompt_tokens", promptTokens),
		logger.IntField("completion_tokens", completionTokens),
		logger.Float64Field("cost_usd", cost),
	)
	return cost, nil
}

// NewCallID generates a unique id for one external call.
func NewCallID() string {
	return uuid.NewString()
}

// EstimateTokens approximates the token count of a prompt. Four characters
// per token is close enough for budget estimates on English text.
func EstimateTokens(text string) int {
	return len(text)/4 + 1
}

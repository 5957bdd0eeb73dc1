package dto

import (
	"news-sentiment-tracker/internal/entity"
)

// ScoreRequest carries one article plus its historical context to an
// external scorer.
type ScoreRequest struct {
	Article *entity.NewsArticle
	Context []entity.NewsArticle
	// Strict asks the model to answer with nothing but the JSON object.
	// Set on the retry after a parse failure.
	Strict bool
}

// SentimentResult is the structured payload parsed from a scorer response.
type SentimentResult struct {
	Level       string  `json:"level"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// ScoreResponse is a parsed scorer response together with the token usage
// reported by the provider.
type ScoreResponse struct {
	Result           SentimentResult
	PromptTokens     int
	CompletionTokens int
}

// ScoringState tracks an article through the scoring state machine.
type ScoringState string

const (
	StateUnscored        ScoringState = "unscored"
	StateContextGathered ScoringState = "context_gathered"
	StateBudgetChecked   ScoringState = "budget_checked"
	StateScored          ScoringState = "scored"
	StateFallbackScored  ScoringState = "fallback_scored"
	StateSkipped         ScoringState = "skipped"
)

// ScoreOutcome summarizes how one article finished the state machine.
type ScoreOutcome struct {
	NewsID      string       `json:"news_id"`
	Symbol      string       `json:"symbol"`
	State       ScoringState `json:"state"`
	CostUSD     float64      `json:"cost_usd,omitempty"`
	BudgetAlert bool         `json:"budget_alert,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// BatchSummary aggregates the outcomes of one scoring batch.
type BatchSummary struct {
	Scored         int     `json:"scored"`
	FallbackScored int     `json:"fallback_scored"`
	Skipped        int     `json:"skipped"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
}

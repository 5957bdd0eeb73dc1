package entity

import (
	"time"
)

// APICost is one immutable ledger entry for a paid external model call.
// Rows are append-only: the cost computed at write time stays authoritative
// even if the price table changes later.
type APICost struct {
	CallID           string    `gorm:"primaryKey" json:"call_id"`
	Timestamp        time.Time `gorm:"index;not null" json:"timestamp"`
	Symbol           string    `gorm:"index" json:"symbol"`
	ModelName        string    `gorm:"not null" json:"model_name"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `gorm:"not null" json:"cost_usd"`
	NewsID           string    `gorm:"index" json:"news_id"`
}

// TableName specifies the table name for the APICost model.
func (APICost) TableName() string {
	return "api_costs"
}

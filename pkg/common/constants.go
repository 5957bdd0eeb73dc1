package common

const (
	RedisStreamBudgetWarning  = "sentiment.budget.warning"
	RedisStreamScoringFailure = "sentiment.scoring.failure"
)

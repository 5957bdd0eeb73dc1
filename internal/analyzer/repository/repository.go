package repository

import (
	"context"
	"time"

	"news-sentiment-tracker/internal/analyzer/dto"
)

// defaultMaxRequestPerMinute applies when the per-minute request cap is
// missing from config.
const defaultMaxRequestPerMinute = 60

// AIRepository defines the external scoring boundary. Any provider that can
// turn an article plus context into a five-level sentiment result with token
// usage is substitutable here.
type AIRepository interface {
	ScoreSentiment(ctx context.Context, req *dto.ScoreRequest) (*dto.ScoreResponse, error)
	ModelName() string
}

// requestInterval converts a requests-per-minute cap into the pacing
// interval for the request limiter. A zero or negative cap falls back to the
// default instead of dividing by zero.
func requestInterval(maxPerMinute int) time.Duration {
	if maxPerMinute <= 0 {
		maxPerMinute = defaultMaxRequestPerMinute
	}
	return time.Minute / time.Duration(maxPerMinute)
}

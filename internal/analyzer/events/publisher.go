// Package events publishes outbound signals for notification collaborators.
package events

import (
	"context"

	"news-sentiment-tracker/pkg/common"
	"news-sentiment-tracker/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Publisher emits budget-warning and scoring-failure signals. Consumers are
// notification and logging collaborators, not part of the scoring core.
type Publisher interface {
	BudgetWarning(ctx context.Context, symbol string, estimatedCost, dailyLimit float64)
	ScoringFailure(ctx context.Context, newsID, symbol, reason string)
}

// NewRedisPublisher creates a Publisher backed by Redis streams.
func NewRedisPublisher(client *redis.Client, log *logger.Logger, streamMaxLen int64) Publisher {
	return &redisPublisher{client: client, logger: log, streamMaxLen: streamMaxLen}
}

type redisPublisher struct {
	client       *redis.Client
	logger       *logger.Logger
	streamMaxLen int64
}

func (p *redisPublisher) BudgetWarning(ctx context.Context, symbol string, estimatedCost, dailyLimit float64) {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamBudgetWarning,
		MaxLen: p.streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"symbol":         symbol,
			"estimated_cost": estimatedCost,
			"daily_limit":    dailyLimit,
		},
	}).Err()
	if err != nil {
		p.logger.Error("Failed to publish budget warning", logger.ErrorField(err))
	}
}

func (p *redisPublisher) ScoringFailure(ctx context.Context, newsID, symbol, reason string) {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamScoringFailure,
		MaxLen: p.streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"news_id": newsID,
			"symbol":  symbol,
			"reason":  reason,
		},
	}).Err()
	if err != nil {
		p.logger.Error("Failed to publish scoring failure", logger.ErrorField(err))
	}
}

// NewNoopPublisher returns a Publisher that discards all signals. Used when
// Redis is not configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

type noopPublisher struct{}

func (noopPublisher) BudgetWarning(context.Context, string, float64, float64) {}
func (noopPublisher) ScoringFailure(context.Context, string, string, string) {}

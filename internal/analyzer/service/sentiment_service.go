package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"news-sentiment-tracker/internal/analyzer/budget"
	"news-sentiment-tracker/internal/analyzer/config"
	"news-sentiment-tracker/internal/analyzer/dto"
	"news-sentiment-tracker/internal/analyzer/events"
	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/lexicon"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/telegram"

	"github.com/cenkalti/backoff/v4"
)

const (
	// maxTransportAttempts bounds retries on transport failures. Parse
	// failures have their own single strict retry and are never transport
	// retried.
	maxTransportAttempts = 3

	defaultRetryInterval = 2 * time.Second
)

// SentimentService drives unscored articles through the scoring state
// machine: gather context, check budget, call the model, persist the result
// or fall back to the lexical analyzer.
type SentimentService interface {
	ScoreArticle(ctx context.Context, article *entity.NewsArticle) dto.ScoreOutcome
	ScoreBatch(ctx context.Context, symbol string) (*dto.BatchSummary, []dto.ScoreOutcome, error)
}

type sentimentService struct {
	cfg       *config.Config
	logger    *logger.Logger
	newsRepo  repository.NewsRepository
	aiRepo    repository.AIRepository
	ledger    *budget.Ledger
	selector  *ContextSelector
	publisher events.Publisher
	notifier  telegram.Notifier
	rangeKind ContextRange

	// retryInterval seeds the exponential backoff between transport
	// attempts.
	retryInterval time.Duration
}

// NewSentimentService wires the scoring pipeline. The configured historical
// context range is validated here so a bad value fails at startup, not per
// article.
func NewSentimentService(
	cfg *config.Config,
	log *logger.Logger,
	newsRepo repository.NewsRepository,
	aiRepo repository.AIRepository,
	ledger *budget.Ledger,
	selector *ContextSelector,
	publisher events.Publisher,
	notifier telegram.Notifier,
) (SentimentService, error) {
	rangeKind, err := ParseContextRange(cfg.Sentiment.HistoricalContextRange)
	if err != nil {
		return nil, err
	}
	return &sentimentService{
		cfg:       cfg,
		logger:    log,
		newsRepo:  newsRepo,
		aiRepo:    aiRepo,
		ledger:    ledger,
		selector:  selector,
		publisher: publisher,
		notifier:  notifier,
		rangeKind: rangeKind,

		retryInterval: defaultRetryInterval,
	}, nil
}

// ScoreBatch scores pending articles oldest first, so earlier articles are
// already in the store as context when later ones are scored. A per-article
// failure skips that article and continues the batch.
func (s *sentimentService) ScoreBatch(ctx context.Context, symbol string) (*dto.BatchSummary, []dto.ScoreOutcome, error) {
	pending, err := s.newsRepo.FindUnscored(ctx, symbol, s.cfg.Sentiment.BatchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load unscored articles: %w", err)
	}

	summary := &dto.BatchSummary{}
	outcomes := make([]dto.ScoreOutcome, 0, len(pending))
	for i := range pending {
		if ctx.Err() != nil {
			return summary, outcomes, ctx.Err()
		}

		outcome := s.ScoreArticle(ctx, &pending[i])
		outcomes = append(outcomes, outcome)

		switch outcome.State {
		case dto.StateScored:
			summary.Scored++
		case dto.StateFallbackScored:
			summary.FallbackScored++
		default:
			summary.Skipped++
		}
		summary.TotalCostUSD += outcome.CostUSD
	}

	s.logger.Info("Scoring batch finished",
		logger.StringField("symbol", symbol),
		logger.IntField("scored", summary.Scored),
		logger.IntField("fallback_scored", summary.FallbackScored),
		logger.IntField("skipped", summary.Skipped),
		logger.Float64Field("total_cost_usd", summary.TotalCostUSD),
	)
	return summary, outcomes, nil
}

// ScoreArticle runs one article through the full state machine. The outcome
// always carries a terminal state; errors along the way degrade to fallback
// or skip rather than aborting.
func (s *sentimentService) ScoreArticle(ctx context.Context, article *entity.NewsArticle) dto.ScoreOutcome {
	outcome := dto.ScoreOutcome{
		NewsID: article.ID,
		Symbol: article.Symbol,
		State:  dto.StateUnscored,
	}

	if article.Scored() {
		outcome.State = dto.StateScored
		return outcome
	}

	historical, err := s.selector.Select(ctx, article, s.rangeKind)
	if err != nil {
		s.logger.Error("Failed to gather historical context",
			logger.StringField("news_id", article.ID),
			logger.ErrorField(err),
		)
		return s.fallbackOrSkip(ctx, article, nil, outcome, "context selection failed: "+err.Error())
	}
	outcome.State = dto.StateContextGathered

	contextIDs := make([]string, len(historical))
	for i, item := range historical {
		contextIDs[i] = item.ID
	}

	req := &dto.ScoreRequest{Article: article, Context: historical}

	estimatedCost, err := s.ledger.EstimateCost(
		s.aiRepo.ModelName(),
		budget.EstimateTokens(repository.BuildSentimentPrompt(req)),
		s.completionTokenEstimate(),
	)
	if err != nil {
		// An unpriced model is a configuration fault. Never call it blind.
		s.logger.Error("Cannot price model call", logger.ErrorField(err))
		return s.fallbackOrSkip(ctx, article, contextIDs, outcome, err.Error())
	}

	decision, err := s.ledger.Authorize(ctx, estimatedCost)
	if err != nil {
		s.logger.Error("Budget authorization failed", logger.ErrorField(err))
		return s.fallbackOrSkip(ctx, article, contextIDs, outcome, err.Error())
	}
	outcome.State = dto.StateBudgetChecked

	switch decision {
	case budget.DecisionDeny:
		return s.fallbackOrSkip(ctx, article, contextIDs, outcome, "daily budget exhausted")
	case budget.DecisionAllowWithAlert:
		outcome.BudgetAlert = true
		s.publisher.BudgetWarning(ctx, article.Symbol, estimatedCost, s.cfg.Budget.DailyLimitUSD)
		s.notify(fmt.Sprintf("*Budget warning*\nDaily spend is approaching the limit of $%.2f", s.cfg.Budget.DailyLimitUSD))
	}

	resp, err := s.invokeScorer(ctx, req)
	if err != nil {
		s.publisher.ScoringFailure(ctx, article.ID, article.Symbol, err.Error())
		return s.fallbackOrSkip(ctx, article, contextIDs, outcome, err.Error())
	}

	level, err := entity.ParseSentimentLevel(resp.Result.Level)
	if err != nil {
		// Both providers validate the level while parsing, but a scorer
		// implementation must not be able to smuggle an unknown level into
		// the store.
		reason := fmt.Sprintf("invalid sentiment level %q", resp.Result.Level)
		s.publisher.ScoringFailure(ctx, article.ID, article.Symbol, reason)
		return s.fallbackOrSkip(ctx, article, contextIDs, outcome, reason)
	}
	update := repository.SentimentUpdate{
		Level:       level,
		Score:       resp.Result.Score,
		Explanation: resp.Result.Explanation,
		Analyzer:    entity.AnalyzerLLM,
		ContextIDs:  contextIDs,
	}
	if err := s.newsRepo.UpdateSentiment(ctx, article.ID, update); err != nil {
		s.logger.Error("Failed to persist sentiment",
			logger.StringField("news_id", article.ID),
			logger.ErrorField(err),
		)
		outcome.Error = err.Error()
		outcome.State = dto.StateSkipped
		return outcome
	}

	cost, err := s.ledger.Commit(ctx, budget.NewCallID(), article.Symbol, s.aiRepo.ModelName(), article.ID, resp.PromptTokens, resp.CompletionTokens)
	if err != nil {
		// The score is already persisted; a cost write failure must be loud
		// because it silently under-counts spend.
		s.logger.Error("Failed to commit call cost",
			logger.StringField("news_id", article.ID),
			logger.ErrorField(err),
		)
	}

	outcome.State = dto.StateScored
	outcome.CostUSD = cost
	return outcome
}

// invokeScorer calls the model with bounded retries. Transport errors back
// off exponentially; a schema violation gets exactly one retry with the
// strict prompt before giving up.
func (s *sentimentService) invokeScorer(ctx context.Context, req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	resp, err := s.invokeOnce(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, repository.ErrUnparsableResponse) {
		return nil, err
	}

	s.logger.Warn("Unparsable scorer response, retrying with strict prompt",
		logger.StringField("news_id", req.Article.ID),
	)
	strictReq := *req
	strictReq.Strict = true
	return s.invokeOnce(ctx, &strictReq)
}

func (s *sentimentService) invokeOnce(ctx context.Context, req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	var resp *dto.ScoreResponse
	operation := func() error {
		r, err := s.aiRepo.ScoreSentiment(ctx, req)
		if err != nil {
			if errors.Is(err, repository.ErrUnparsableResponse) {
				return backoff.Permanent(err)
			}
			s.logger.Warn("Scorer call failed, will retry", logger.ErrorField(err))
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, maxTransportAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// fallbackOrSkip is the terminal path when the model cannot be used. With
// the lexical fallback enabled the article still gets a score; otherwise it
// stays unscored and is picked up by a later batch.
func (s *sentimentService) fallbackOrSkip(ctx context.Context, article *entity.NewsArticle, contextIDs []string, outcome dto.ScoreOutcome, reason string) dto.ScoreOutcome {
	outcome.Error = reason

	if !s.cfg.Sentiment.FallbackToLexical {
		outcome.State = dto.StateSkipped
		s.logger.Warn("Article skipped",
			logger.StringField("news_id", article.ID),
			logger.StringField("reason", reason),
		)
		return outcome
	}

	res := lexicon.Score(article.Title + " " + article.Content)
	update := repository.SentimentUpdate{
		Level:       entity.SentimentLevelFromScore(res.Score),
		Score:       res.Score,
		Explanation: res.Explanation,
		Analyzer:    entity.AnalyzerLexical,
		ContextIDs:  contextIDs,
	}
	if err := s.newsRepo.UpdateSentiment(ctx, article.ID, update); err != nil {
		s.logger.Error("Failed to persist fallback sentiment",
			logger.StringField("news_id", article.ID),
			logger.ErrorField(err),
		)
		outcome.State = dto.StateSkipped
		outcome.Error = err.Error()
		return outcome
	}

	s.logger.Info("Article scored by lexical fallback",
		logger.StringField("news_id", article.ID),
		logger.StringField("reason", reason),
	)
	outcome.State = dto.StateFallbackScored
	return outcome
}

func (s *sentimentService) completionTokenEstimate() int {
	if s.cfg.OpenAI.MaxTokens > 0 {
		return s.cfg.OpenAI.MaxTokens
	}
	return 500
}

func (s *sentimentService) notify(text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(text); err != nil {
		s.logger.Error("Failed to send Telegram notification", logger.ErrorField(err))
	}
}

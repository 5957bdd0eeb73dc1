package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"news-sentiment-tracker/internal/analyzer/budget"
	"news-sentiment-tracker/internal/analyzer/config"
	"news-sentiment-tracker/internal/analyzer/dto"
	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAIRepository struct {
	model     string
	responses []func(req *dto.ScoreRequest) (*dto.ScoreResponse, error)
	requests  []dto.ScoreRequest
}

func (f *fakeAIRepository) ModelName() string { return f.model }

func (f *fakeAIRepository) ScoreSentiment(ctx context.Context, req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	f.requests = append(f.requests, *req)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no response scripted")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next(req)
}

func scriptedSuccess(level string, score float64, tokens int) func(req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	return func(*dto.ScoreRequest) (*dto.ScoreResponse, error) {
		return &dto.ScoreResponse{
			Result:           dto.SentimentResult{Level: level, Score: score, Explanation: "scripted"},
			PromptTokens:     tokens,
			CompletionTokens: tokens / 2,
		}, nil
	}
}

func scriptedParseError() func(req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	return func(*dto.ScoreRequest) (*dto.ScoreResponse, error) {
		return nil, fmt.Errorf("%w: scripted garbage", repository.ErrUnparsableResponse)
	}
}

func scriptedTransportError() func(req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	return func(*dto.ScoreRequest) (*dto.ScoreResponse, error) {
		return nil, fmt.Errorf("connection refused")
	}
}

type recordingPublisher struct {
	budgetWarnings  int
	scoringFailures int
}

func (p *recordingPublisher) BudgetWarning(context.Context, string, float64, float64) {
	p.budgetWarnings++
}

func (p *recordingPublisher) ScoringFailure(context.Context, string, string, string) {
	p.scoringFailures++
}

type scorerFixture struct {
	svc       SentimentService
	newsRepo  repository.NewsRepository
	costRepo  repository.APICostRepository
	aiRepo    *fakeAIRepository
	publisher *recordingPublisher
}

func newScorerFixture(t *testing.T, fallback bool, dailyLimit float64, responses ...func(req *dto.ScoreRequest) (*dto.ScoreResponse, error)) *scorerFixture {
	t.Helper()

	db := newTestDB(t)
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.OpenAI.Model = "gpt-3.5-turbo"
	cfg.OpenAI.MaxTokens = 500
	cfg.Sentiment.HistoricalContextRange = "week"
	cfg.Sentiment.MaxContextItems = 10
	cfg.Sentiment.FallbackToLexical = fallback
	cfg.Sentiment.BatchSize = 50
	cfg.Budget.DailyLimitUSD = dailyLimit
	cfg.Budget.AlertThreshold = 80
	cfg.Budget.Timezone = "UTC"

	newsRepo := repository.NewNewsRepository(db)
	costRepo := repository.NewAPICostRepository(db)

	ledger, err := budget.NewLedger(costRepo, log, budget.Config{
		DailyLimitUSD:  cfg.Budget.DailyLimitUSD,
		AlertThreshold: cfg.Budget.AlertThreshold,
		Timezone:       cfg.Budget.Timezone,
	})
	require.NoError(t, err)

	aiRepo := &fakeAIRepository{model: "gpt-3.5-turbo", responses: responses}
	publisher := &recordingPublisher{}

	svc, err := NewSentimentService(cfg, log, newsRepo, aiRepo, ledger,
		NewContextSelector(newsRepo, cfg.Sentiment.MaxContextItems),
		publisher, telegram.NoopNotifier{})
	require.NoError(t, err)

	// Keep transport retries fast under test.
	svc.(*sentimentService).retryInterval = time.Millisecond

	return &scorerFixture{
		svc:       svc,
		newsRepo:  newsRepo,
		costRepo:  costRepo,
		aiRepo:    aiRepo,
		publisher: publisher,
	}
}

func (f *scorerFixture) seed(t *testing.T, title string, publishedAt time.Time) *entity.NewsArticle {
	t.Helper()
	return seedArticle(t, f.newsRepo, "AAPL", publishedAt, title)
}

func (f *scorerFixture) reload(t *testing.T, id string) *entity.NewsArticle {
	t.Helper()
	articles, err := f.newsRepo.Range(context.Background(), "AAPL", time.Unix(0, 0), time.Now().AddDate(1, 0, 0), 0)
	require.NoError(t, err)
	for i := range articles {
		if articles[i].ID == id {
			return &articles[i]
		}
	}
	t.Fatalf("article %s not found", id)
	return nil
}

func TestScoreArticleSuccess(t *testing.T) {
	f := newScorerFixture(t, true, 5.0, scriptedSuccess("positive", 0.5, 400))
	article := f.seed(t, "Apple beats earnings", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateScored, outcome.State)
	assert.Greater(t, outcome.CostUSD, 0.0)
	assert.Empty(t, outcome.Error)

	stored := f.reload(t, article.ID)
	require.True(t, stored.Scored())
	assert.Equal(t, entity.SentimentPositive, stored.SentimentLevel)
	assert.Equal(t, 0.5, *stored.SentimentScore)
	assert.Equal(t, entity.AnalyzerLLM, stored.AnalyzerUsed)

	total, err := f.costRepo.Total(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, outcome.CostUSD, total, 1e-9)
}

func TestScoreArticlePassesContextToScorer(t *testing.T) {
	f := newScorerFixture(t, true, 5.0, scriptedSuccess("neutral", 0.0, 100))

	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	f.seed(t, "earlier news", base.AddDate(0, 0, -2))
	target := f.seed(t, "target news", base)

	outcome := f.svc.ScoreArticle(context.Background(), target)
	require.Equal(t, dto.StateScored, outcome.State)

	require.Len(t, f.aiRepo.requests, 1)
	require.Len(t, f.aiRepo.requests[0].Context, 1)
	assert.Equal(t, "earlier news", f.aiRepo.requests[0].Context[0].Title)

	stored := f.reload(t, target.ID)
	assert.NotEmpty(t, stored.ContextIDs)
}

func TestScoreArticleStrictRetryOnParseError(t *testing.T) {
	f := newScorerFixture(t, true, 5.0,
		scriptedParseError(),
		scriptedSuccess("negative", -0.4, 200),
	)
	article := f.seed(t, "Apple misses estimates", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateScored, outcome.State)
	require.Len(t, f.aiRepo.requests, 2)
	assert.False(t, f.aiRepo.requests[0].Strict)
	assert.True(t, f.aiRepo.requests[1].Strict)
}

func TestScoreArticleFallsBackAfterTwoParseErrors(t *testing.T) {
	f := newScorerFixture(t, true, 5.0,
		scriptedParseError(),
		scriptedParseError(),
	)
	article := f.seed(t, "Shares plunge on lawsuit", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateFallbackScored, outcome.State)
	assert.Equal(t, 1, f.publisher.scoringFailures)

	stored := f.reload(t, article.ID)
	require.True(t, stored.Scored())
	assert.Equal(t, entity.AnalyzerLexical, stored.AnalyzerUsed)
	assert.Less(t, *stored.SentimentScore, 0.0)
}

func TestScoreArticleFallsBackWhenScorerUnreachable(t *testing.T) {
	f := newScorerFixture(t, true, 5.0,
		scriptedTransportError(),
		scriptedTransportError(),
		scriptedTransportError(),
	)
	article := f.seed(t, "Apple shares slide on outage", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateFallbackScored, outcome.State)
	assert.Equal(t, 1, f.publisher.scoringFailures)
	assert.Len(t, f.aiRepo.requests, 3, "transport errors are retried up to three attempts")

	stored := f.reload(t, article.ID)
	require.True(t, stored.Scored())
	assert.Equal(t, entity.AnalyzerLexical, stored.AnalyzerUsed)

	// A call that never reached the model costs nothing.
	total, err := f.costRepo.Total(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestScoreArticleSkipsWhenScorerUnreachableWithoutFallback(t *testing.T) {
	f := newScorerFixture(t, false, 5.0,
		scriptedTransportError(),
		scriptedTransportError(),
		scriptedTransportError(),
	)
	article := f.seed(t, "Apple shares slide on outage", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateSkipped, outcome.State)
	assert.Equal(t, 1, f.publisher.scoringFailures)

	// The article stays eligible for the next run.
	stored := f.reload(t, article.ID)
	assert.False(t, stored.Scored())
}

func TestScoreArticleRejectsUnknownLevel(t *testing.T) {
	f := newScorerFixture(t, true, 5.0, scriptedSuccess("euphoric", 0.9, 100))
	article := f.seed(t, "Apple soars", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateFallbackScored, outcome.State)
	assert.Equal(t, 1, f.publisher.scoringFailures)

	stored := f.reload(t, article.ID)
	require.True(t, stored.Scored())
	assert.Equal(t, entity.AnalyzerLexical, stored.AnalyzerUsed)
}

func TestScoreArticleBudgetDeniedFallsBack(t *testing.T) {
	f := newScorerFixture(t, true, 0.000001)
	article := f.seed(t, "Apple surges on record profits", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateFallbackScored, outcome.State)
	assert.Empty(t, f.aiRepo.requests, "model must not be called after a deny")

	stored := f.reload(t, article.ID)
	require.True(t, stored.Scored())
	assert.Equal(t, entity.AnalyzerLexical, stored.AnalyzerUsed)
	assert.Greater(t, *stored.SentimentScore, 0.0)
}

func TestScoreArticleBudgetDeniedSkipsWithoutFallback(t *testing.T) {
	f := newScorerFixture(t, false, 0.000001)
	article := f.seed(t, "Apple surges on record profits", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateSkipped, outcome.State)
	assert.NotEmpty(t, outcome.Error)

	// The article stays eligible for the next run.
	stored := f.reload(t, article.ID)
	assert.False(t, stored.Scored())
}

func TestScoreArticleEmitsBudgetWarning(t *testing.T) {
	f := newScorerFixture(t, true, 5.0, scriptedSuccess("neutral", 0.0, 100))

	// Push today's spend into the alert band.
	require.NoError(t, f.costRepo.Record(context.Background(), &entity.APICost{
		CallID:    "prior",
		Timestamp: time.Now(),
		Symbol:    "AAPL",
		ModelName: "gpt-3.5-turbo",
		CostUSD:   4.5,
	}))

	article := f.seed(t, "Apple steady", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	outcome := f.svc.ScoreArticle(context.Background(), article)

	assert.Equal(t, dto.StateScored, outcome.State)
	assert.True(t, outcome.BudgetAlert)
	assert.Equal(t, 1, f.publisher.budgetWarnings)
}

func TestScoreBatchOldestFirstAndSummary(t *testing.T) {
	f := newScorerFixture(t, true, 5.0,
		scriptedSuccess("positive", 0.5, 100),
		scriptedSuccess("negative", -0.5, 100),
	)

	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	f.seed(t, "newer article", base)
	f.seed(t, "older article", base.AddDate(0, 0, -1))

	summary, outcomes, err := f.svc.ScoreBatch(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Scored)
	assert.Zero(t, summary.Skipped)
	assert.Greater(t, summary.TotalCostUSD, 0.0)

	require.Len(t, outcomes, 2)
	// Oldest article is scored first so it can serve as context for newer ones.
	require.Len(t, f.aiRepo.requests, 2)
	assert.Equal(t, "older article", f.aiRepo.requests[0].Article.Title)
	assert.Equal(t, "newer article", f.aiRepo.requests[1].Article.Title)
	require.Len(t, f.aiRepo.requests[1].Context, 1)
	assert.Equal(t, "older article", f.aiRepo.requests[1].Context[0].Title)
}

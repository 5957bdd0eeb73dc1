package repository

import (
	"context"
	"fmt"

	"news-sentiment-tracker/internal/analyzer/config"
	"news-sentiment-tracker/internal/analyzer/dto"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiAIRepository is an AIRepository backed by the Google Gemini API.
type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates a new instance of geminiAIRepository.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (AIRepository, error) {
	requestLimiter := rate.NewLimiter(rate.Every(requestInterval(cfg.Gemini.MaxRequestPerMinute)), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiAIRepository) ModelName() string {
	return r.cfg.Gemini.Model
}

// ScoreSentiment performs one scoring call against the Gemini API.
func (r *geminiAIRepository) ScoreSentiment(ctx context.Context, req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	prompt := BuildSentimentPrompt(req)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	genResp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Gemini API: %w", err)
	}

	if len(genResp.Candidates) == 0 || genResp.Candidates[0].Content == nil || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content in Gemini response", ErrUnparsableResponse)
	}

	result, err := ParseSentimentJSON(genResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}

	resp := &dto.ScoreResponse{Result: *result}
	if genResp.UsageMetadata != nil {
		resp.PromptTokens = int(genResp.UsageMetadata.PromptTokenCount)
		resp.CompletionTokens = int(genResp.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"news-sentiment-tracker/internal/analyzer/config"
	"news-sentiment-tracker/internal/analyzer/dto"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/logger"
	"news-sentiment-tracker/pkg/ratelimit"

	"golang.org/x/time/rate"
)

type openaiAIRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
}

// NewOpenAIRepository creates an AIRepository backed by the OpenAI chat
// completions API.
func NewOpenAIRepository(cfg *config.Config, log *logger.Logger) AIRepository {
	requestLimiter := rate.NewLimiter(rate.Every(requestInterval(cfg.OpenAI.MaxRequestPerMinute)), 1)

	tokenLimiter := ratelimit.NewTokenLimiter(cfg.OpenAI.MaxTokenPerMinute)

	return &openaiAIRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
	}
}

func (r *openaiAIRepository) ModelName() string {
	return r.cfg.OpenAI.Model
}

// ScoreSentiment sends one scoring request and parses the structured
// result. Schema violations come back wrapped in ErrUnparsableResponse so
// the caller can distinguish them from transport failures.
func (r *openaiAIRepository) ScoreSentiment(ctx context.Context, req *dto.ScoreRequest) (*dto.ScoreResponse, error) {
	prompt := BuildSentimentPrompt(req)

	resp, err := r.sendRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result, err := r.parseSentimentResponse(resp)
	if err != nil {
		return nil, err
	}

	return &dto.ScoreResponse{
		Result:           *result,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (r *openaiAIRepository) sendRequest(ctx context.Context, prompt string) (*dto.OpenAPIRes, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	payload := dto.OpenAPIReq{
		Model: r.cfg.OpenAI.Model,
		Messages: []dto.Message{
			{Role: "system", Content: sentimentSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: r.cfg.OpenAI.Temperature,
		MaxTokens:   r.cfg.OpenAI.MaxTokens,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	r.logger.Debug("Sending request to OpenAI API", logger.StringField("model", r.cfg.OpenAI.Model))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.cfg.OpenAI.BaseURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.cfg.OpenAI.APIKey))

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Error("Received non-OK response from OpenAI API", logger.IntField("status_code", resp.StatusCode))
		return nil, fmt.Errorf("received non-OK response from OpenAI API: %d - %s", resp.StatusCode, string(body))
	}

	var openaiResp dto.OpenAPIRes
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if openaiResp.Usage.TotalTokens > r.cfg.OpenAI.MaxTokenPerMinute/2 {
		r.logger.Warn("Token usage exceeded 50% of the per-minute limit", logger.IntField("remaining", r.tokenLimiter.GetRemaining()))
	}

	if err := r.tokenLimiter.Wait(ctx, openaiResp.Usage.TotalTokens); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}

	return &openaiResp, nil
}

func (r *openaiAIRepository) parseSentimentResponse(resp *dto.OpenAPIRes) (*dto.SentimentResult, error) {
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Content) == 0 {
		return nil, fmt.Errorf("%w: no content in OpenAI response", ErrUnparsableResponse)
	}

	return ParseSentimentJSON(resp.Choices[0].Message.Content)
}

// ParseSentimentJSON extracts and validates the sentiment payload from raw
// model output, tolerating markdown fences and surrounding prose.
func ParseSentimentJSON(raw string) (*dto.SentimentResult, error) {
	jsonString := strings.Trim(raw, "`json\n`")

	// Models sometimes wrap the object in prose; take the outermost braces.
	if start, end := strings.Index(jsonString, "{"), strings.LastIndex(jsonString, "}"); start >= 0 && end > start {
		jsonString = jsonString[start : end+1]
	}

	var result dto.SentimentResult
	if err := json.Unmarshal([]byte(jsonString), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}

	if _, err := entity.ParseSentimentLevel(result.Level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableResponse, err)
	}
	if result.Score < -1.0 || result.Score > 1.0 {
		return nil, fmt.Errorf("%w: score %.3f outside [-1, 1]", ErrUnparsableResponse, result.Score)
	}

	return &result, nil
}

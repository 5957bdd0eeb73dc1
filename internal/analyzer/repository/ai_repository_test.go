package repository

import (
	"testing"
	"time"

	"news-sentiment-tracker/internal/analyzer/config"
	"news-sentiment-tracker/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestInterval(t *testing.T) {
	assert.Equal(t, time.Second, requestInterval(60))
	assert.Equal(t, 2*time.Second, requestInterval(30))

	// A missing or bogus cap must not divide by zero.
	assert.Equal(t, time.Minute/defaultMaxRequestPerMinute, requestInterval(0))
	assert.Equal(t, time.Minute/defaultMaxRequestPerMinute, requestInterval(-5))
}

func TestNewAIRepositoriesTolerateUnsetRateLimits(t *testing.T) {
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.OpenAI.Model = "gpt-3.5-turbo"
	cfg.Gemini.Model = "gemini-1.5-flash"

	openai := NewOpenAIRepository(cfg, log)
	assert.Equal(t, "gpt-3.5-turbo", openai.ModelName())

	gemini, err := NewGeminiAIRepository(cfg, log, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", gemini.ModelName())
}

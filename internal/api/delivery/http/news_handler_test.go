package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/internal/api/service"
	"news-sentiment-tracker/internal/entity"
	"news-sentiment-tracker/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*echo.Echo, repository.NewsRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.NewsArticle{}))

	log, err := logger.New("error", "console")
	require.NoError(t, err)

	newsRepo := repository.NewNewsRepository(db)

	e := echo.New()
	apiV1 := e.Group("/api/v1")
	NewNewsHandler(newsRepo, log).RegisterRoutes(apiV1.Group("/news"))
	NewSentimentHandler(service.NewSummaryService(newsRepo), log).RegisterRoutes(apiV1.Group("/sentiment"))
	return e, newsRepo
}

func seedNews(t *testing.T, repo repository.NewsRepository, publishedAt time.Time, title string, score *float64) {
	t.Helper()
	stored, err := repo.Upsert(context.Background(), &entity.NewsArticle{
		Symbol:      "AAPL",
		Title:       title,
		PublishedAt: publishedAt,
	})
	require.NoError(t, err)
	if score != nil {
		require.NoError(t, repo.UpdateSentiment(context.Background(), stored.ID, repository.SentimentUpdate{
			Level: entity.SentimentLevelFromScore(*score),
			Score: *score,
		}))
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestGetNewsRequiresSymbol(t *testing.T) {
	e, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
	e.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNewsFiltersByDateRange(t *testing.T) {
	e, repo := newTestRouter(t)

	seedNews(t, repo, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), "in range", nil)
	seedNews(t, repo, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), "out of range", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/news?symbol=AAPL&from=2024-03-01&to=2024-03-31", nil)
	e.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var articles []entity.NewsArticle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, "in range", articles[0].Title)
}

func TestGetUnscored(t *testing.T) {
	e, repo := newTestRouter(t)

	seedNews(t, repo, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), "pending", nil)
	seedNews(t, repo, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), "done", floatPtr(0.5))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/news/unscored?symbol=AAPL", nil)
	e.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var articles []entity.NewsArticle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, "pending", articles[0].Title)
}

func TestGetSentimentSummary(t *testing.T) {
	e, repo := newTestRouter(t)

	seedNews(t, repo, time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), "good news", floatPtr(0.8))
	seedNews(t, repo, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), "ok news", floatPtr(0.2))
	seedNews(t, repo, time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC), "pending", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sentiment/summary?symbol=AAPL&from=2024-03-01&to=2024-03-31", nil)
	e.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var summary service.SentimentSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Articles)
	assert.Equal(t, 2, summary.Scored)
	assert.InDelta(t, 0.5, summary.MeanScore, 1e-9)
	assert.Equal(t, "positive", summary.OverallLevel)
}

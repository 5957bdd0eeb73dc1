package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	"news-sentiment-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// NewsHandler handles HTTP requests for stored news.
type NewsHandler struct {
	newsRepo repository.NewsRepository
	logger   *logger.Logger
}

// NewNewsHandler creates a new NewsHandler.
func NewNewsHandler(newsRepo repository.NewsRepository, logger *logger.Logger) *NewsHandler {
	return &NewsHandler{newsRepo: newsRepo, logger: logger}
}

// RegisterRoutes registers the news routes to the Echo group.
func (h *NewsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetNews)
	g.GET("/unscored", h.GetUnscored)
}

// GetNews returns articles for a symbol within an inclusive date range,
// newest first.
func (h *NewsHandler) GetNews(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "symbol is required"})
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	limit := parseIntParam(c, "limit", 100)

	articles, err := h.newsRepo.Range(c.Request().Context(), symbol, from, to, limit)
	if err != nil {
		h.logger.Error("Failed to query news", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to query news"})
	}
	return c.JSON(http.StatusOK, articles)
}

// GetUnscored returns articles still waiting for a scoring pass.
func (h *NewsHandler) GetUnscored(c echo.Context) error {
	limit := parseIntParam(c, "limit", 100)

	articles, err := h.newsRepo.FindUnscored(c.Request().Context(), c.QueryParam("symbol"), limit)
	if err != nil {
		h.logger.Error("Failed to query unscored news", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to query unscored news"})
	}
	return c.JSON(http.StatusOK, articles)
}

func parseDateRange(c echo.Context) (time.Time, time.Time, error) {
	from := time.Now().AddDate(0, 0, -30)
	to := time.Now()

	if s := c.QueryParam("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, errors.New("invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if s := c.QueryParam("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, errors.New("invalid to date, expected YYYY-MM-DD")
		}
		// Inclusive end of day.
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}

func parseIntParam(c echo.Context, name string, def int) int {
	s := c.QueryParam(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

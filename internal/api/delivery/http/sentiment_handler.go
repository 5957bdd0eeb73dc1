package http

import (
	"net/http"

	"news-sentiment-tracker/internal/api/service"
	"news-sentiment-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SentimentHandler handles HTTP requests for sentiment aggregates.
type SentimentHandler struct {
	summaryService service.SummaryService
	logger         *logger.Logger
}

// NewSentimentHandler creates a new SentimentHandler.
func NewSentimentHandler(summaryService service.SummaryService, logger *logger.Logger) *SentimentHandler {
	return &SentimentHandler{summaryService: summaryService, logger: logger}
}

// RegisterRoutes registers the sentiment routes to the Echo group.
func (h *SentimentHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/summary", h.GetSummary)
}

// GetSummary returns the aggregated sentiment for one symbol over a window.
func (h *SentimentHandler) GetSummary(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "symbol is required"})
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	summary, err := h.summaryService.Summarize(c.Request().Context(), symbol, from, to)
	if err != nil {
		h.logger.Error("Failed to summarize sentiment", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to summarize sentiment"})
	}
	return c.JSON(http.StatusOK, summary)
}

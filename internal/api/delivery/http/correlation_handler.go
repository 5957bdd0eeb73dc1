package http

import (
	"errors"
	"net/http"

	analyzersvc "news-sentiment-tracker/internal/analyzer/service"
	"news-sentiment-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CorrelationHandler handles HTTP requests for sentiment-price correlation.
type CorrelationHandler struct {
	correlationService analyzersvc.CorrelationService
	logger             *logger.Logger
}

// NewCorrelationHandler creates a new CorrelationHandler.
func NewCorrelationHandler(correlationService analyzersvc.CorrelationService, logger *logger.Logger) *CorrelationHandler {
	return &CorrelationHandler{correlationService: correlationService, logger: logger}
}

// RegisterRoutes registers the correlation routes to the Echo group.
func (h *CorrelationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/:symbol", h.GetCorrelation)
}

// GetCorrelation computes the sentiment-to-next-day-return correlation for
// one symbol.
func (h *CorrelationHandler) GetCorrelation(c echo.Context) error {
	symbol := c.Param("symbol")

	from, to, err := parseDateRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	result, err := h.correlationService.Correlate(c.Request().Context(), symbol, from, to)
	if err != nil {
		if errors.Is(err, analyzersvc.ErrInsufficientData) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to compute correlation", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to compute correlation"})
	}
	return c.JSON(http.StatusOK, result)
}

package http

import (
	"net/http"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
	analyzersvc "news-sentiment-tracker/internal/analyzer/service"
	"news-sentiment-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CostHandler handles HTTP requests for the API cost ledger.
type CostHandler struct {
	costRepo      repository.APICostRepository
	reportService analyzersvc.CostReportService
	logger        *logger.Logger
	loc           *time.Location
}

// NewCostHandler creates a new CostHandler.
func NewCostHandler(costRepo repository.APICostRepository, reportService analyzersvc.CostReportService, logger *logger.Logger, loc *time.Location) *CostHandler {
	if loc == nil {
		loc = time.Local
	}
	return &CostHandler{costRepo: costRepo, reportService: reportService, logger: logger, loc: loc}
}

// RegisterRoutes registers the cost routes to the Echo group.
func (h *CostHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/daily", h.GetDailyCosts)
	g.GET("/symbols", h.GetCostsBySymbol)
	g.GET("/report", h.GetReport)
}

// GetDailyCosts returns per-day ledger totals, newest first.
func (h *CostHandler) GetDailyCosts(c echo.Context) error {
	days := parseIntParam(c, "days", 30)

	totals, err := h.costRepo.DailyTotals(c.Request().Context(), days, h.loc)
	if err != nil {
		h.logger.Error("Failed to aggregate daily costs", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to aggregate daily costs"})
	}
	return c.JSON(http.StatusOK, totals)
}

// GetCostsBySymbol returns per-symbol ledger totals.
func (h *CostHandler) GetCostsBySymbol(c echo.Context) error {
	totals, err := h.costRepo.TotalsBySymbol(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to aggregate costs by symbol", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to aggregate costs by symbol"})
	}
	return c.JSON(http.StatusOK, totals)
}

// GetReport renders the markdown cost report.
func (h *CostHandler) GetReport(c echo.Context) error {
	days := parseIntParam(c, "days", 30)

	report, err := h.reportService.Generate(c.Request().Context(), days)
	if err != nil {
		h.logger.Error("Failed to generate cost report", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to generate cost report"})
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(report))
}

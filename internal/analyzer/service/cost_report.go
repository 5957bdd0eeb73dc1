package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"news-sentiment-tracker/internal/analyzer/repository"
)

// CostReportService renders the spend ledger as a markdown report, suitable
// for a Telegram summary or an operator's terminal.
type CostReportService interface {
	Generate(ctx context.Context, days int) (string, error)
}

type costReportService struct {
	costs repository.APICostRepository
	loc   *time.Location
}

// NewCostReportService creates a CostReportService. The location determines
// the calendar-day bucketing.
func NewCostReportService(costs repository.APICostRepository, loc *time.Location) CostReportService {
	if loc == nil {
		loc = time.Local
	}
	return &costReportService{costs: costs, loc: loc}
}

// Generate builds the report over the last N days of the ledger.
func (s *costReportService) Generate(ctx context.Context, days int) (string, error) {
	if days <= 0 {
		days = 30
	}

	total, err := s.costs.Total(ctx)
	if err != nil {
		return "", err
	}
	daily, err := s.costs.DailyTotals(ctx, days, s.loc)
	if err != nil {
		return "", err
	}
	bySymbol, err := s.costs.TotalsBySymbol(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# API Cost Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().In(s.loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Total spend:** $%.4f\n\n", total)

	b.WriteString(fmt.Sprintf("## Daily costs (last %d days)\n\n", days))
	if len(daily) == 0 {
		b.WriteString("No API calls recorded.\n\n")
	} else {
		b.WriteString("| Date | Requests | Prompt tokens | Completion tokens | Cost (USD) |\n")
		b.WriteString("|------|----------|---------------|-------------------|------------|\n")
		for _, d := range daily {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | $%.4f |\n",
				d.Date.Format("2006-01-02"), d.Requests, d.PromptTokens, d.CompletionTokens, d.CostUSD)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Costs by symbol\n\n")
	if len(bySymbol) == 0 {
		b.WriteString("No API calls recorded.\n")
	} else {
		b.WriteString("| Symbol | Requests | Cost (USD) |\n")
		b.WriteString("|--------|----------|------------|\n")
		for _, sc := range bySymbol {
			fmt.Fprintf(&b, "| %s | %d | $%.4f |\n", sc.Symbol, sc.Requests, sc.CostUSD)
		}
	}

	return b.String(), nil
}

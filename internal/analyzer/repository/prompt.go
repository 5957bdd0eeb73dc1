package repository

import (
	"fmt"
	"strings"

	"news-sentiment-tracker/internal/analyzer/dto"
	"news-sentiment-tracker/internal/entity"
)

const sentimentSystemPrompt = "You are an expert financial analyst who evaluates the impact of news on stock prices."

// BuildSentimentPrompt composes the scoring prompt from the target article
// and its historical context window.
func BuildSentimentPrompt(req *dto.ScoreRequest) string {
	var b strings.Builder

	article := req.Article
	dateStr := article.PublishedAt.Format("2006-01-02")

	b.WriteString(fmt.Sprintf("Analyze the sentiment of the following news about %s, published %s, from the perspective of a stock market investor.\n\n", article.Symbol, dateStr))
	b.WriteString(FormatContextForPrompt(req.Context))
	b.WriteString(fmt.Sprintf("\nCurrent news (%s): %q\n%s\n\n", dateStr, article.Title, article.Content))
	b.WriteString(`Taking the historical context into account, classify the sentiment as one of five levels:
very_negative, negative, neutral, positive, very_positive.

Also assign a numeric score between -1.0 (very negative) and 1.0 (very positive),
and briefly explain why the news could move the stock price, referencing the
historical context where relevant (max 100 words).

Respond in JSON with exactly these fields:
- level: the sentiment level (very_negative, negative, neutral, positive, very_positive)
- score: the numeric score between -1.0 and 1.0
- explanation: the brief explanation`)

	if req.Strict {
		b.WriteString("\n\nRespond with the raw JSON object only. No markdown, no code fences, no text before or after it.")
	}

	return b.String()
}

// FormatContextForPrompt renders the context window as one dated headline
// per line, most recent first.
func FormatContextForPrompt(context []entity.NewsArticle) string {
	if len(context) == 0 {
		return "No historical context available.\n"
	}

	var b strings.Builder
	b.WriteString("Historical context:\n")
	for _, item := range context {
		b.WriteString(fmt.Sprintf("- %s: %s\n", item.PublishedAt.Format("2006-01-02"), item.Title))
	}
	return b.String()
}

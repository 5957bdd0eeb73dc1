// Package lexicon implements a dictionary-based sentiment scorer for
// financial news text. It is the fallback analyzer when the LLM budget is
// exhausted or the external service is unavailable, and works offline.
package lexicon

import (
	"strings"
	"unicode"
)

// Result is the outcome of a lexical sentiment pass.
type Result struct {
	Score       float64
	Explanation string
}

// Weighted word lists tuned for market-moving vocabulary.
var positiveWords = map[string]float64{
	"gain": 1, "gains": 1, "growth": 1, "profit": 1.5, "profits": 1.5,
	"surge": 2, "surges": 2, "soar": 2, "soars": 2, "rally": 1.5,
	"beat": 1.5, "beats": 1.5, "record": 1, "strong": 1, "upgrade": 1.5,
	"upgraded": 1.5, "outperform": 1.5, "bullish": 2, "buyback": 1,
	"dividend": 0.5, "expansion": 1, "breakthrough": 1.5, "approval": 1,
	"approved": 1, "exceeds": 1.5, "positive": 1, "rise": 1, "rises": 1,
	"rose": 1, "jump": 1.5, "jumps": 1.5, "optimistic": 1, "recovery": 1,
}

var negativeWords = map[string]float64{
	"loss": 1.5, "losses": 1.5, "decline": 1, "declines": 1, "drop": 1,
	"drops": 1, "plunge": 2, "plunges": 2, "crash": 2.5, "fall": 1,
	"falls": 1, "fell": 1, "miss": 1.5, "misses": 1.5, "weak": 1,
	"downgrade": 1.5, "downgraded": 1.5, "underperform": 1.5, "bearish": 2,
	"lawsuit": 1.5, "investigation": 1, "fraud": 2.5, "bankruptcy": 3,
	"layoff": 1.5, "layoffs": 1.5, "recall": 1.5, "warning": 1,
	"negative": 1, "cut": 1, "cuts": 1, "slump": 1.5, "debt": 0.5,
	"fine": 1, "penalty": 1, "delay": 1, "delays": 1, "shortfall": 1.5,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true,
	"fails": true, "failed": true, "despite": true,
}

// Score analyzes text and returns a sentiment score in [-1, 1]. A negation
// word immediately before a sentiment word flips its polarity.
func Score(text string) Result {
	words := tokenize(text)

	var total, magnitude float64
	var hits int
	for i, w := range words {
		weight, ok := positiveWords[w]
		if !ok {
			if neg, found := negativeWords[w]; found {
				weight, ok = -neg, true
			}
		}
		if !ok {
			continue
		}
		if i > 0 && negations[words[i-1]] {
			weight = -weight
		}
		total += weight
		magnitude += abs(weight)
		hits++
	}

	if hits == 0 {
		return Result{Score: 0, Explanation: "no sentiment-bearing terms found"}
	}

	score := total / magnitude
	return Result{
		Score:       score,
		Explanation: explanationFor(score, hits),
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func explanationFor(score float64, hits int) string {
	var tone string
	switch {
	case score <= -0.6:
		tone = "strongly negative"
	case score <= -0.2:
		tone = "negative"
	case score < 0.2:
		tone = "mixed"
	case score < 0.6:
		tone = "positive"
	default:
		tone = "strongly positive"
	}
	return "lexical analysis found " + tone + " market vocabulary"
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

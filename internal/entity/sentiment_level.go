package entity

import "fmt"

// SentimentLevel is the five-step sentiment classification. The levels
// carry an explicit ordering so correlation and aggregation code can treat
// them numerically.
type SentimentLevel string

const (
	SentimentVeryNegative SentimentLevel = "very_negative"
	SentimentNegative     SentimentLevel = "negative"
	SentimentNeutral      SentimentLevel = "neutral"
	SentimentPositive     SentimentLevel = "positive"
	SentimentVeryPositive SentimentLevel = "very_positive"
)

var sentimentRanks = map[SentimentLevel]int{
	SentimentVeryNegative: -2,
	SentimentNegative:     -1,
	SentimentNeutral:      0,
	SentimentPositive:     1,
	SentimentVeryPositive: 2,
}

// Rank returns the ordinal position of the level, from -2 (very negative)
// to +2 (very positive).
func (l SentimentLevel) Rank() int {
	return sentimentRanks[l]
}

// Valid reports whether l is one of the five defined levels.
func (l SentimentLevel) Valid() bool {
	_, ok := sentimentRanks[l]
	return ok
}

// ParseSentimentLevel validates a level received from an external scorer.
func ParseSentimentLevel(s string) (SentimentLevel, error) {
	level := SentimentLevel(s)
	if !level.Valid() {
		return "", fmt.Errorf("unknown sentiment level: %q", s)
	}
	return level, nil
}

// SentimentLevelFromScore maps a numeric score in [-1, 1] onto the five
// levels using the same cut points as the reporting layer.
func SentimentLevelFromScore(score float64) SentimentLevel {
	switch {
	case score <= -0.6:
		return SentimentVeryNegative
	case score <= -0.2:
		return SentimentNegative
	case score <= 0.2:
		return SentimentNeutral
	case score <= 0.6:
		return SentimentPositive
	default:
		return SentimentVeryPositive
	}
}

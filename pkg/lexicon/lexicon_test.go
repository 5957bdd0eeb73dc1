package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePositiveText(t *testing.T) {
	res := Score("Shares surge as company beats estimates with record profits")
	assert.Greater(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 1.0)
	assert.NotEmpty(t, res.Explanation)
}

func TestScoreNegativeText(t *testing.T) {
	res := Score("Stock plunges after fraud investigation and mass layoffs")
	assert.Less(t, res.Score, 0.0)
	assert.GreaterOrEqual(t, res.Score, -1.0)
}

func TestScoreNeutralText(t *testing.T) {
	res := Score("The company held its annual shareholder meeting on Tuesday")
	assert.Zero(t, res.Score)
	assert.Contains(t, res.Explanation, "no sentiment-bearing terms")
}

func TestScoreNegationFlipsPolarity(t *testing.T) {
	positive := Score("company reports profit growth")
	negated := Score("company reports no profit no growth")
	assert.Greater(t, positive.Score, 0.0)
	assert.Less(t, negated.Score, positive.Score)
}

func TestScoreIsCaseInsensitive(t *testing.T) {
	lower := Score("shares surge on strong profits")
	upper := Score("SHARES SURGE ON STRONG PROFITS")
	assert.Equal(t, lower.Score, upper.Score)
}

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceScorerZScore(t *testing.T) {
	s := NewPriceScorer(DefaultConfig())

	// nine bids at 100000 and one outlier at 1000: mean 90100, population
	// sigma ~29699.5, so the outlier sits near z = -3 and scores ~40
	// despite being the cheapest bid.
	prices := []float64{100000, 100000, 100000, 100000, 100000, 100000, 100000, 100000, 100000, 1000}

	outlier := s.Score(1000, prices, 150000)
	assert.Equal(t, "z_score", outlier.Method)
	assert.InDelta(t, 90100, outlier.Mean, 0.01)
	assert.InDelta(t, 29699.5, outlier.StdDev, 1)
	assert.InDelta(t, -3.0, outlier.ZScore, 0.01)
	assert.InDelta(t, 40, outlier.Score, 0.5)

	consensus := s.Score(100000, prices, 150000)
	assert.Greater(t, consensus.Score, outlier.Score)
}

func TestPriceScorerBudgetRatioFallback(t *testing.T) {
	s := NewPriceScorer(DefaultConfig())

	tests := []struct {
		name     string
		price    float64
		budget   float64
		expected float64
	}{
		{"at optimal ratio", 80000, 100000, 100},
		{"below optimal ratio", 50000, 100000, 100},
		{"between optimal and budget", 90000, 100000, 80},
		{"exactly at budget", 100000, 100000, 60},
		{"ten percent over budget", 110000, 100000, 50},
		{"far over budget", 200000, 100000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.price, []float64{tt.price}, tt.budget)
			assert.Equal(t, "budget_ratio", got.Method)
			assert.InDelta(t, tt.expected, got.Score, 0.001)
		})
	}
}

func TestPriceScorerIdenticalPricesUseBudgetRatio(t *testing.T) {
	s := NewPriceScorer(DefaultConfig())

	// no variance, so no z-score is defined
	got := s.Score(50000, []float64{50000, 50000, 50000}, 100000)
	assert.Equal(t, "budget_ratio", got.Method)
	assert.Equal(t, 100.0, got.Score)
}

func TestPriceScorerBounds(t *testing.T) {
	s := NewPriceScorer(DefaultConfig())

	// extreme outlier still clamps to [0,100]
	prices := []float64{100, 100, 100, 100, 1e9}
	got := s.Score(1e9, prices, 1000)
	assert.GreaterOrEqual(t, got.Score, 0.0)
	assert.LessOrEqual(t, got.Score, 100.0)
}

func TestPriceScorerZeroBudget(t *testing.T) {
	s := NewPriceScorer(DefaultConfig())

	got := s.Score(50000, []float64{50000}, 0)
	assert.Equal(t, 0.0, got.Score)
}

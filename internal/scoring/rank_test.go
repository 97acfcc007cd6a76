package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationLabel(t *testing.T) {
	tests := []struct {
		score float64
		label string
		color string
	}{
		{95, LabelHighlyRecommended, "green"},
		{85, LabelHighlyRecommended, "green"},
		{84.9, LabelRecommended, "blue"},
		{70, LabelRecommended, "blue"},
		{69.9, LabelConsider, "yellow"},
		{50, LabelConsider, "yellow"},
		{49.9, LabelNotRecommended, "red"},
		{0, LabelNotRecommended, "red"},
	}

	for _, tt := range tests {
		label, color := recommendationLabel(tt.score)
		assert.Equal(t, tt.label, label, "score %.1f", tt.score)
		assert.Equal(t, tt.color, color, "score %.1f", tt.score)
	}
}

func TestRankTieBreakByBidID(t *testing.T) {
	recs := []Recommendation{
		{BidID: "b3", ScoreResult: ScoreResult{BidID: "b3", AIScore: 72}},
		{BidID: "b1", ScoreResult: ScoreResult{BidID: "b1", AIScore: 72}},
		{BidID: "b2", ScoreResult: ScoreResult{BidID: "b2", AIScore: 90}},
	}

	ranked := rankRecommendations(recs)
	require.Len(t, ranked, 3)

	assert.Equal(t, []string{"b2", "b1", "b3"}, []string{ranked[0].BidID, ranked[1].BidID, ranked[2].BidID})
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
}

func TestRankEmptyInput(t *testing.T) {
	assert.Empty(t, rankRecommendations([]Recommendation{}))
}

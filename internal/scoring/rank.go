package scoring

import "sort"

// Recommendation labels in descending score order.
const (
	LabelHighlyRecommended = "Highly Recommended"
	LabelRecommended       = "Recommended"
	LabelConsider          = "Consider"
	LabelNotRecommended    = "Not Recommended"
)

// recommendationLabel maps a final score to its label and display color.
func recommendationLabel(score float64) (string, string) {
	switch {
	case score >= 85:
		return LabelHighlyRecommended, "green"
	case score >= 70:
		return LabelRecommended, "blue"
	case score >= 50:
		return LabelConsider, "yellow"
	default:
		return LabelNotRecommended, "red"
	}
}

// rankRecommendations sorts descending by score and assigns ranks 1..N.
// Equal scores break ties by ascending bid ID so reruns over the same
// snapshot always produce the same order.
func rankRecommendations(recs []Recommendation) []Recommendation {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].AIScore != recs[j].AIScore {
			return recs[i].AIScore > recs[j].AIScore
		}
		return recs[i].BidID < recs[j].BidID
	})
	for i := range recs {
		recs[i].Rank = i + 1
		recs[i].Recommendation, recs[i].Color = recommendationLabel(recs[i].AIScore)
	}
	return recs
}

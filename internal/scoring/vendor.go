package scoring

import "math"

// VendorScorer scores vendor credibility from its historical record.
type VendorScorer struct{}

func NewVendorScorer() VendorScorer {
	return VendorScorer{}
}

// Score is a weighted sum of reputation and rating plus capped bonuses
// for wins and completed projects. A nil vendor scores zero everywhere.
func (VendorScorer) Score(v *Vendor) VendorInsight {
	if v == nil {
		return VendorInsight{}
	}

	insight := VendorInsight{
		ReputationComponent: math.Min(100, v.ReputationScore*20),
		RatingComponent:     math.Min(100, v.AverageRating*20),
		WinBonus:            math.Min(30, float64(v.TotalWins)*10),
		ExperienceBonus:     math.Min(20, float64(v.CompletedProjects)*5),
	}
	insight.Score = clamp(
		0.4*insight.ReputationComponent+
			0.4*insight.RatingComponent+
			insight.WinBonus+
			insight.ExperienceBonus,
		0, 100)
	return insight
}

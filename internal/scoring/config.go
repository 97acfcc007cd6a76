package scoring

import "fmt"

// Config carries every weight, threshold and term list the engine uses.
// All values are overridable so individual heuristics stay testable.
type Config struct {
	// Component weights, must sum to 1.
	PriceWeight     float64
	VendorWeight    float64
	TechnicalWeight float64

	// Points subtracted from the final score when any anomaly fires.
	AnomalyPenalty float64

	// Budget-ratio fallback: at or below this ratio the price scores 100.
	OptimalPriceRatio float64

	// Anomaly thresholds.
	LowPriceZ         float64 // z below this flags a suspiciously low price
	HighPriceZ        float64 // z above this flags an unusually high price
	PriceMatchEpsilon float64 // prices closer than this count as an exact match
	MinTimelineDays   int     // timelines under this are unrealistically short
	MaxTimelineDays   int     // timelines over this are excessively long
	MinProposalChars  int     // proposals shorter than this lack detail

	// Success conditions for range forcing.
	LowCostRatio        float64 // price <= ratio * mean sibling price
	ReasonableTimeline  int     // days
	GoodReputationScore float64
	GoodReputationWins  int

	// Target score ranges indexed by conditions met (0..3).
	Ranges [4]ScoreRange

	// Term lists for proposal lexical analysis.
	QualityTerms []string
	DepthTerms   []string
}

// ScoreRange is an inclusive [Low, High] band the base score is clamped into.
type ScoreRange struct {
	Low  float64
	High float64
}

// DefaultConfig returns the production scoring parameters.
func DefaultConfig() Config {
	return Config{
		PriceWeight:     0.40,
		VendorWeight:    0.35,
		TechnicalWeight: 0.25,

		AnomalyPenalty:    15,
		OptimalPriceRatio: 0.8,

		LowPriceZ:         -2.5,
		HighPriceZ:        2.0,
		PriceMatchEpsilon: 0.01,
		MinTimelineDays:   7,
		MaxTimelineDays:   730,
		MinProposalChars:  50,

		LowCostRatio:        0.9,
		ReasonableTimeline:  90,
		GoodReputationScore: 3.5,
		GoodReputationWins:  3,

		Ranges: [4]ScoreRange{
			{Low: 0, High: 45},
			{Low: 45, High: 70},
			{Low: 60, High: 85},
			{Low: 85, High: 100},
		},

		QualityTerms: []string{
			"experience", "expertise", "methodology", "approach", "team",
			"quality", "standards", "best practices", "implementation",
			"testing", "maintenance", "support", "documentation",
			"compliance", "certification", "proven", "successful",
		},
		DepthTerms: []string{
			"architecture", "infrastructure", "scalability", "security",
			"integration", "deployment", "monitoring", "optimization",
			"performance", "reliability", "efficiency",
		},
	}
}

// Validate rejects configurations the aggregation math cannot work with.
func (c Config) Validate() error {
	sum := c.PriceWeight + c.VendorWeight + c.TechnicalWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("component weights must sum to 1, got %.4f", sum)
	}
	if c.AnomalyPenalty < 0 {
		return fmt.Errorf("anomaly penalty must be non-negative, got %.2f", c.AnomalyPenalty)
	}
	for i, r := range c.Ranges {
		if r.Low > r.High {
			return fmt.Errorf("range %d inverted: [%.1f, %.1f]", i, r.Low, r.High)
		}
		if r.Low < 0 || r.High > 100 {
			return fmt.Errorf("range %d outside [0,100]: [%.1f, %.1f]", i, r.Low, r.High)
		}
	}
	if c.MinTimelineDays < 0 || c.MaxTimelineDays <= c.MinTimelineDays {
		return fmt.Errorf("timeline bounds invalid: min %d, max %d", c.MinTimelineDays, c.MaxTimelineDays)
	}
	return nil
}

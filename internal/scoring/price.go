package scoring

import "math"

// PriceScorer scores a bid's price against the sibling bid set, falling
// back to a budget-ratio scale when no market consensus exists.
type PriceScorer struct {
	cfg Config
}

func NewPriceScorer(cfg Config) PriceScorer {
	return PriceScorer{cfg: cfg}
}

// Score rewards proximity to the consensus price. A far-below-market bid
// is penalized exactly like a far-above-market one; raw cheapness only
// wins in the single-bid budget-ratio fallback.
func (s PriceScorer) Score(price float64, siblingPrices []float64, budget float64) PriceInsight {
	if mu, sigma, ok := priceStats(siblingPrices); ok {
		z := (price - mu) / sigma
		return PriceInsight{
			Method: "z_score",
			Mean:   mu,
			StdDev: sigma,
			ZScore: z,
			Score:  clamp(100-20*math.Abs(z), 0, 100),
		}
	}
	return s.budgetRatio(price, budget)
}

func (s PriceScorer) budgetRatio(price, budget float64) PriceInsight {
	insight := PriceInsight{Method: "budget_ratio"}
	if budget <= 0 {
		return insight
	}
	ratio := price / budget
	insight.BudgetRatio = ratio

	switch {
	case ratio <= s.cfg.OptimalPriceRatio:
		insight.Score = 100
	case ratio <= 1.0:
		// linear decay from 100 down to 60 at the budget line
		insight.Score = 100 - (ratio-s.cfg.OptimalPriceRatio)*200
	default:
		// over budget decays steeply, floored at zero
		insight.Score = math.Max(0, 60-(ratio-1.0)*100)
	}
	return insight
}

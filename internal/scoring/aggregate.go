package scoring

// ScoreAggregator combines the component scores into the final score.
// The number of satisfied success conditions picks the target band; the
// weighted base score only sets the position inside it.
type ScoreAggregator struct {
	cfg Config
}

func NewScoreAggregator(cfg Config) ScoreAggregator {
	return ScoreAggregator{cfg: cfg}
}

// Aggregate returns the final score and the range-forcing breakdown.
func (a ScoreAggregator) Aggregate(priceScore, vendorScore, technicalScore float64, bid Bid, vendor *Vendor, siblingPrices []float64, anomalous bool) (float64, AggregateInsight) {
	insight := AggregateInsight{
		BaseScore: a.cfg.PriceWeight*priceScore +
			a.cfg.VendorWeight*vendorScore +
			a.cfg.TechnicalWeight*technicalScore,
	}

	if m := mean(siblingPrices); m > 0 && bid.ProposedPrice <= a.cfg.LowCostRatio*m {
		insight.LowCost = true
	}
	if bid.DeliveryDays > 0 && bid.DeliveryDays <= a.cfg.ReasonableTimeline {
		insight.ReasonableTimeline = true
	}
	if vendor != nil && (vendor.ReputationScore >= a.cfg.GoodReputationScore || vendor.TotalWins >= a.cfg.GoodReputationWins) {
		insight.GoodReputation = true
	}
	for _, met := range []bool{insight.LowCost, insight.ReasonableTimeline, insight.GoodReputation} {
		if met {
			insight.ConditionsMet++
		}
	}

	r := a.cfg.Ranges[insight.ConditionsMet]
	insight.RangeLow, insight.RangeHigh = r.Low, r.High
	score := clamp(insight.BaseScore, r.Low, r.High)

	if anomalous {
		insight.PenaltyApplied = true
		score = clamp(score-a.cfg.AnomalyPenalty, 0, 100)
	}
	return score, insight
}

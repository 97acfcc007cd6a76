package scoring

import (
	"context"
	"math"
	"strings"
)

// TechnicalScorer evaluates proposal text and delivery timeline. The
// rule-based implementation is canonical; an LLM-backed one may stand in
// for it, but the aggregation contract is identical either way.
type TechnicalScorer interface {
	Score(ctx context.Context, proposal string, deliveryDays int) (TechnicalInsight, error)
}

// RuleBasedScorer is the deterministic lexical scorer. It is pure and
// never fails.
type RuleBasedScorer struct {
	cfg Config
}

func NewRuleBasedScorer(cfg Config) RuleBasedScorer {
	return RuleBasedScorer{cfg: cfg}
}

func (s RuleBasedScorer) Score(_ context.Context, proposal string, deliveryDays int) (TechnicalInsight, error) {
	insight := TechnicalInsight{
		Strategy:    "rule_based",
		LengthScore: lengthScore(proposal),
	}

	lower := strings.ToLower(proposal)
	insight.QualityBonus = math.Min(20, float64(countTerms(lower, s.cfg.QualityTerms))*1.5)
	insight.DepthBonus = math.Min(15, float64(countTerms(lower, s.cfg.DepthTerms))*2)
	insight.ProposalComponent = math.Min(100, insight.LengthScore+insight.QualityBonus+insight.DepthBonus)
	insight.TimelineComponent = s.timelineScore(deliveryDays)
	insight.Score = clamp(0.6*insight.ProposalComponent+0.4*insight.TimelineComponent, 0, 100)
	return insight, nil
}

// lengthScore bands the proposal character length; 300-1000 is optimal.
func lengthScore(proposal string) float64 {
	n := len(proposal)
	switch {
	case n < 100:
		return 15
	case n < 300:
		return 35
	case n <= 1000:
		return 55
	case n <= 2000:
		return 50
	default:
		return 45
	}
}

// countTerms counts case-insensitive substring occurrences. The input is
// lowercased by the caller; terms are stored lowercase.
func countTerms(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		n += strings.Count(lower, t)
	}
	return n
}

// timelineScore bands delivery timelines; the first reasonable band
// scores best and very long timelines decay toward 25.
func (s RuleBasedScorer) timelineScore(days int) float64 {
	switch {
	case days <= 0:
		return 0
	case days < s.cfg.MinTimelineDays:
		return 25
	case days <= 30:
		return 100
	case days <= 90:
		return 95
	case days <= 180:
		return 75
	case days <= 365:
		return 55
	default:
		return math.Max(25, 50-(float64(days-365)/365)*20)
	}
}

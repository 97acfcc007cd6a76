package scoring

import (
	"fmt"
	"math"
)

// AnomalyDetector runs the fraud and quality heuristics over one bid.
// Every check is evaluated independently; each one that fires appends a
// reason, and the flag is set iff at least one fired.
type AnomalyDetector struct {
	cfg Config
}

func NewAnomalyDetector(cfg Config) AnomalyDetector {
	return AnomalyDetector{cfg: cfg}
}

// Detect returns the anomaly flag and the ordered reason list for a bid.
// Price checks need a defined z-score, so single-bid tenders only ever
// trigger the timeline and proposal-length checks.
func (d AnomalyDetector) Detect(bid Bid, siblings []Bid, siblingPrices []float64) (bool, []string) {
	var reasons []string

	if mu, sigma, ok := priceStats(siblingPrices); ok {
		z := (bid.ProposedPrice - mu) / sigma
		if z < d.cfg.LowPriceZ {
			reasons = append(reasons, fmt.Sprintf("suspiciously low price (z-score %.2f)", z))
		} else if z > d.cfg.HighPriceZ {
			reasons = append(reasons, fmt.Sprintf("unusually high price (z-score %.2f)", z))
		}
	}

	if n := d.exactMatches(bid, siblings); n > 0 {
		reasons = append(reasons, fmt.Sprintf("exact price match with %d other bid(s), possible collusion", n))
	}

	if bid.DeliveryDays < d.cfg.MinTimelineDays {
		reasons = append(reasons, fmt.Sprintf("unrealistically short timeline (%d days)", bid.DeliveryDays))
	}
	if bid.DeliveryDays > d.cfg.MaxTimelineDays {
		reasons = append(reasons, fmt.Sprintf("excessively long timeline (%d days)", bid.DeliveryDays))
	}

	if len(bid.TechnicalProposal) < d.cfg.MinProposalChars {
		reasons = append(reasons, "insufficient technical detail in proposal")
	}

	return len(reasons) > 0, reasons
}

// exactMatches counts sibling bids, excluding this one, whose price is
// within the match epsilon.
func (d AnomalyDetector) exactMatches(bid Bid, siblings []Bid) int {
	n := 0
	for _, other := range siblings {
		if other.ID == bid.ID {
			continue
		}
		if math.Abs(other.ProposedPrice-bid.ProposedPrice) < d.cfg.PriceMatchEpsilon {
			n++
		}
	}
	return n
}

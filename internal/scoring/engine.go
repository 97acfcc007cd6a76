package scoring

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Engine wires the component scorers into the per-bid pipeline and the
// tender-level recommendation batch. All state is configuration; the
// deterministic path does no I/O and the same snapshot always yields
// identical output.
type Engine struct {
	cfg       Config
	price     PriceScorer
	vendor    VendorScorer
	technical TechnicalScorer
	fallback  RuleBasedScorer
	anomaly   AnomalyDetector
	aggregate ScoreAggregator
}

// NewEngine builds an engine around the given technical scoring strategy.
// A nil strategy selects the rule-based scorer.
func NewEngine(cfg Config, technical TechnicalScorer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	ruleBased := NewRuleBasedScorer(cfg)
	if technical == nil {
		technical = ruleBased
	}
	return &Engine{
		cfg:       cfg,
		price:     NewPriceScorer(cfg),
		vendor:    NewVendorScorer(),
		technical: technical,
		fallback:  ruleBased,
		anomaly:   NewAnomalyDetector(cfg),
		aggregate: NewScoreAggregator(cfg),
	}, nil
}

// Config returns the engine's scoring parameters.
func (e *Engine) Config() Config { return e.cfg }

// ScoreBid scores one bid against its tender and the full sibling set.
// The siblings include the bid itself; sibling statistics are computed
// over all of them. A scoring failure never escapes: the result is a
// neutral, anomaly-flagged fault record instead.
func (e *Engine) ScoreBid(ctx context.Context, bid Bid, tender Tender, vendor *Vendor, siblings []Bid) (result ScoreResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bid scoring fault", "bid_id", bid.ID, "tender_id", tender.ID, "panic", r)
			result = faultResult(bid.ID, fmt.Sprintf("scoring fault: %v", r))
		}
	}()

	siblingPrices := make([]float64, len(siblings))
	for i, s := range siblings {
		siblingPrices[i] = s.ProposedPrice
	}
	return e.scoreBid(ctx, bid, tender, vendor, siblingPrices, siblings)
}

func (e *Engine) scoreBid(ctx context.Context, bid Bid, tender Tender, vendor *Vendor, siblingPrices []float64, siblings []Bid) ScoreResult {
	priceInsight := e.price.Score(bid.ProposedPrice, siblingPrices, tender.Budget)
	vendorInsight := e.vendor.Score(vendor)

	techInsight, err := e.technical.Score(ctx, bid.TechnicalProposal, bid.DeliveryDays)
	if err != nil {
		// external strategy failed, the deterministic scorer always answers
		slog.Warn("technical scorer failed, using rule-based fallback",
			"bid_id", bid.ID, "error", err)
		techInsight, _ = e.fallback.Score(ctx, bid.TechnicalProposal, bid.DeliveryDays)
	}

	flagged, reasons := e.anomaly.Detect(bid, siblings, siblingPrices)
	final, aggInsight := e.aggregate.Aggregate(
		priceInsight.Score, vendorInsight.Score, techInsight.Score,
		bid, vendor, siblingPrices, flagged)

	return ScoreResult{
		BidID:          bid.ID,
		AIScore:        final,
		PriceScore:     priceInsight.Score,
		VendorScore:    vendorInsight.Score,
		TechnicalScore: techInsight.Score,
		AnomalyFlag:    flagged,
		AnomalyReasons: reasons,
		Insights: Insights{
			Price:     priceInsight,
			Vendor:    vendorInsight,
			Technical: techInsight,
			Aggregate: aggInsight,
		},
	}
}

// Recommendations scores every bid for one tender concurrently, then
// sorts and ranks the results. Bids whose vendor is missing from the
// lookup are skipped with a warning; a faulted bid is kept in the list as
// an anomaly-flagged neutral record. An empty bid set yields an empty
// list, never an error.
func (e *Engine) Recommendations(ctx context.Context, tender Tender, bids []Bid, vendors map[string]Vendor) ([]Recommendation, error) {
	recs := make([]Recommendation, 0, len(bids))
	if len(bids) == 0 {
		return recs, nil
	}

	results := make([]*Recommendation, len(bids))
	g, gctx := errgroup.WithContext(ctx)
	for i, bid := range bids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, ok := vendors[bid.VendorID]
			if !ok {
				slog.Warn("skipping bid with unknown vendor",
					"bid_id", bid.ID, "vendor_id", bid.VendorID, "tender_id", tender.ID)
				return nil
			}
			res := e.ScoreBid(gctx, bid, tender, &v, bids)
			results[i] = &Recommendation{
				BidID:         bid.ID,
				VendorID:      bid.VendorID,
				VendorName:    v.CompanyName,
				ProposedPrice: bid.ProposedPrice,
				DeliveryDays:  bid.DeliveryDays,
				ScoreResult:   res,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r != nil {
			recs = append(recs, *r)
		}
	}
	return rankRecommendations(recs), nil
}

// faultResult is the neutral substitute for a bid that could not be
// scored: midpoint component scores, anomaly-flagged, reason attached.
func faultResult(bidID, reason string) ScoreResult {
	return ScoreResult{
		BidID:          bidID,
		AIScore:        50,
		PriceScore:     50,
		VendorScore:    50,
		TechnicalScore: 50,
		AnomalyFlag:    true,
		AnomalyReasons: []string{reason},
		Faulted:        true,
		FaultReason:    reason,
	}
}

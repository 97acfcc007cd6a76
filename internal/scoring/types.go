package scoring

import "time"

// Bid is the read-only snapshot of a submitted bid the engine scores.
// The caller owns persistence; scoring never mutates its inputs.
type Bid struct {
	ID                string
	TenderID          string
	VendorID          string
	ProposedPrice     float64
	TechnicalProposal string
	DeliveryDays      int
}

// Vendor is the historical record backing credibility scoring.
type Vendor struct {
	ID                string
	CompanyName       string
	ReputationScore   float64 // 0.0 - 5.0
	AverageRating     float64 // 0.0 - 5.0
	TotalWins         int
	CompletedProjects int
}

// Tender is the procurement request the bids compete for.
type Tender struct {
	ID       string
	Title    string
	Budget   float64
	Category string
	Deadline time.Time
}

// PriceInsight explains how the price score was derived.
type PriceInsight struct {
	Method      string  `json:"method"` // "z_score" or "budget_ratio"
	Mean        float64 `json:"mean,omitempty"`
	StdDev      float64 `json:"std_dev,omitempty"`
	ZScore      float64 `json:"z_score,omitempty"`
	BudgetRatio float64 `json:"budget_ratio,omitempty"`
	Score       float64 `json:"score"`
}

// VendorInsight breaks the credibility score into its parts.
type VendorInsight struct {
	ReputationComponent float64 `json:"reputation_component"`
	RatingComponent     float64 `json:"rating_component"`
	WinBonus            float64 `json:"win_bonus"`
	ExperienceBonus     float64 `json:"experience_bonus"`
	Score               float64 `json:"score"`
}

// TechnicalInsight breaks the technical score into proposal and timeline parts.
type TechnicalInsight struct {
	Strategy          string  `json:"strategy"` // "rule_based" or "llm"
	LengthScore       float64 `json:"length_score"`
	QualityBonus      float64 `json:"quality_bonus"`
	DepthBonus        float64 `json:"depth_bonus"`
	ProposalComponent float64 `json:"proposal_component"`
	TimelineComponent float64 `json:"timeline_component"`
	Score             float64 `json:"score"`
}

// AggregateInsight records the range-forcing inputs and outcome.
type AggregateInsight struct {
	BaseScore          float64 `json:"base_score"`
	LowCost            bool    `json:"low_cost"`
	ReasonableTimeline bool    `json:"reasonable_timeline"`
	GoodReputation     bool    `json:"good_reputation"`
	ConditionsMet      int     `json:"conditions_met"`
	RangeLow           float64 `json:"range_low"`
	RangeHigh          float64 `json:"range_high"`
	PenaltyApplied     bool    `json:"penalty_applied"`
}

// Insights is the full per-component explanation attached to a score.
type Insights struct {
	Price     PriceInsight     `json:"price"`
	Vendor    VendorInsight    `json:"vendor"`
	Technical TechnicalInsight `json:"technical"`
	Aggregate AggregateInsight `json:"aggregate"`
}

// ScoreResult is the derived scoring record for one bid. When Faulted is
// set the component scores are neutral midpoints and FaultReason names the
// failure; the caller decides whether to exclude or surface the bid.
type ScoreResult struct {
	BidID          string   `json:"bid_id"`
	AIScore        float64  `json:"ai_score"`
	PriceScore     float64  `json:"price_score"`
	VendorScore    float64  `json:"vendor_score"`
	TechnicalScore float64  `json:"technical_score"`
	AnomalyFlag    bool     `json:"anomaly_flag"`
	AnomalyReasons []string `json:"anomaly_reasons,omitempty"`
	Faulted        bool     `json:"faulted,omitempty"`
	FaultReason    string   `json:"fault_reason,omitempty"`
	Insights       Insights `json:"insights"`
}

// Recommendation is the ranked, labeled output record for one bid.
type Recommendation struct {
	Rank           int     `json:"rank"`
	BidID          string  `json:"bid_id"`
	VendorID       string  `json:"vendor_id"`
	VendorName     string  `json:"vendor_name"`
	ProposedPrice  float64 `json:"proposed_price"`
	DeliveryDays   int     `json:"delivery_days"`
	Recommendation string  `json:"recommendation"`
	Color          string  `json:"color"`
	ScoreResult
}

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateRangeForcing(t *testing.T) {
	a := NewScoreAggregator(DefaultConfig())
	strong := &Vendor{ReputationScore: 4.5, TotalWins: 5}
	weak := &Vendor{ReputationScore: 2.0}

	tests := []struct {
		name     string
		bid      Bid
		vendor   *Vendor
		prices   []float64
		wantMet  int
		wantLow  float64
		wantHigh float64
	}{
		{
			name:     "all three conditions",
			bid:      Bid{ProposedPrice: 80000, DeliveryDays: 60},
			vendor:   strong,
			prices:   []float64{80000, 100000, 120000},
			wantMet:  3,
			wantLow:  85,
			wantHigh: 100,
		},
		{
			name:     "two conditions",
			bid:      Bid{ProposedPrice: 80000, DeliveryDays: 60},
			vendor:   weak,
			prices:   []float64{80000, 100000, 120000},
			wantMet:  2,
			wantLow:  60,
			wantHigh: 85,
		},
		{
			name:     "one condition",
			bid:      Bid{ProposedPrice: 120000, DeliveryDays: 60},
			vendor:   weak,
			prices:   []float64{80000, 100000, 120000},
			wantMet:  1,
			wantLow:  45,
			wantHigh: 70,
		},
		{
			name:     "no conditions",
			bid:      Bid{ProposedPrice: 120000, DeliveryDays: 400},
			vendor:   weak,
			prices:   []float64{80000, 100000, 120000},
			wantMet:  0,
			wantLow:  0,
			wantHigh: 45,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, insight := a.Aggregate(70, 70, 70, tt.bid, tt.vendor, tt.prices, false)
			assert.Equal(t, tt.wantMet, insight.ConditionsMet)
			assert.Equal(t, tt.wantLow, insight.RangeLow)
			assert.Equal(t, tt.wantHigh, insight.RangeHigh)
			assert.GreaterOrEqual(t, score, tt.wantLow)
			assert.LessOrEqual(t, score, tt.wantHigh)
			// base 0.4*70+0.35*70+0.25*70 = 70, clamped into the band
			assert.Equal(t, clamp(70, tt.wantLow, tt.wantHigh), score)
		})
	}
}

func TestAggregateBaseScoreWeights(t *testing.T) {
	a := NewScoreAggregator(DefaultConfig())

	_, insight := a.Aggregate(100, 50, 0, Bid{ProposedPrice: 100, DeliveryDays: 60}, nil, []float64{100}, false)
	assert.InDelta(t, 0.40*100+0.35*50, insight.BaseScore, 0.001)
}

func TestAggregateAnomalyPenalty(t *testing.T) {
	a := NewScoreAggregator(DefaultConfig())
	bid := Bid{ProposedPrice: 80000, DeliveryDays: 60}
	vendor := &Vendor{ReputationScore: 4.5, TotalWins: 5}
	prices := []float64{80000, 100000, 120000}

	clean, _ := a.Aggregate(90, 90, 90, bid, vendor, prices, false)
	flagged, insight := a.Aggregate(90, 90, 90, bid, vendor, prices, true)

	assert.True(t, insight.PenaltyApplied)
	assert.InDelta(t, clean-15, flagged, 0.001)
}

func TestAggregatePenaltyClampsAtZero(t *testing.T) {
	a := NewScoreAggregator(DefaultConfig())

	// zero conditions, zero components, penalty cannot go negative
	score, _ := a.Aggregate(0, 0, 0, Bid{ProposedPrice: 200, DeliveryDays: 400}, nil, []float64{100, 100, 200}, true)
	assert.Equal(t, 0.0, score)
}

func TestAggregateGoodReputationByWinsAlone(t *testing.T) {
	a := NewScoreAggregator(DefaultConfig())

	// low reputation but enough wins still satisfies the condition
	vendor := &Vendor{ReputationScore: 1.0, TotalWins: 3}
	_, insight := a.Aggregate(50, 50, 50, Bid{ProposedPrice: 200, DeliveryDays: 400}, vendor, []float64{100, 100, 200}, false)
	assert.True(t, insight.GoodReputation)
	assert.Equal(t, 1, insight.ConditionsMet)
}

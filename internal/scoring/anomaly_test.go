package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBids(prices ...float64) []Bid {
	bids := make([]Bid, len(prices))
	for i, p := range prices {
		bids[i] = Bid{
			ID:                string(rune('a' + i)),
			ProposedPrice:     p,
			TechnicalProposal: strings.Repeat("detailed proposal text ", 20),
			DeliveryDays:      60,
		}
	}
	return bids
}

func bidPrices(bids []Bid) []float64 {
	prices := make([]float64, len(bids))
	for i, b := range bids {
		prices[i] = b.ProposedPrice
	}
	return prices
}

func TestAnomalySuspiciouslyLowPrice(t *testing.T) {
	d := NewAnomalyDetector(DefaultConfig())

	bids := makeBids(100000, 100000, 100000, 100000, 100000, 100000, 100000, 100000, 100000, 1000)
	flagged, reasons := d.Detect(bids[9], bids, bidPrices(bids))

	require.True(t, flagged)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "suspiciously low price")
}

func TestAnomalyUnusuallyHighPrice(t *testing.T) {
	d := NewAnomalyDetector(DefaultConfig())

	bids := makeBids(10000, 10000, 10000, 10000, 10000, 10000, 10000, 10000, 10000, 80000)
	flagged, reasons := d.Detect(bids[9], bids, bidPrices(bids))

	require.True(t, flagged)
	assert.Contains(t, reasons[0], "unusually high price")
}

func TestAnomalyExactPriceMatch(t *testing.T) {
	d := NewAnomalyDetector(DefaultConfig())

	bids := makeBids(55000.00, 55000.00, 40000.00)

	for _, i := range []int{0, 1} {
		flagged, reasons := d.Detect(bids[i], bids, bidPrices(bids))
		require.True(t, flagged, "bid %d should be flagged", i)
		found := false
		for _, r := range reasons {
			if strings.Contains(r, "exact price match with 1 other bid") {
				found = true
			}
		}
		assert.True(t, found, "bid %d reasons: %v", i, reasons)
	}

	flagged, _ := d.Detect(bids[2], bids, bidPrices(bids))
	assert.False(t, flagged)
}

func TestAnomalyTimelineAndProposal(t *testing.T) {
	d := NewAnomalyDetector(DefaultConfig())

	bid := Bid{ID: "a", ProposedPrice: 50000, TechnicalProposal: "we will do the work", DeliveryDays: 3}
	flagged, reasons := d.Detect(bid, []Bid{bid}, []float64{50000})

	require.True(t, flagged)
	require.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "unrealistically short timeline")
	assert.Contains(t, reasons[1], "insufficient technical detail")
}

func TestAnomalyExcessivelyLongTimeline(t *testing.T) {
	d := NewAnomalyDetector(DefaultConfig())

	bid := Bid{ID: "a", ProposedPrice: 50000, TechnicalProposal: strings.Repeat("x", 100), DeliveryDays: 1000}
	flagged, reasons := d.Detect(bid, []Bid{bid}, []float64{50000})

	require.True(t, flagged)
	assert.Contains(t, reasons[0], "excessively long timeline")
}

func TestAnomalySingleBidSkipsPriceChecks(t *testing.T) {
	d := NewAnomalyDetector(DefaultConfig())

	// a lone bid has no price distribution, so a clean timeline and
	// proposal mean no flags at all
	bid := Bid{ID: "a", ProposedPrice: 1, TechnicalProposal: strings.Repeat("x", 200), DeliveryDays: 30}
	flagged, reasons := d.Detect(bid, []Bid{bid}, []float64{1})

	assert.False(t, flagged)
	assert.Empty(t, reasons)
}

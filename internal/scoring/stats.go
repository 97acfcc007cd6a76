package scoring

import "math"

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// priceStats reports mean and population sigma over the sibling prices,
// which include the bid's own price. ok is false when no z-score is
// defined (fewer than two bids, or all prices identical).
func priceStats(prices []float64) (mu, sigma float64, ok bool) {
	if len(prices) < 2 {
		return 0, 0, false
	}
	mu = mean(prices)
	sigma = stdDev(prices)
	if sigma == 0 {
		return mu, 0, false
	}
	return mu, sigma, true
}

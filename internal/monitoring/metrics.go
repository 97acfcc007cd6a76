package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const responseTimeSamples = 1000

// Metrics collects service counters: request volume, evaluation runs,
// bid scoring tallies, cache effectiveness and rate limiter activity.
// Counters are atomics; the maps and the percentile window sit behind
// their own locks.
type Metrics struct {
	requests  atomic.Int64
	errors    atomic.Int64
	startTime time.Time

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	evaluations      atomic.Int64
	bidsScored       atomic.Int64
	anomaliesFlagged atomic.Int64
	llmCalls         atomic.Int64

	breakerOpens  atomic.Int64
	breakerCloses atomic.Int64

	responseSum   atomic.Int64 // nanoseconds
	responseCount atomic.Int64

	// sliding window of recent response times for percentiles
	sampleMu sync.RWMutex
	samples  []time.Duration

	statusMu     sync.RWMutex
	statusCounts map[int]int64

	externalMu     sync.RWMutex
	externalCalls  map[string]int64
	externalErrors map[string]int64

	limitIPBlocks    atomic.Int64
	limitUserBlocks  atomic.Int64
	limitRedisErrors atomic.Int64
	limitFallbacks   atomic.Int64
	limitMu          sync.RWMutex
	limitByEndpoint  map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime:       time.Now(),
		samples:         make([]time.Duration, 0, responseTimeSamples),
		statusCounts:    make(map[int]int64),
		externalCalls:   make(map[string]int64),
		externalErrors:  make(map[string]int64),
		limitByEndpoint: make(map[string]int64),
	}
}

func (m *Metrics) IncrementRequest()   { m.requests.Add(1) }
func (m *Metrics) IncrementError()     { m.errors.Add(1) }
func (m *Metrics) IncrementCacheHit()  { m.cacheHits.Add(1) }
func (m *Metrics) IncrementCacheMiss() { m.cacheMisses.Add(1) }

// IncrementEvaluation counts one tender evaluation run
func (m *Metrics) IncrementEvaluation() { m.evaluations.Add(1) }

// RecordBidsScored adds to the scored bid tally
func (m *Metrics) RecordBidsScored(count int) { m.bidsScored.Add(int64(count)) }

// RecordAnomaliesFlagged adds to the flagged anomaly tally
func (m *Metrics) RecordAnomaliesFlagged(count int) { m.anomaliesFlagged.Add(int64(count)) }

// IncrementLLMCalls counts one call to the proposal-assessment API
func (m *Metrics) IncrementLLMCalls() { m.llmCalls.Add(1) }

func (m *Metrics) IncrementCircuitBreakerOpen()  { m.breakerOpens.Add(1) }
func (m *Metrics) IncrementCircuitBreakerClose() { m.breakerCloses.Add(1) }

// RecordResponseTime feeds both the running average and the percentile
// window, which keeps the most recent samples only.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.responseSum.Add(duration.Nanoseconds())
	m.responseCount.Add(1)

	m.sampleMu.Lock()
	m.samples = append(m.samples, duration)
	if len(m.samples) > responseTimeSamples {
		m.samples = m.samples[1:]
	}
	m.sampleMu.Unlock()
}

func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	m.statusCounts[statusCode]++
}

// RecordExternalAPIRequest counts a call to a named upstream API and
// whether it failed
func (m *Metrics) RecordExternalAPIRequest(apiName string, success bool) {
	m.externalMu.Lock()
	defer m.externalMu.Unlock()
	m.externalCalls[apiName]++
	if !success {
		m.externalErrors[apiName]++
	}
}

// GetPercentileResponseTime computes the given percentile over the
// recent sample window. Returns 0 when no samples have been recorded.
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.sampleMu.RLock()
	defer m.sampleMu.RUnlock()

	if len(m.samples) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.samples))
	copy(sorted, m.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)-1) * percentile / 100.0)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()

	out := make(map[int]int64, len(m.statusCounts))
	for code, count := range m.statusCounts {
		out[code] = count
	}
	return out
}

func (m *Metrics) GetExternalAPIStats() map[string]interface{} {
	m.externalMu.RLock()
	defer m.externalMu.RUnlock()

	stats := make(map[string]interface{}, len(m.externalCalls))
	for api, calls := range m.externalCalls {
		errs := m.externalErrors[api]
		rate := float64(0)
		if calls > 0 {
			rate = float64(errs) / float64(calls) * 100
		}
		stats[api] = map[string]interface{}{
			"requests":   calls,
			"errors":     errs,
			"error_rate": rate,
		}
	}
	return stats
}

// GetStats snapshots every counter for /metrics and /health
func (m *Metrics) GetStats() map[string]interface{} {
	requests := m.requests.Load()
	errCount := m.errors.Load()
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errCount) / float64(requests) * 100
	}

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}

	avgMs := float64(0)
	if n := m.responseCount.Load(); n > 0 {
		avgMs = float64(m.responseSum.Load()) / float64(n) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.startTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errCount,
		"error_rate_percent":     errorRate,
		"cache_hits":             hits,
		"cache_misses":           misses,
		"cache_hit_rate_percent": hitRate,
		"evaluations":            m.evaluations.Load(),
		"bids_scored":            m.bidsScored.Load(),
		"anomalies_flagged":      m.anomaliesFlagged.Load(),
		"llm_api_calls":          m.llmCalls.Load(),
		"avg_response_time_ms":   avgMs,
		"start_time":             m.startTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1e6,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"external_api_stats":       m.GetExternalAPIStats(),

		"circuit_breaker_opens":  m.breakerOpens.Load(),
		"circuit_breaker_closes": m.breakerCloses.Load(),

		"rate_limit_stats": m.GetRateLimitStats(),
	}
}

// Reset zeroes every counter, for tests
func (m *Metrics) Reset() {
	m.requests.Store(0)
	m.errors.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.evaluations.Store(0)
	m.bidsScored.Store(0)
	m.anomaliesFlagged.Store(0)
	m.llmCalls.Store(0)
	m.breakerOpens.Store(0)
	m.breakerCloses.Store(0)
	m.responseSum.Store(0)
	m.responseCount.Store(0)
	m.limitIPBlocks.Store(0)
	m.limitUserBlocks.Store(0)
	m.limitRedisErrors.Store(0)
	m.limitFallbacks.Store(0)

	m.sampleMu.Lock()
	m.samples = m.samples[:0]
	m.sampleMu.Unlock()

	m.statusMu.Lock()
	m.statusCounts = make(map[int]int64)
	m.statusMu.Unlock()

	m.externalMu.Lock()
	m.externalCalls = make(map[string]int64)
	m.externalErrors = make(map[string]int64)
	m.externalMu.Unlock()

	m.limitMu.Lock()
	m.limitByEndpoint = make(map[string]int64)
	m.limitMu.Unlock()

	m.startTime = time.Now()
}

func (m *Metrics) IncrementRateLimitIPBlock()    { m.limitIPBlocks.Add(1) }
func (m *Metrics) IncrementRateLimitUserBlock()  { m.limitUserBlocks.Add(1) }
func (m *Metrics) IncrementRateLimitRedisError() { m.limitRedisErrors.Add(1) }
func (m *Metrics) IncrementRateLimitFallback()   { m.limitFallbacks.Add(1) }

func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.limitMu.Lock()
	defer m.limitMu.Unlock()
	m.limitByEndpoint[endpoint]++
}

func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	m.limitMu.RLock()
	byEndpoint := make(map[string]int64, len(m.limitByEndpoint))
	for k, v := range m.limitByEndpoint {
		byEndpoint[k] = v
	}
	m.limitMu.RUnlock()

	return map[string]interface{}{
		"ip_blocks":       m.limitIPBlocks.Load(),
		"user_blocks":     m.limitUserBlocks.Load(),
		"redis_errors":    m.limitRedisErrors.Load(),
		"fallback_count":  m.limitFallbacks.Load(),
		"endpoint_blocks": byEndpoint,
	}
}

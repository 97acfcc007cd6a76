package resilience

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreakerState is the breaker's position: closed (calls flow),
// open (calls short-circuit) or half-open (probing recovery).
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes when the breaker trips and recovers.
// Zero values fall back to the defaults.
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"`
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`
	SuccessThreshold int           `json:"success_threshold"`
}

// CircuitBreaker guards the external proposal-assessment call so a
// failing upstream stops being hammered and the engine falls back to
// rule-based scoring immediately.
type CircuitBreaker struct {
	config    CircuitBreakerConfig
	state     atomic.Int32
	failures  atomic.Int32
	successes atomic.Int32

	mu          sync.Mutex
	nextAttempt time.Time
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 3
	}
	return &CircuitBreaker{config: config}
}

// Call runs fn under the breaker. While open it returns a
// CircuitBreakerError without invoking fn; once the recovery timeout
// has passed it lets a probe through in half-open state.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if cb.State() == StateOpen {
		cb.mu.Lock()
		waiting := time.Now().Before(cb.nextAttempt)
		cb.mu.Unlock()

		if waiting {
			return NewCircuitBreakerError("circuit breaker is open", StateOpen)
		}
		cb.state.Store(int32(StateHalfOpen))
		cb.successes.Store(0)
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) recordFailure() {
	cb.successes.Store(0)
	if cb.failures.Add(1) >= int32(cb.config.FailureThreshold) {
		cb.state.Store(int32(StateOpen))
		cb.mu.Lock()
		cb.nextAttempt = time.Now().Add(cb.config.RecoveryTimeout)
		cb.mu.Unlock()
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.failures.Store(0)
	if cb.State() == StateHalfOpen {
		if cb.successes.Add(1) >= int32(cb.config.SuccessThreshold) {
			cb.state.Store(int32(StateClosed))
		}
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(cb.state.Load())
}

func (cb *CircuitBreaker) Failures() int {
	return int(cb.failures.Load())
}

// Reset forces the breaker closed, clearing all counters
func (cb *CircuitBreaker) Reset() {
	cb.state.Store(int32(StateClosed))
	cb.failures.Store(0)
	cb.successes.Store(0)
}

// Stats reports the breaker position for diagnostics
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	return map[string]interface{}{
		"state":    cb.State().String(),
		"failures": cb.Failures(),
	}
}

// CircuitBreakerError signals a short-circuited call
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("%s (state=%s)", e.Message, e.State)
}

func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{Message: message, State: state}
}

package resilience

import (
	"sync"
	"time"

	"forum-session-demo/backend/pkg/errors"
	"forum-session-demo/backend/pkg/logger"
)

// State of a circuit breaker.
type State string

const (
	// StateClosed lets requests pass through.
	StateClosed State = "closed"
	// StateOpen short-circuits requests until the retry timeout expires.
	StateOpen State = "open"
	// StateHalfOpen admits a limited number of probe requests.
	StateHalfOpen State = "half-open"
)

// Config holds circuit breaker tuning.
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
}

// DefaultConfig returns the defaults used for the forum client.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// CircuitBreaker guards an external dependency. It performs no retries
// itself; it only refuses calls while the dependency looks down.
type CircuitBreaker struct {
	cfg Config
	log *logger.Logger

	mu              sync.Mutex
	state           State
	failureCount    uint
	successCount    uint
	nextAttemptTime time.Time
}

// New creates a circuit breaker in the closed state.
func New(cfg Config, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, log: log, state: StateClosed}
}

// Execute runs fn through the breaker. While the circuit is open the call is
// refused with a transport-shaped error so upstream components handle it the
// same way as an unreachable service.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		cb.log.Warn("circuit breaker refusing request", "name", cb.cfg.Name)
		return errors.BadGateway(errors.CodeTransport, cb.cfg.Name+" temporarily unavailable")
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Now().After(cb.nextAttemptTime) {
			cb.state = StateHalfOpen
			cb.successCount = 0
			cb.log.Info("circuit breaker half-open", "name", cb.cfg.Name)
			return true
		}
		return false
	case StateHalfOpen:
		return cb.successCount < cb.cfg.SuccessThreshold
	}
	return false
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.log.Info("circuit breaker closed", "name", cb.cfg.Name)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.nextAttemptTime = time.Now().Add(cb.cfg.RetryTimeout)
	cb.log.Info("circuit breaker opened",
		"name", cb.cfg.Name,
		"failures", cb.failureCount,
		"next_attempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

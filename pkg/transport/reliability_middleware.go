package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// CircuitBreakerMiddleware fails fast while the remote side keeps failing.
// It never retries: a refused exchange is reported to the caller at once.
//
// Only transport failures count against the circuit. RPC faults and
// malformed replies are decided above the transport and never reach it.
type CircuitBreakerMiddleware struct {
	breaker *circuitBreaker
}

// NewCircuitBreakerMiddleware creates a new circuit breaker middleware
func NewCircuitBreakerMiddleware(config CircuitBreakerConfig) Middleware {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &CircuitBreakerMiddleware{breaker: newCircuitBreaker(config)}
}

// Wrap implements the Middleware interface
func (cm *CircuitBreakerMiddleware) Wrap(transport Transport) Transport {
	return &circuitBreakerTransport{Base: Base{Next: transport}, breaker: cm.breaker}
}

type circuitBreakerTransport struct {
	Base
	breaker *circuitBreaker
}

func (ct *circuitBreakerTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	if !ct.breaker.canMakeCall() {
		return nil, ct.openError()
	}
	reply, err := ct.Base.Send(ctx, payload)
	ct.record(err)
	return reply, err
}

func (ct *circuitBreakerTransport) Notify(ctx context.Context, payload []byte) error {
	if !ct.breaker.canMakeCall() {
		return ct.openError()
	}
	err := ct.Base.Notify(ctx, payload)
	ct.record(err)
	return err
}

func (ct *circuitBreakerTransport) record(err error) {
	if err != nil && jerrors.IsTransportFailure(err) {
		ct.breaker.recordFailure()
		return
	}
	ct.breaker.recordSuccess()
}

func (ct *circuitBreakerTransport) openError() error {
	return jerrors.TransportFailure(ct.Endpoint(),
		fmt.Sprintf("JSON-RPC circuit to %q is open.", ct.Endpoint()), nil)
}

// circuitBreaker implements a simple circuit breaker
type circuitBreaker struct {
	config    CircuitBreakerConfig
	state     circuitState
	failures  int
	successes int
	lastError time.Time
	now       func() time.Time
	mu        sync.Mutex
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitClosed:
		return "closed"
	case circuitOpen:
		return "open"
	default:
		return "half-open"
	}
}

func newCircuitBreaker(config CircuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{
		config: config,
		state:  circuitClosed,
		now:    time.Now,
	}
}

func (cb *circuitBreaker) canMakeCall() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed, circuitHalfOpen:
		return true
	case circuitOpen:
		if cb.now().Sub(cb.lastError) > cb.config.Timeout {
			cb.state = circuitHalfOpen
			cb.successes = 0
			return true
		}
	}
	return false
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == circuitHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = circuitClosed
		}
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastError = cb.now()
	cb.failures++

	if cb.state == circuitHalfOpen {
		cb.state = circuitOpen
		return
	}

	if cb.failures >= cb.config.FailureThreshold {
		cb.state = circuitOpen
	}
}

func (cb *circuitBreaker) currentState() circuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

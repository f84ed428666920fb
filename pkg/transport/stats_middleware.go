package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// StatsMiddleware keeps in-process counters of exchanges: totals, failures,
// bytes moved and latency. It needs no metrics backend.
type StatsMiddleware struct {
	sends         exchangeMetrics
	notifications exchangeMetrics
}

// NewStatsMiddleware creates a new stats middleware
func NewStatsMiddleware() *StatsMiddleware {
	return &StatsMiddleware{}
}

// Wrap implements the Middleware interface
func (sm *StatsMiddleware) Wrap(transport Transport) Transport {
	return &statsTransport{Base: Base{Next: transport}, middleware: sm}
}

// Stats returns a point-in-time view of the counters
func (sm *StatsMiddleware) Stats() StatsSnapshot {
	return StatsSnapshot{
		Sends:         sm.sends.snapshot(),
		Notifications: sm.notifications.snapshot(),
	}
}

// StatsOf walks a middleware chain and returns the stats of the first stats
// middleware found.
func StatsOf(t Transport) (StatsSnapshot, bool) {
	for t != nil {
		if st, ok := t.(*statsTransport); ok {
			return st.middleware.Stats(), true
		}
		u, ok := t.(interface{ Unwrap() Transport })
		if !ok {
			break
		}
		t = u.Unwrap()
	}
	return StatsSnapshot{}, false
}

type statsTransport struct {
	Base
	middleware *StatsMiddleware
}

func (st *statsTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	reply, err := st.Base.Send(ctx, payload)
	st.middleware.sends.observe(len(payload), len(reply), time.Since(start), err)
	return reply, err
}

func (st *statsTransport) Notify(ctx context.Context, payload []byte) error {
	start := time.Now()
	err := st.Base.Notify(ctx, payload)
	st.middleware.notifications.observe(len(payload), 0, time.Since(start), err)
	return err
}

type exchangeMetrics struct {
	total    atomic.Int64
	errors   atomic.Int64
	bytesOut atomic.Int64
	bytesIn  atomic.Int64
	duration durationTracker
}

func (em *exchangeMetrics) observe(out, in int, d time.Duration, err error) {
	em.total.Add(1)
	if err != nil {
		em.errors.Add(1)
	}
	em.bytesOut.Add(int64(out))
	em.bytesIn.Add(int64(in))
	em.duration.observe(d)
}

func (em *exchangeMetrics) snapshot() ExchangeMetrics {
	total := em.total.Load()
	errs := em.errors.Load()
	return ExchangeMetrics{
		Total:    total,
		Success:  total - errs,
		Errors:   errs,
		BytesOut: em.bytesOut.Load(),
		BytesIn:  em.bytesIn.Load(),
		Duration: em.duration.stats(),
	}
}

// durationTracker tracks duration statistics
type durationTracker struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func (dt *durationTracker) observe(d time.Duration) {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	if dt.count == 0 || d < dt.min {
		dt.min = d
	}
	if d > dt.max {
		dt.max = d
	}
	dt.count++
	dt.total += d
}

func (dt *durationTracker) stats() DurationMetrics {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	if dt.count == 0 {
		return DurationMetrics{}
	}
	return DurationMetrics{
		Count: dt.count,
		Total: dt.total,
		Min:   dt.min,
		Max:   dt.max,
		Avg:   dt.total / time.Duration(dt.count),
	}
}

// StatsSnapshot represents a point-in-time view of transport stats
type StatsSnapshot struct {
	Sends         ExchangeMetrics `json:"sends"`
	Notifications ExchangeMetrics `json:"notifications"`
}

// ExchangeMetrics represents counters for one kind of exchange
type ExchangeMetrics struct {
	Total    int64           `json:"total"`
	Success  int64           `json:"success"`
	Errors   int64           `json:"errors"`
	BytesOut int64           `json:"bytes_out"`
	BytesIn  int64           `json:"bytes_in"`
	Duration DurationMetrics `json:"duration"`
}

// DurationMetrics represents duration statistics
type DurationMetrics struct {
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// String provides a human-readable representation of the stats
func (s StatsSnapshot) String() string {
	return fmt.Sprintf("sends=%d ok=%d failed=%d avg=%v min=%v max=%v notifications=%d failed=%d",
		s.Sends.Total, s.Sends.Success, s.Sends.Errors,
		s.Sends.Duration.Avg, s.Sends.Duration.Min, s.Sends.Duration.Max,
		s.Notifications.Total, s.Notifications.Errors)
}

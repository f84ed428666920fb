// Package utils holds test helpers shared across packages.
package utils

import (
	"runtime"
	"testing"
	"time"
)

// GoroutineLeakDetector fails a test when goroutines started during it are
// still running at the end.
type GoroutineLeakDetector struct {
	tb             testing.TB
	initialCount   int
	allowedGrowth  int
	checkInterval  time.Duration
	settleTimeout  time.Duration
	stabilizeDelay time.Duration
}

// NewGoroutineLeakDetector creates a new goroutine leak detector
func NewGoroutineLeakDetector(tb testing.TB) *GoroutineLeakDetector {
	return &GoroutineLeakDetector{
		tb:             tb,
		checkInterval:  50 * time.Millisecond,
		settleTimeout:  2 * time.Second,
		stabilizeDelay: 100 * time.Millisecond,
	}
}

// Start records the initial goroutine count
func (d *GoroutineLeakDetector) Start() {
	d.tb.Helper()
	time.Sleep(d.stabilizeDelay)
	d.initialCount = runtime.NumGoroutine()
}

// Check polls until the goroutine count is back within the allowed growth or
// the settle timeout passes, in which case the test fails with every stack.
func (d *GoroutineLeakDetector) Check() {
	d.tb.Helper()

	deadline := time.Now().Add(d.settleTimeout)
	count := runtime.NumGoroutine()
	for count-d.initialCount > d.allowedGrowth && time.Now().Before(deadline) {
		time.Sleep(d.checkInterval)
		count = runtime.NumGoroutine()
	}

	leaked := count - d.initialCount
	if leaked <= d.allowedGrowth {
		return
	}

	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	d.tb.Errorf("goroutine leak: started with %d, ended with %d (leaked %d, allowed %d)\n%s",
		d.initialCount, count, leaked, d.allowedGrowth, buf[:n])
}

// SetAllowedGrowth sets the number of goroutines allowed to grow
func (d *GoroutineLeakDetector) SetAllowedGrowth(n int) *GoroutineLeakDetector {
	d.allowedGrowth = n
	return d
}

// SetSettleTimeout bounds how long Check waits for goroutines to exit
func (d *GoroutineLeakDetector) SetSettleTimeout(timeout time.Duration) *GoroutineLeakDetector {
	d.settleTimeout = timeout
	return d
}

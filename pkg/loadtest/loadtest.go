// Package loadtest drives a JSON-RPC client with concurrent calls and
// summarizes throughput, latency and failures.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/C3rb/Josser/pkg/client"
	jerrors "github.com/C3rb/Josser/pkg/errors"
	"github.com/C3rb/Josser/pkg/logging"
)

// Config configures a load test run
type Config struct {
	// Method and Params are sent on every call
	Method string
	Params interface{}

	// Notify sends notifications instead of requests
	Notify bool

	// Requests is the total number of calls (0 = run until Duration expires)
	Requests int

	// Concurrency bounds the calls in flight
	Concurrency int

	// RateLimit caps calls per second (0 = unlimited)
	RateLimit float64

	// Duration stops the run early (0 = run until all calls complete)
	Duration time.Duration

	// ReportInterval controls progress logging (0 = no progress logs)
	ReportInterval time.Duration
}

// Result contains the results of a load test
type Result struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalDuration      time.Duration

	// Latency statistics
	MinLatency time.Duration
	MaxLatency time.Duration
	AvgLatency time.Duration
	P50Latency time.Duration
	P90Latency time.Duration
	P95Latency time.Duration
	P99Latency time.Duration

	// Throughput
	RequestsPerSecond float64

	// ErrorCounts counts failures by error category
	ErrorCounts map[string]int64
}

// Tester runs load against one client
type Tester struct {
	config Config
	client *client.Client
	logger logging.Logger

	totalRequests      atomic.Int64
	successfulRequests atomic.Int64
	failedRequests     atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	errorCounts map[string]int64
}

// New creates a tester. A nil logger disables progress logs.
func New(c *client.Client, config Config, logger logging.Logger) (*Tester, error) {
	if c == nil {
		return nil, errors.New("loadtest: client is required")
	}
	if config.Method == "" {
		return nil, errors.New("loadtest: method is required")
	}
	if config.Requests <= 0 && config.Duration <= 0 {
		return nil, errors.New("loadtest: requests or duration must be set")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tester{
		config:      config,
		client:      c,
		logger:      logger.WithFields(logging.String("component", "loadtest")),
		errorCounts: make(map[string]int64),
	}, nil
}

// Run executes the load test. Failed calls are counted, not returned; the
// error is only set when ctx ends before the run is complete.
func (lt *Tester) Run(ctx context.Context) (*Result, error) {
	if lt.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lt.config.Duration)
		defer cancel()
	}

	var limiter *rate.Limiter
	if lt.config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(lt.config.RateLimit), 1)
	}

	start := time.Now()
	stop := make(chan struct{})
	if lt.config.ReportInterval > 0 {
		go lt.reportProgress(stop)
	}

	g := new(errgroup.Group)
	g.SetLimit(lt.config.Concurrency)

	var runErr error
	for i := 0; lt.config.Requests <= 0 || i < lt.config.Requests; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// a wait past the deadline ends the run like the deadline does
				runErr = ctx.Err()
				if runErr == nil {
					runErr = context.DeadlineExceeded
				}
				break
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		g.Go(func() error {
			lt.execute(ctx)
			return nil
		})
	}
	_ = g.Wait()
	close(stop)

	result := lt.calculateResults(time.Since(start))
	if lt.config.Duration > 0 && errors.Is(runErr, context.DeadlineExceeded) {
		runErr = nil
	}
	return result, runErr
}

func (lt *Tester) execute(ctx context.Context) {
	lt.totalRequests.Add(1)

	start := time.Now()
	var err error
	if lt.config.Notify {
		err = lt.client.Notify(ctx, lt.config.Method, lt.config.Params)
	} else {
		_, err = lt.client.Request(ctx, lt.config.Method, lt.config.Params)
	}
	duration := time.Since(start)

	lt.mu.Lock()
	lt.latencies = append(lt.latencies, duration)
	if err != nil {
		lt.errorCounts[categoryOf(err)]++
	}
	lt.mu.Unlock()

	if err != nil {
		lt.failedRequests.Add(1)
		return
	}
	lt.successfulRequests.Add(1)
}

func categoryOf(err error) string {
	if jerr, ok := jerrors.AsJosserError(err); ok {
		return string(jerr.Category())
	}
	return "unknown"
}

// reportProgress periodically reports test progress
func (lt *Tester) reportProgress(stop <-chan struct{}) {
	ticker := time.NewTicker(lt.config.ReportInterval)
	defer ticker.Stop()

	lastRequests := int64(0)
	lastTime := time.Now()

	for {
		select {
		case <-ticker.C:
			current := lt.totalRequests.Load()
			now := time.Now()
			rps := float64(current-lastRequests) / now.Sub(lastTime).Seconds()

			lt.logger.Info("Progress",
				logging.Any("requests", current),
				logging.Any("rps", math.Round(rps*10)/10),
				logging.Any("successful", lt.successfulRequests.Load()),
				logging.Any("failed", lt.failedRequests.Load()),
			)

			lastRequests = current
			lastTime = now
		case <-stop:
			return
		}
	}
}

// calculateResults computes the final test results
func (lt *Tester) calculateResults(duration time.Duration) *Result {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	result := &Result{
		TotalRequests:      lt.totalRequests.Load(),
		SuccessfulRequests: lt.successfulRequests.Load(),
		FailedRequests:     lt.failedRequests.Load(),
		TotalDuration:      duration,
		ErrorCounts:        make(map[string]int64, len(lt.errorCounts)),
	}
	if duration > 0 {
		result.RequestsPerSecond = float64(result.TotalRequests) / duration.Seconds()
	}
	for category, n := range lt.errorCounts {
		result.ErrorCounts[category] = n
	}

	if len(lt.latencies) == 0 {
		return result
	}

	sorted := slices.Clone(lt.latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	result.MinLatency = sorted[0]
	result.MaxLatency = sorted[len(sorted)-1]
	result.AvgLatency = sum / time.Duration(len(sorted))
	result.P50Latency = percentile(sorted, 50)
	result.P90Latency = percentile(sorted, 90)
	result.P95Latency = percentile(sorted, 95)
	result.P99Latency = percentile(sorted, 99)
	return result
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	index := int(math.Ceil(float64(len(sorted))*p/100.0)) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// Print writes the results in a readable format
func (r *Result) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Load Test Results ===")
	fmt.Fprintf(w, "Total Duration: %s\n", r.TotalDuration)
	fmt.Fprintf(w, "Total Requests: %d\n", r.TotalRequests)
	if r.TotalRequests > 0 {
		fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", r.SuccessfulRequests,
			float64(r.SuccessfulRequests)/float64(r.TotalRequests)*100)
		fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", r.FailedRequests,
			float64(r.FailedRequests)/float64(r.TotalRequests)*100)
	}
	fmt.Fprintf(w, "Requests/sec: %.2f\n", r.RequestsPerSecond)

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min: %s\n", r.MinLatency)
	fmt.Fprintf(w, "  Avg: %s\n", r.AvgLatency)
	fmt.Fprintf(w, "  P50: %s\n", r.P50Latency)
	fmt.Fprintf(w, "  P90: %s\n", r.P90Latency)
	fmt.Fprintf(w, "  P95: %s\n", r.P95Latency)
	fmt.Fprintf(w, "  P99: %s\n", r.P99Latency)
	fmt.Fprintf(w, "  Max: %s\n", r.MaxLatency)

	if len(r.ErrorCounts) > 0 {
		fmt.Fprintln(w, "\nErrors by category:")
		categories := make([]string, 0, len(r.ErrorCounts))
		for c := range r.ErrorCounts {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(w, "  %s: %d\n", c, r.ErrorCounts[c])
		}
	}
}

package utils

import (
	"fmt"
	"testing"
	"time"
)

// recordingTB captures failures instead of failing the surrounding test.
type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(format string, args ...interface{}) {
	r.failed = true
	_ = fmt.Sprintf(format, args...)
}

func TestGoroutineLeakDetector(t *testing.T) {
	t.Run("NoLeak", func(t *testing.T) {
		detector := NewGoroutineLeakDetector(t)
		detector.Start()

		ch := make(chan struct{})
		go func() {
			ch <- struct{}{}
		}()
		<-ch

		detector.Check()
	})

	t.Run("WaitsForExit", func(t *testing.T) {
		detector := NewGoroutineLeakDetector(t)
		detector.Start()

		go time.Sleep(150 * time.Millisecond)

		detector.Check()
	})

	t.Run("DetectsLeak", func(t *testing.T) {
		rec := &recordingTB{}
		detector := NewGoroutineLeakDetector(rec).SetSettleTimeout(200 * time.Millisecond)
		detector.Start()

		stop := make(chan struct{})
		go func() {
			<-stop
		}()

		detector.Check()
		close(stop)

		if !rec.failed {
			t.Error("expected the detector to report a leak")
		}
	})
}

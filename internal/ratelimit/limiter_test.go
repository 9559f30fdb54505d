package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock returns a limiter driven by a manually advanced clock.
func fakeClock(perSecond float64, burst int) (*Limiter, func(time.Duration)) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(perSecond, burst)
	l.now = func() time.Time { return now }
	return l, func(d time.Duration) { now = now.Add(d) }
}

func TestAllow_Scenarios(t *testing.T) {
	type step struct {
		advance time.Duration
		want    bool
	}

	tests := []struct {
		name      string
		perSecond float64
		burst     int
		steps     []step
	}{
		{
			name:      "burst then exhausted",
			perSecond: 1,
			burst:     3,
			steps:     []step{{0, true}, {0, true}, {0, true}, {0, false}},
		},
		{
			name:      "refill after wait",
			perSecond: 10,
			burst:     2,
			steps:     []step{{0, true}, {0, true}, {0, false}, {200 * time.Millisecond, true}, {0, true}, {0, false}},
		},
		{
			name:      "refill capped at burst",
			perSecond: 100,
			burst:     2,
			steps:     []step{{0, true}, {0, true}, {10 * time.Second, true}, {0, true}, {0, false}},
		},
		{
			name:      "fractional refill accumulates",
			perSecond: 2,
			burst:     1,
			steps:     []step{{0, true}, {250 * time.Millisecond, false}, {250 * time.Millisecond, true}},
		},
		{
			name:      "zero rate never refills",
			perSecond: 0,
			burst:     1,
			steps:     []step{{0, true}, {time.Hour, false}},
		},
		{
			name:      "zero burst always denies",
			perSecond: 10,
			burst:     0,
			steps:     []step{{0, false}, {time.Second, false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, advance := fakeClock(tt.perSecond, tt.burst)
			for i, s := range tt.steps {
				advance(s.advance)
				if got := l.Allow("k"); got != s.want {
					t.Fatalf("step %d: Allow() = %v, want %v", i, got, s.want)
				}
			}
		})
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := fakeClock(0, 1)

	if !l.Allow("127.0.0.1") {
		t.Fatal("first request for 127.0.0.1 should be allowed")
	}
	if l.Allow("127.0.0.1") {
		t.Error("second request for 127.0.0.1 should be denied")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("another client should have its own bucket")
	}
}

func TestPerMinute(t *testing.T) {
	l := PerMinute(120, 4)
	if l.perSecond != 2.0 {
		t.Errorf("perSecond = %f, want 2.0", l.perSecond)
	}
	if l.burst != 4 {
		t.Errorf("burst = %v, want 4", l.burst)
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := NewLimiter(0, 50)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Errorf("allowed = %d, want exactly burst (50)", got)
	}
}

func TestAllow_PrunesIdleBuckets(t *testing.T) {
	l, advance := fakeClock(1.0, 2)

	l.Allow("client-a")
	l.Allow("client-b")
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	advance(idleBucketTTL + time.Second)
	l.Allow("client-c")

	if l.Len() != 1 {
		t.Errorf("Len() after idle period = %d, want 1", l.Len())
	}
}

func TestAllow_KeepsDrainedBucketsWithoutRefill(t *testing.T) {
	l, advance := fakeClock(0, 1)

	l.Allow("client-a")
	advance(idleBucketTTL + time.Second)

	if l.Allow("client-a") {
		t.Error("drained bucket with zero rate must not be reset by pruning")
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()

	tests := []struct {
		tool  string
		burst float64
	}{
		{"aisoc_simulate", 5},
		{"aisoc_runs", 10},
		{"aisoc_run", 10},
	}

	if len(limiters) != len(tests) {
		t.Errorf("len(limiters) = %d, want %d", len(limiters), len(tests))
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			l, ok := limiters[tt.tool]
			if !ok {
				t.Fatalf("missing rate limiter for tool: %s", tt.tool)
			}
			if l.burst != tt.burst {
				t.Errorf("burst = %v, want %v", l.burst, tt.burst)
			}
		})
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := ToolLimiters{
		"aisoc_simulate": NewLimiter(0, 1),
	}

	if err := CheckLimit(limiters, "aisoc_simulate"); err != nil {
		t.Fatalf("first call: unexpected error %v", err)
	}

	err := CheckLimit(limiters, "aisoc_simulate")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second call: err = %v, want ErrRateLimited", err)
	}
	if want := fmt.Sprintf("%v for aisoc_simulate, please try again shortly", ErrRateLimited); err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	for i := 0; i < 3; i++ {
		if err := CheckLimit(limiters, "aisoc_unlisted"); err != nil {
			t.Errorf("unlisted tool should never be limited, got %v", err)
		}
	}
}

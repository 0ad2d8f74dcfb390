package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fixedAvailability struct {
	n atomic.Int64
}

func available(n int) *fixedAvailability {
	a := &fixedAvailability{}
	a.n.Store(int64(n))
	return a
}

func (a *fixedAvailability) EligibleCount() int { return int(a.n.Load()) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestThrottle(t *testing.T, pool Availability, cfg Config) (*Throttle, *fakeClock) {
	t.Helper()
	throttle, err := NewThrottle(pool, cfg, nil)
	if err != nil {
		t.Fatalf("NewThrottle: %v", err)
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	throttle.nowFunc = clock.Now
	return throttle, clock
}

func TestNewThrottle_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"zero window", Config{Window: 0, MaxRequests: 1}, ErrInvalidWindow},
		{"zero max", Config{Window: time.Second, MaxRequests: 0}, ErrInvalidCapacity},
		{"negative interval", Config{Window: time.Second, MaxRequests: 1, BaseInterval: -1}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThrottle(available(1), tt.cfg, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := NewThrottle(nil, DefaultConfig(), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil pool, got %v", err)
	}
}

func TestThrottle_ClientWindow(t *testing.T) {
	throttle, clock := newTestThrottle(t, available(1), DefaultConfig())

	// One credential: 15 per minute, 3s apart.
	for i := 0; i < 15; i++ {
		if !throttle.Allow("10.0.0.1") {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
		clock.Advance(3 * time.Second)
	}

	if throttle.Allow("10.0.0.1") {
		t.Error("expected request 16 inside the window to be rejected")
	}

	// Another client is unaffected by the first client's window.
	if !throttle.Allow("10.0.0.2") {
		t.Error("expected a different client to be allowed")
	}

	// At 60s the first request leaves the window.
	clock.Advance(15 * time.Second)
	if !throttle.Allow("10.0.0.1") {
		t.Error("expected request to be allowed once the oldest entry expired")
	}
}

func TestThrottle_RejectionIsNotRecorded(t *testing.T) {
	cfg := Config{Window: time.Minute, MaxRequests: 2, BaseInterval: 0}
	throttle, clock := newTestThrottle(t, available(1), cfg)

	throttle.Allow("c")
	throttle.Allow("c")
	for i := 0; i < 5; i++ {
		if throttle.Allow("c") {
			t.Fatal("expected rejection with a full window")
		}
	}

	clock.Advance(time.Minute)
	if !throttle.Allow("c") || !throttle.Allow("c") {
		t.Error("expected rejected attempts not to consume window budget")
	}
}

func TestThrottle_MaxScalesWithAvailability(t *testing.T) {
	tests := []struct {
		available int
		want      int
	}{
		{1, 3},
		{2, 3},
		{3, 3},
		{4, 6},
		{7, 9},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("available=%d", tt.available), func(t *testing.T) {
			cfg := Config{Window: time.Minute, MaxRequests: 3, BaseInterval: 0}
			throttle, _ := newTestThrottle(t, available(tt.available), cfg)

			allowed := 0
			for i := 0; i < 20; i++ {
				if throttle.Allow("client") {
					allowed++
				}
			}
			if allowed != tt.want {
				t.Errorf("expected %d admitted, got %d", tt.want, allowed)
			}
		})
	}
}

func TestThrottle_MinIntervalScalesWithAvailability(t *testing.T) {
	throttle, clock := newTestThrottle(t, available(3), DefaultConfig())

	if !throttle.Allow("a") {
		t.Fatal("expected first request to be allowed")
	}

	// 3s / 3 credentials = 1s between admissions, across all clients.
	clock.Advance(999 * time.Millisecond)
	if throttle.Allow("b") {
		t.Error("expected rejection inside the minimum interval")
	}

	clock.Advance(time.Millisecond)
	if !throttle.Allow("b") {
		t.Error("expected admission once the minimum interval passed")
	}
}

func TestThrottle_NoCredentials(t *testing.T) {
	pool := available(0)
	throttle, _ := newTestThrottle(t, pool, DefaultConfig())

	if throttle.Allow("client") {
		t.Error("expected rejection with no eligible credentials")
	}
	if throttle.Clients() != 0 {
		t.Errorf("expected no window created, got %d clients", throttle.Clients())
	}

	pool.n.Store(1)
	if !throttle.Allow("client") {
		t.Error("expected admission once a credential is eligible")
	}
}

func TestThrottle_GlobalCooldown(t *testing.T) {
	throttle, clock := newTestThrottle(t, available(2), DefaultConfig())

	throttle.TriggerGlobalCooldown(20 * time.Second)

	for _, key := range []string{"fresh-1", "fresh-2", "fresh-3"} {
		if throttle.Allow(key) {
			t.Errorf("expected %s to be rejected during cooldown", key)
		}
		clock.Advance(5 * time.Second)
	}

	if throttle.CooldownRemaining() != 5*time.Second {
		t.Errorf("expected 5s remaining, got %v", throttle.CooldownRemaining())
	}

	clock.Advance(5 * time.Second)
	if !throttle.Allow("fresh-1") {
		t.Error("expected admission after the cooldown ended")
	}
}

func TestThrottle_RetryAfter(t *testing.T) {
	throttle, clock := newTestThrottle(t, available(1), DefaultConfig())

	if got := throttle.RetryAfterSeconds(); got != 60 {
		t.Errorf("expected window length 60s without cooldown, got %d", got)
	}

	throttle.TriggerGlobalCooldown(20 * time.Second)
	clock.Advance(4500 * time.Millisecond)

	if got := throttle.RetryAfterSeconds(); got != 16 {
		t.Errorf("expected 16s (rounded up) during cooldown, got %d", got)
	}
}

func TestThrottle_PruneIdle(t *testing.T) {
	cfg := Config{Window: time.Minute, MaxRequests: 5, BaseInterval: 0}
	throttle, clock := newTestThrottle(t, available(1), cfg)

	throttle.Allow("old")
	clock.Advance(40 * time.Second)
	throttle.Allow("recent")

	clock.Advance(30 * time.Second)
	if removed := throttle.PruneIdle(); removed != 1 {
		t.Errorf("expected 1 idle client removed, got %d", removed)
	}
	if throttle.Clients() != 1 {
		t.Errorf("expected 1 client left, got %d", throttle.Clients())
	}

	clock.Advance(time.Minute)
	throttle.PruneIdle()
	if throttle.Clients() != 0 {
		t.Errorf("expected no clients left, got %d", throttle.Clients())
	}
}

func TestThrottle_Concurrent(t *testing.T) {
	cfg := Config{Window: time.Minute, MaxRequests: 10, BaseInterval: 0}
	throttle, _ := newTestThrottle(t, available(1), cfg)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if throttle.Allow("shared") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 10 {
		t.Errorf("expected exactly 10 admissions, got %d", admitted.Load())
	}
}

package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/vinayprograms/relaykit/logging"
)

// Availability reports how many credentials can currently serve a request.
// *credentials.Pool satisfies it.
type Availability interface {
	EligibleCount() int
}

// Config holds the throttle tunables.
type Config struct {
	// Window is the per-client sliding window length.
	Window time.Duration `json:"window" toml:"window" yaml:"window"`

	// MaxRequests is the per-client budget per window with one or two
	// credentials available. It scales with floor(available/2).
	MaxRequests int `json:"max_requests" toml:"max_requests" yaml:"max_requests"`

	// BaseInterval is the process-wide minimum spacing between admissions
	// with one credential available. It shrinks as 1/available.
	BaseInterval time.Duration `json:"base_interval" toml:"base_interval" yaml:"base_interval"`
}

// DefaultConfig returns the stock limits: 15 requests per minute per client
// and 3s between admissions.
func DefaultConfig() Config {
	return Config{
		Window:       time.Minute,
		MaxRequests:  15,
		BaseInterval: 3 * time.Second,
	}
}

// Validate checks the tunables.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive", ErrInvalidWindow)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive", ErrInvalidCapacity)
	}
	if c.BaseInterval < 0 {
		return fmt.Errorf("%w: base interval must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Rejection reasons reported to the admission log.
const (
	ReasonNoCredentials = "no_credentials"
	ReasonCooldown      = "global_cooldown"
	ReasonInterval      = "min_interval"
	ReasonWindow        = "client_window"
)

// Throttle is the admission gate: a per-client sliding window plus a
// process-wide minimum interval and cooldown. It is safe for concurrent use.
type Throttle struct {
	mu            sync.Mutex
	cfg           Config
	pool          Availability
	windows       map[string][]time.Time
	cooldownUntil time.Time
	lastRequestAt time.Time
	log           *logging.Logger
	nowFunc       func() time.Time // for testing
}

// NewThrottle creates a throttle that scales its limits with pool availability.
func NewThrottle(pool Availability, cfg Config, log *logging.Logger) (*Throttle, error) {
	if pool == nil {
		return nil, fmt.Errorf("%w: availability source is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}

	return &Throttle{
		cfg:     cfg,
		pool:    pool,
		windows: make(map[string][]time.Time),
		log:     log.WithComponent("throttle"),
		nowFunc: time.Now,
	}, nil
}

// Allow decides whether a request from clientKey is admitted. Checks run in
// a fixed order and stop at the first failure; only an admitted request is
// recorded.
func (t *Throttle) Allow(clientKey string) bool {
	available := t.pool.EligibleCount()

	allowed, reason := t.admit(clientKey, available)
	t.log.Admission(clientKey, allowed, reason)
	return allowed
}

func (t *Throttle) admit(clientKey string, available int) (bool, string) {
	if available == 0 {
		return false, ReasonNoCredentials
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()

	if now.Before(t.cooldownUntil) {
		return false, ReasonCooldown
	}

	minInterval := t.cfg.BaseInterval / time.Duration(max(1, available))
	if now.Sub(t.lastRequestAt) < minInterval {
		return false, ReasonInterval
	}

	requests := t.pruneLocked(clientKey, now)
	adjustedMax := t.cfg.MaxRequests * max(1, available/2)
	if len(requests) >= adjustedMax {
		return false, ReasonWindow
	}

	t.windows[clientKey] = append(requests, now)
	t.lastRequestAt = now
	return true, ""
}

// pruneLocked drops timestamps that have left the window and stores the
// result. Caller must hold t.mu.
func (t *Throttle) pruneLocked(clientKey string, now time.Time) []time.Time {
	windowStart := now.Add(-t.cfg.Window)
	requests := t.windows[clientKey]

	i := 0
	for i < len(requests) && !requests[i].After(windowStart) {
		i++
	}
	if i > 0 {
		requests = requests[i:]
		t.windows[clientKey] = requests
	}
	return requests
}

// TriggerGlobalCooldown rejects every admission for d.
func (t *Throttle) TriggerGlobalCooldown(d time.Duration) {
	t.mu.Lock()
	t.cooldownUntil = t.nowFunc().Add(d)
	until := t.cooldownUntil
	t.mu.Unlock()

	t.log.CooldownTriggered(until)
}

// CooldownRemaining returns how long the global cooldown still holds.
func (t *Throttle) CooldownRemaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.cooldownUntil.Sub(t.nowFunc())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter is the wait suggested to a rejected client: the rest of the
// cooldown when one is active, otherwise a full window.
func (t *Throttle) RetryAfter() time.Duration {
	if remaining := t.CooldownRemaining(); remaining > 0 {
		return remaining
	}
	return t.cfg.Window
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (t *Throttle) RetryAfterSeconds() int {
	return int(math.Ceil(t.RetryAfter().Seconds()))
}

// PruneIdle drops every client whose window is empty after pruning and
// returns how many were removed.
func (t *Throttle) PruneIdle() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	removed := 0
	for key := range t.windows {
		if len(t.pruneLocked(key, now)) == 0 {
			delete(t.windows, key)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked client keys.
func (t *Throttle) Clients() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}

package credentials

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/vinayprograms/relaykit/llm"
	"github.com/vinayprograms/relaykit/logging"
)

// DefaultRotationDelay is the preferred minimum spacing between two uses of
// the same credential.
const DefaultRotationDelay = 1500 * time.Millisecond

// ErrNoCredentials is returned when a pool is built from an empty key list.
var ErrNoCredentials = fmt.Errorf("no credentials configured")

// Entry is one backend credential plus its availability bookkeeping.
// Index and Backend are immutable; the rest is guarded by the owning Pool.
type Entry struct {
	Index   int
	Backend llm.Backend

	lastUsedAt   time.Time
	limited      bool
	limitedUntil time.Time
}

// eligible reports whether the entry can be selected at now.
// Caller must hold the pool lock.
func (e *Entry) eligible(now time.Time) bool {
	return !e.limited || now.After(e.limitedUntil)
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// RotationDelay is a soft minimum spacing between uses of one credential.
	RotationDelay time.Duration

	// Logger receives credential state transitions. Nil disables logging.
	Logger *logging.Logger
}

// LimitedEntry describes one credential currently sidelined.
type LimitedEntry struct {
	Index            int `json:"keyIndex"`
	RemainingSeconds int `json:"remainingTime"`
}

// Snapshot is a read-only view of pool availability.
type Snapshot struct {
	Total     int            `json:"totalApiKeys"`
	Available int            `json:"availableApiKeys"`
	Limited   []LimitedEntry `json:"rateLimitDetails"`
}

// Pool owns the fixed set of credential entries for the process lifetime.
// It is safe for concurrent use.
type Pool struct {
	mu            sync.Mutex
	entries       []*Entry
	rotationDelay time.Duration
	log           *logging.Logger
	nowFunc       func() time.Time // for testing
}

// NewPool creates a pool with one entry per backend, indexed from 1.
// Returns ErrNoCredentials if backends is empty.
func NewPool(backends []llm.Backend, cfg PoolConfig) (*Pool, error) {
	if len(backends) == 0 {
		return nil, ErrNoCredentials
	}

	if cfg.RotationDelay < 0 {
		return nil, fmt.Errorf("rotation delay must not be negative")
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	entries := lo.Map(backends, func(b llm.Backend, i int) *Entry {
		return &Entry{Index: i + 1, Backend: b}
	})

	return &Pool{
		entries:       entries,
		rotationDelay: cfg.RotationDelay,
		log:           log.WithComponent("pool"),
		nowFunc:       time.Now,
	}, nil
}

// Size returns the number of entries.
func (p *Pool) Size() int {
	return len(p.entries)
}

// Acquire selects the eligible entry least recently used successfully.
// It returns nil when every entry is limited. When excluding is set and more
// than one entry is eligible, an entry other than excluding is preferred.
// Acquire does not mutate any entry.
func (p *Pool) Acquire(excluding *Entry) *Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowFunc()
	eligible := p.eligibleLocked(now)
	if len(eligible) == 0 {
		return nil
	}

	selected := leastRecentlyUsed(eligible)

	// Spacing is a soft preference.
	if now.Sub(selected.lastUsedAt) < p.rotationDelay {
		if ready, ok := lo.Find(eligible, func(e *Entry) bool {
			return now.Sub(e.lastUsedAt) >= p.rotationDelay
		}); ok {
			selected = ready
		}
	}

	if excluding != nil && selected == excluding && len(eligible) > 1 {
		others := lo.Filter(eligible, func(e *Entry, _ int) bool {
			return e != excluding
		})
		selected = leastRecentlyUsed(others)
	}

	return selected
}

// MarkLimited sidelines entry for d.
func (p *Pool) MarkLimited(entry *Entry, d time.Duration) {
	if entry == nil {
		return
	}

	p.mu.Lock()
	entry.limited = true
	entry.limitedUntil = p.nowFunc().Add(d)
	p.mu.Unlock()
}

// RecordSuccess stamps the entry as just used and lazily clears an expired limit.
func (p *Pool) RecordSuccess(entry *Entry) {
	if entry == nil {
		return
	}

	p.mu.Lock()
	now := p.nowFunc()
	if now.After(entry.lastUsedAt) {
		entry.lastUsedAt = now
	}
	recovered := false
	if entry.limited && now.After(entry.limitedUntil) {
		entry.limited = false
		recovered = true
	}
	p.mu.Unlock()

	if recovered {
		p.log.CredentialRecovered(entry.Index)
	}
}

// EligibleCount returns how many entries are currently selectable.
func (p *Pool) EligibleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.eligibleLocked(p.nowFunc()))
}

// Snapshot returns availability for health reporting.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowFunc()
	limited := lo.FilterMap(p.entries, func(e *Entry, _ int) (LimitedEntry, bool) {
		if e.eligible(now) {
			return LimitedEntry{}, false
		}
		remaining := int(math.Ceil(e.limitedUntil.Sub(now).Seconds()))
		return LimitedEntry{Index: e.Index, RemainingSeconds: max(0, remaining)}, true
	})

	return Snapshot{
		Total:     len(p.entries),
		Available: len(p.entries) - len(limited),
		Limited:   limited,
	}
}

// Close closes every backend and returns the first error.
func (p *Pool) Close() error {
	var firstErr error
	for _, e := range p.entries {
		if err := e.Backend.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("credential %d: %w", e.Index, err)
		}
	}
	return firstErr
}

func (p *Pool) eligibleLocked(now time.Time) []*Entry {
	return lo.Filter(p.entries, func(e *Entry, _ int) bool {
		return e.eligible(now)
	})
}

// leastRecentlyUsed returns the entry with the oldest lastUsedAt.
// Ties go to the lowest index.
func leastRecentlyUsed(entries []*Entry) *Entry {
	return lo.MinBy(entries, func(a, b *Entry) bool {
		return a.lastUsedAt.Before(b.lastUsedAt)
	})
}

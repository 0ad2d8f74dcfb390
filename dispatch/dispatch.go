// Package dispatch runs one logical generate request against the credential
// pool: it picks a credential, paces the call, classifies failures, and
// retries on a different credential with linear backoff.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/vinayprograms/relaykit/credentials"
	"github.com/vinayprograms/relaykit/errors"
	"github.com/vinayprograms/relaykit/llm"
	"github.com/vinayprograms/relaykit/logging"
)

// Pool is the credential pool as seen by the dispatcher.
// *credentials.Pool satisfies it.
type Pool interface {
	Acquire(excluding *credentials.Entry) *credentials.Entry
	MarkLimited(entry *credentials.Entry, d time.Duration)
	RecordSuccess(entry *credentials.Entry)
	Size() int
}

// Cooldown is the throttle's global cooldown gate.
// *ratelimit.Throttle satisfies it.
type Cooldown interface {
	TriggerGlobalCooldown(d time.Duration)
}

// Config holds the dispatcher tunables.
type Config struct {
	MaxRetries       int           `json:"max_retries" toml:"max_retries" yaml:"max_retries"`
	RetryDelay       time.Duration `json:"retry_delay" toml:"retry_delay" yaml:"retry_delay"`
	PacingDelay      time.Duration `json:"pacing_delay" toml:"pacing_delay" yaml:"pacing_delay"`
	GlobalCooldown   time.Duration `json:"global_cooldown" toml:"global_cooldown" yaml:"global_cooldown"`
	RateLimitPenalty time.Duration `json:"rate_limit_penalty" toml:"rate_limit_penalty" yaml:"rate_limit_penalty"`
	QuotaZeroPenalty time.Duration `json:"quota_zero_penalty" toml:"quota_zero_penalty" yaml:"quota_zero_penalty"`

	// Generation is fixed at startup and sent with every call.
	Generation llm.GenerationConfig `json:"generation" toml:"generation" yaml:"generation"`
}

// DefaultConfig returns the stock dispatch settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       2,
		RetryDelay:       2 * time.Second,
		PacingDelay:      time.Second,
		GlobalCooldown:   20 * time.Second,
		RateLimitPenalty: 2 * time.Minute,
		QuotaZeroPenalty: 24 * time.Hour,
		Generation: llm.GenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 500,
		},
	}
}

// Validate checks the tunables.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.RetryDelay < 0 || c.PacingDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.GlobalCooldown <= 0 || c.RateLimitPenalty <= 0 || c.QuotaZeroPenalty <= 0 {
		return fmt.Errorf("cooldown and penalties must be positive")
	}
	if c.Generation.MaxOutputTokens <= 0 {
		return fmt.Errorf("max output tokens must be positive")
	}
	return nil
}

// Dispatcher executes generate requests. It owns no credential or throttle
// state; it drives both through their public operations. Safe for concurrent use.
type Dispatcher struct {
	pool     Pool
	cooldown Cooldown
	cfg      Config
	log      *logging.Logger
}

// New creates a dispatcher. cooldown may be nil when no throttle is in front.
func New(pool Pool, cooldown Cooldown, cfg Config, log *logging.Logger) (*Dispatcher, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Dispatcher{
		pool:     pool,
		cooldown: cooldown,
		cfg:      cfg,
		log:      log.WithComponent("dispatch"),
	}, nil
}

// Generate sends prompt to the backend and returns the first candidate's text.
// Every failure is an *errors.Error carrying one dispatch error code.
func (d *Dispatcher) Generate(ctx context.Context, prompt string) (string, error) {
	log := d.log.WithTraceID(uuid.NewString())
	start := time.Now()

	text, attempts, err := d.run(ctx, log, prompt)
	log.GenerateComplete(attempts, time.Since(start), err)
	return text, err
}

// run is the retry loop. It returns the number of backend calls made.
func (d *Dispatcher) run(ctx context.Context, log *logging.Logger, prompt string) (string, int, error) {
	schedule := newRetrySchedule(d.cfg.RetryDelay, d.cfg.MaxRetries)

	var previous *credentials.Entry
	for attempt := 0; ; attempt++ {
		entry := d.pool.Acquire(previous)
		if entry == nil {
			if d.cooldown != nil {
				d.cooldown.TriggerGlobalCooldown(d.cfg.GlobalCooldown)
			}
			return "", attempt, errors.AllCredentialsExhausted(
				errors.WithAttempts(attempt),
				errors.WithRetryAfter(d.cfg.GlobalCooldown),
			)
		}
		log.CredentialSelected(entry.Index, d.pool.Size(), attempt)

		if err := sleep(ctx, d.cfg.PacingDelay); err != nil {
			return "", attempt, errors.Wrap(err, "canceled before backend call", errors.WithAttempts(attempt))
		}

		calls := attempt + 1
		opts := []errors.Option{errors.WithAttempts(calls), errors.WithCredential(entry.Index)}

		resp, err := entry.Backend.Generate(ctx, prompt, d.cfg.Generation)
		if err == nil {
			text, invalid := validate(resp, opts)
			if invalid != nil {
				// Final, and says nothing about the credential.
				log.AttemptFailed(entry.Index, attempt, string(invalid.Code()), invalid)
				return "", calls, invalid
			}
			d.pool.RecordSuccess(entry)
			return text, calls, nil
		}

		if ctx.Err() != nil {
			log.AttemptFailed(entry.Index, attempt, "canceled", err)
			return "", calls, errors.Wrap(ctx.Err(), "backend call interrupted", opts...)
		}

		class := Classify(err)
		log.AttemptFailed(entry.Index, attempt, string(class), err)

		switch class {
		case ClassQuotaZero:
			d.pool.MarkLimited(entry, d.cfg.QuotaZeroPenalty)
			log.CredentialLimited(entry.Index, d.cfg.QuotaZeroPenalty, string(class))
		case ClassRateLimit:
			d.pool.MarkLimited(entry, d.cfg.RateLimitPenalty)
			log.CredentialLimited(entry.Index, d.cfg.RateLimitPenalty, string(class))
		case ClassNetwork:
		default:
			return "", calls, errors.UnknownBackend(
				fmt.Sprintf("backend request failed after %d attempts", calls),
				append(opts, errors.WithCause(err))...)
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return "", calls, terminalError(class, calls, err, opts)
		}

		log.RetryScheduled(attempt, d.cfg.MaxRetries, delay)
		if err := sleep(ctx, delay); err != nil {
			return "", calls, errors.Wrap(err, "canceled during retry backoff", opts...)
		}
		previous = entry
	}
}

// validate extracts the text of the first candidate.
func validate(resp *llm.Response, opts []errors.Option) (string, *errors.Error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.EmptyResponse("no response candidates received from backend", opts...)
	}

	first := resp.Candidates[0]
	if first.FinishReason.IsSafetyBlock() {
		return "", errors.SafetyBlocked(string(first.FinishReason), opts...)
	}

	if strings.TrimSpace(first.Text) == "" {
		return "", errors.EmptyResponse("empty response received from backend", opts...)
	}

	return first.Text, nil
}

// terminalError reports a retryable class that ran out of retries.
func terminalError(class Class, calls int, cause error, opts []errors.Option) *errors.Error {
	msg := fmt.Sprintf("backend request failed after %d attempts", calls)
	opts = append(opts, errors.WithCause(cause))

	switch class {
	case ClassQuotaZero:
		return errors.QuotaExhausted(msg, opts...)
	case ClassRateLimit:
		return errors.RateLimited(msg, opts...)
	default:
		return errors.NetworkError(msg, opts...)
	}
}

// sleep waits for d or until ctx ends, without holding any lock.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vinayprograms/relaykit/logging"
)

// DefaultJanitorSchedule sweeps idle client windows every five minutes.
const DefaultJanitorSchedule = "@every 5m"

// ParseSchedule accepts a cron expression (5 or 6 fields, or a descriptor
// such as "@every 5m") or a plain Go duration like "90s".
func ParseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("%w: schedule string is empty", ErrInvalidSchedule)
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}

	d, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is neither a cron expression nor a duration", ErrInvalidSchedule, schedule)
	}
	if d <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidSchedule)
	}
	return cron.Every(d), nil
}

// Janitor periodically removes idle client windows from a Throttle.
type Janitor struct {
	cron     *cron.Cron
	throttle *Throttle
	log      *logging.Logger
}

// NewJanitor schedules PruneIdle on the given throttle.
func NewJanitor(throttle *Throttle, schedule string, log *logging.Logger) (*Janitor, error) {
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}

	j := &Janitor{
		cron:     cron.New(),
		throttle: throttle,
		log:      log.WithComponent("janitor"),
	}
	j.cron.Schedule(sched, cron.FuncJob(j.Sweep))
	return j, nil
}

// Sweep runs one pruning pass.
func (j *Janitor) Sweep() {
	removed := j.throttle.PruneIdle()
	if removed > 0 {
		j.log.Debug("idle_clients_pruned", map[string]interface{}{
			"removed":   removed,
			"remaining": j.throttle.Clients(),
		})
	}
}

// Start begins the schedule in its own goroutine.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

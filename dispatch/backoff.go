package dispatch

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff waits base, 2*base, 3*base, ... between retries.
type linearBackOff struct {
	base time.Duration
	n    int
}

var _ backoff.BackOff = (*linearBackOff)(nil)

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.base * time.Duration(b.n)
}

func (b *linearBackOff) Reset() {
	b.n = 0
}

// newRetrySchedule returns the retry delays for one logical request. It
// yields backoff.Stop once maxRetries delays have been handed out.
func newRetrySchedule(base time.Duration, maxRetries int) backoff.BackOff {
	if maxRetries <= 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(&linearBackOff{base: base}, uint64(maxRetries))
}

// Package ratelimit provides admission control for the relay.
//
// A Throttle decides, per request, whether work is admitted before any
// backend credential is spent on it:
//
//	throttle, err := ratelimit.NewThrottle(pool, ratelimit.DefaultConfig(), log)
//	if !throttle.Allow(clientIP) {
//	    // reply 429 with throttle.RetryAfterSeconds()
//	}
//
// # Algorithm
//
// Allow evaluates these checks in order and rejects on the first failure:
//   - no credential in the pool is eligible
//   - the global cooldown is active
//   - less than BaseInterval/available has passed since the last admission
//   - the client's sliding window already holds MaxRequests*max(1, available/2) entries
//
// An admitted request is appended to the client's window and becomes the
// new last admission. Windows are pruned lazily on each check.
//
// The dispatcher calls TriggerGlobalCooldown when it finds every credential
// limited after admission.
//
// # Idle clients
//
// Windows are created lazily, one per client key. A Janitor sweeps keys whose
// windows have emptied on a cron schedule so the map does not grow without
// bound:
//
//	janitor, err := ratelimit.NewJanitor(throttle, "@every 5m", log)
//	janitor.Start()
//	defer janitor.Stop(ctx)
package ratelimit

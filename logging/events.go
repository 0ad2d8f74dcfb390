package logging

import "time"

// --- Dispatch-derived logging methods ---
// Called by the pool, throttle and dispatcher at their state transitions.

// CredentialSelected logs which credential serves an attempt.
func (l *Logger) CredentialSelected(index, total, attempt int) {
	l.Info("credential_selected", map[string]interface{}{
		"credential": index,
		"total":      total,
		"attempt":    attempt + 1,
	})
}

// CredentialLimited logs a credential being sidelined.
func (l *Logger) CredentialLimited(index int, d time.Duration, class string) {
	l.Warn("credential_limited", map[string]interface{}{
		"credential": index,
		"duration":   d.String(),
		"class":      class,
	})
}

// CredentialRecovered logs a lazily cleared limit.
func (l *Logger) CredentialRecovered(index int) {
	l.Info("credential_recovered", map[string]interface{}{
		"credential": index,
	})
}

// AttemptFailed logs one failed backend attempt.
func (l *Logger) AttemptFailed(index, attempt int, class string, err error) {
	fields := map[string]interface{}{
		"credential": index,
		"attempt":    attempt + 1,
		"class":      class,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error("attempt_failed", fields)
}

// RetryScheduled logs the wait before the next attempt.
func (l *Logger) RetryScheduled(attempt, maxRetries int, delay time.Duration) {
	l.Info("retry_scheduled", map[string]interface{}{
		"attempt":     attempt + 1,
		"max_retries": maxRetries,
		"delay":       delay.String(),
	})
}

// Admission logs a throttle decision.
func (l *Logger) Admission(clientKey string, allowed bool, reason string) {
	fields := map[string]interface{}{
		"client":  clientKey,
		"allowed": allowed,
	}
	if reason != "" {
		fields["reason"] = reason
	}
	if allowed {
		l.Debug("admission", fields)
	} else {
		l.Warn("admission", fields)
	}
}

// CooldownTriggered logs activation of the global cooldown.
func (l *Logger) CooldownTriggered(until time.Time) {
	l.Warn("global_cooldown", map[string]interface{}{
		"until": until.UTC().Format(time.RFC3339),
	})
}

// GenerateComplete logs the outcome of one logical generate call.
func (l *Logger) GenerateComplete(attempts int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"attempts": attempts,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("generate_failed", fields)
		return
	}
	l.Info("generate_complete", fields)
}

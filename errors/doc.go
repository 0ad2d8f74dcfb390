// Package errors provides the structured error taxonomy of the relay's
// dispatch core. Every terminal failure of a generate call is reported as an
// *Error carrying one code, so the HTTP layer can map it to a status and a
// user-facing message without inspecting backend text.
//
// # Error Categories
//
//   - Transient: network failures where retry may succeed
//   - Resource: rate limits, zero quota, all credentials sidelined
//   - Permanent: safety blocks, empty responses, invalid input
//   - Internal: unclassified backend failures and relay bugs
//
// # Error Codes
//
//   - ALL_CREDENTIALS_EXHAUSTED: no eligible credential, no backend call made
//   - RATE_LIMITED: the backend answered 429 or reported quota exceeded
//   - QUOTA_EXHAUSTED_PERMANENT: the credential's quota limit is zero
//   - SAFETY_BLOCKED: the first candidate finished with a safety reason
//   - EMPTY_RESPONSE: no candidates, or blank text
//   - NETWORK_ERR: transport failure
//   - UNKNOWN_BACKEND: anything else the backend raised
//
// # Usage
//
//	err := errors.RateLimited("429 from backend", errors.WithCredential(2))
//
//	if errors.Is(err, errors.ErrCodeExhausted) {
//	    throttle.TriggerGlobalCooldown(cooldown)
//	}
//
// # JSON Serialization
//
// Errors marshal to JSON for health and diagnostics output:
//
//	data, err := json.Marshal(relayErr)
package errors

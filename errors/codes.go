package errors

import "net/http"

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: network timeouts, connection resets.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: safety-blocked output, invalid input.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates credential or quota exhaustion.
	// Examples: 429 responses, zero quota, every credential sidelined.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors from the backend or the relay.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for dispatch failures.
const (
	// Transient errors
	ErrCodeNetworkErr ErrorCode = "NETWORK_ERR" // Transport failure talking to the backend
	ErrCodeTimeout    ErrorCode = "TIMEOUT"     // Deadline expired while waiting or calling

	// Resource errors
	ErrCodeRateLimit      ErrorCode = "RATE_LIMITED"              // Backend rate limit or quota hit
	ErrCodeQuotaPermanent ErrorCode = "QUOTA_EXHAUSTED_PERMANENT" // Credential quota limit is zero
	ErrCodeExhausted      ErrorCode = "ALL_CREDENTIALS_EXHAUSTED" // No eligible credential left

	// Permanent errors
	ErrCodeSafetyBlocked ErrorCode = "SAFETY_BLOCKED" // Candidate stopped by safety filters
	ErrCodeEmptyResponse ErrorCode = "EMPTY_RESPONSE" // No candidates or blank text
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"  // Malformed request
	ErrCodeCanceled      ErrorCode = "CANCELED"       // Caller canceled

	// Internal errors
	ErrCodeUnknownBackend ErrorCode = "UNKNOWN_BACKEND" // Unclassified backend failure
	ErrCodeInternal       ErrorCode = "INTERNAL"        // Unexpected relay error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeNetworkErr, ErrCodeTimeout:
		return CategoryTransient

	case ErrCodeRateLimit, ErrCodeQuotaPermanent:
		return CategoryResource

	// Exhaustion is a resource condition but is never retried inside the
	// dispatcher: there is nothing left to retry with.
	case ErrCodeExhausted:
		return CategoryResource

	case ErrCodeSafetyBlocked, ErrCodeEmptyResponse, ErrCodeInvalidInput, ErrCodeCanceled:
		return CategoryPermanent

	case ErrCodeUnknownBackend, ErrCodeInternal:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	if c == ErrCodeExhausted || c == ErrCodeTimeout {
		return false
	}
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeNetworkErr:     "network connectivity error",
	ErrCodeTimeout:        "operation timed out",
	ErrCodeRateLimit:      "rate limit exceeded",
	ErrCodeQuotaPermanent: "credential quota exhausted",
	ErrCodeExhausted:      "all credentials are currently rate limited",
	ErrCodeSafetyBlocked:  "response blocked by safety filters",
	ErrCodeEmptyResponse:  "empty response received from backend",
	ErrCodeInvalidInput:   "invalid input provided",
	ErrCodeCanceled:       "operation canceled",
	ErrCodeUnknownBackend: "backend request failed",
	ErrCodeInternal:       "internal error",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// HTTPStatus maps an error code to the status the relay's HTTP layer answers with.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeRateLimit, ErrCodeQuotaPermanent, ErrCodeExhausted:
		return http.StatusTooManyRequests
	case ErrCodeSafetyBlocked, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeNetworkErr:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

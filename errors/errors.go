package errors

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RelayError is the interface for all structured errors returned by the relay.
// It extends the standard error interface with the context the dispatcher and
// the HTTP layer need for retry and status decisions.
type RelayError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for retry/handling decisions.
	Category() ErrorCategory

	// Retryable returns true if the operation may succeed on retry.
	Retryable() bool

	// Metadata returns additional context as key-value pairs.
	Metadata() map[string]string

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of RelayError.
type Error struct {
	code       ErrorCode
	category   ErrorCategory
	message    string
	cause      error
	metadata   map[string]string
	retryable  *bool // nil means use default based on code
	timestamp  time.Time
	attempts   int           // backend attempts made, if applicable
	credential int           // credential index involved, 0 if none
	retryAfter time.Duration // client back-off hint, 0 if none
}

// Ensure Error implements RelayError and json.Marshaler/Unmarshaler.
var (
	_ RelayError       = (*Error)(nil)
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Message returns the error message without the cause.
func (e *Error) Message() string {
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.code.DefaultRetryable()
}

// Metadata returns the error metadata.
func (e *Error) Metadata() map[string]string {
	if e.metadata == nil {
		return make(map[string]string)
	}
	// Return a copy to prevent modification
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Attempts returns the number of backend attempts made, if recorded.
func (e *Error) Attempts() int {
	return e.attempts
}

// Credential returns the index of the credential involved, or 0.
func (e *Error) Credential() int {
	return e.credential
}

// RetryAfter returns the suggested client back-off, or 0.
func (e *Error) RetryAfter() time.Duration {
	return e.retryAfter
}

// errorJSON is the JSON representation of an Error.
type errorJSON struct {
	Code       ErrorCode         `json:"code"`
	Category   ErrorCategory     `json:"category"`
	Message    string            `json:"message"`
	Cause      string            `json:"cause,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Retryable  bool              `json:"retryable"`
	Timestamp  string            `json:"timestamp,omitempty"`
	Attempts   int               `json:"attempts,omitempty"`
	Credential int               `json:"credential,omitempty"`
	RetryAfter int               `json:"retry_after_seconds,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:       e.code,
		Category:   e.category,
		Message:    e.message,
		Metadata:   e.metadata,
		Retryable:  e.Retryable(),
		Attempts:   e.attempts,
		Credential: e.credential,
		RetryAfter: int(e.retryAfter / time.Second),
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	var j errorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.code = j.Code
	e.category = j.Category
	e.message = j.Message
	e.metadata = j.Metadata
	e.attempts = j.Attempts
	e.credential = j.Credential
	e.retryAfter = time.Duration(j.RetryAfter) * time.Second
	r := j.Retryable
	e.retryable = &r
	if j.Cause != "" {
		e.cause = fmt.Errorf("%s", j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			e.timestamp = t
		}
	}
	return nil
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithMetadata adds metadata key-value pairs.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithAttempts records how many backend attempts were made.
func WithAttempts(n int) Option {
	return func(e *Error) {
		e.attempts = n
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata["attempts"] = strconv.Itoa(n)
	}
}

// WithCredential records the credential index involved.
func WithCredential(index int) Option {
	return func(e *Error) {
		e.credential = index
	}
}

// WithRetryAfter sets the client back-off hint.
func WithRetryAfter(d time.Duration) Option {
	return func(e *Error) {
		e.retryAfter = d
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// AllCredentialsExhausted creates the error returned when no credential is eligible.
func AllCredentialsExhausted(opts ...Option) *Error {
	return New(ErrCodeExhausted, "all credentials are currently rate limited, try again in a moment", opts...)
}

// RateLimited creates a rate limit error.
func RateLimited(message string, opts ...Option) *Error {
	return New(ErrCodeRateLimit, message, opts...)
}

// QuotaExhausted creates a permanent quota error for a single credential.
func QuotaExhausted(message string, opts ...Option) *Error {
	return New(ErrCodeQuotaPermanent, message, opts...)
}

// SafetyBlocked creates a safety-block error.
func SafetyBlocked(reason string, opts ...Option) *Error {
	return New(ErrCodeSafetyBlocked, fmt.Sprintf("response blocked by safety filters (%s)", reason), opts...)
}

// EmptyResponse creates an empty response error.
func EmptyResponse(message string, opts ...Option) *Error {
	return New(ErrCodeEmptyResponse, message, opts...)
}

// NetworkError creates a transport failure error.
func NetworkError(message string, opts ...Option) *Error {
	return New(ErrCodeNetworkErr, message, opts...)
}

// UnknownBackend creates an unclassified backend error.
func UnknownBackend(message string, opts ...Option) *Error {
	return New(ErrCodeUnknownBackend, message, opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}

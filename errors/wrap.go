package errors

import (
	"context"
	"errors"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a relay Error, it wraps it with the new message.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a relay Error, preserve its properties
	var relayErr *Error
	if errors.As(err, &relayErr) {
		wrapped := &Error{
			code:       relayErr.code,
			category:   relayErr.category,
			message:    message,
			cause:      err,
			metadata:   relayErr.Metadata(),
			retryable:  relayErr.retryable,
			timestamp:  relayErr.timestamp,
			attempts:   relayErr.attempts,
			credential: relayErr.credential,
			retryAfter: relayErr.retryAfter,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsRelayError attempts to extract a relay Error from an error chain.
// Returns nil if none is found.
func AsRelayError(err error) *Error {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr
	}
	return nil
}

// Is checks if the outermost relay Error in the chain has the given code.
func Is(err error, code ErrorCode) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.code == code
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Retryable()
	}
	// Default to not retryable for foreign errors
	return false
}

// Code extracts the error code from an error, if available.
// Returns empty string if err carries no relay Error.
func Code(err error) ErrorCode {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
func Category(err error) ErrorCategory {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.category
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

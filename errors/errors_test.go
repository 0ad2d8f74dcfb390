package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

// ============================================================================
// 1. Error creation with different codes/categories
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		code         ErrorCode
		message      string
		wantCategory ErrorCategory
	}{
		{"network", ErrCodeNetworkErr, "connection reset", CategoryTransient},
		{"rate_limit", ErrCodeRateLimit, "too many requests", CategoryResource},
		{"quota_zero", ErrCodeQuotaPermanent, "quota is zero", CategoryResource},
		{"exhausted", ErrCodeExhausted, "nothing left", CategoryResource},
		{"safety", ErrCodeSafetyBlocked, "blocked", CategoryPermanent},
		{"empty", ErrCodeEmptyResponse, "empty", CategoryPermanent},
		{"unknown", ErrCodeUnknownBackend, "boom", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)
			if err.Code() != tt.code {
				t.Errorf("Code() = %v, want %v", err.Code(), tt.code)
			}
			if err.Category() != tt.wantCategory {
				t.Errorf("Category() = %v, want %v", err.Category(), tt.wantCategory)
			}
			if err.Error() != tt.message {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.message)
			}
			if err.Timestamp().IsZero() {
				t.Error("Timestamp() should not be zero")
			}
		})
	}
}

func TestFromCode(t *testing.T) {
	err := FromCode(ErrCodeEmptyResponse)
	if err.Error() != "empty response received from backend" {
		t.Errorf("Error() = %v, want default description", err.Error())
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeInvalidInput, "Message too long. Please keep it under %d characters.", 1000)
	if err.Code() != ErrCodeInvalidInput {
		t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeInvalidInput)
	}
	if err.Message() != "Message too long. Please keep it under 1000 characters." {
		t.Errorf("Message() = %q", err.Message())
	}
	if err.Category() != CategoryPermanent {
		t.Errorf("Category() = %v, want %v", err.Category(), CategoryPermanent)
	}
}

func TestCategoryThroughWrap(t *testing.T) {
	inner := RateLimited("backend returned 429")
	outer := fmt.Errorf("dispatch: %w", Wrap(inner, "request failed"))
	if Category(outer) != CategoryResource {
		t.Errorf("Category() = %v, want %v", Category(outer), CategoryResource)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code ErrorCode
	}{
		{"exhausted", AllCredentialsExhausted(), ErrCodeExhausted},
		{"rate", RateLimited("429"), ErrCodeRateLimit},
		{"quota", QuotaExhausted("zero"), ErrCodeQuotaPermanent},
		{"safety", SafetyBlocked("SAFETY"), ErrCodeSafetyBlocked},
		{"empty", EmptyResponse("blank"), ErrCodeEmptyResponse},
		{"network", NetworkError("fetch failed"), ErrCodeNetworkErr},
		{"unknown", UnknownBackend("boom"), ErrCodeUnknownBackend},
		{"input", InvalidInput("bad"), ErrCodeInvalidInput},
		{"internal", Internal("bug"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code() != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code())
			}
		})
	}
}

// ============================================================================
// 2. Retryable vs non-retryable errors
// ============================================================================

func TestRetryable(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		wantRetry bool
	}{
		{"network is retryable", ErrCodeNetworkErr, true},
		{"rate_limit is retryable", ErrCodeRateLimit, true},
		{"quota_zero is retryable on another credential", ErrCodeQuotaPermanent, true},
		{"exhausted is not retryable", ErrCodeExhausted, false},
		{"timeout is not retryable", ErrCodeTimeout, false},
		{"safety is not retryable", ErrCodeSafetyBlocked, false},
		{"empty is not retryable", ErrCodeEmptyResponse, false},
		{"unknown is not retryable", ErrCodeUnknownBackend, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test")
			if err.Retryable() != tt.wantRetry {
				t.Errorf("Retryable() = %v, want %v", err.Retryable(), tt.wantRetry)
			}
		})
	}
}

func TestWithRetryableOverride(t *testing.T) {
	err := New(ErrCodeRateLimit, "final", WithRetryable(false))
	if err.Retryable() {
		t.Error("expected error to be non-retryable after override")
	}
}

// ============================================================================
// 3. Options and accessors
// ============================================================================

func TestOptions(t *testing.T) {
	cause := fmt.Errorf("429 Too Many Requests")
	err := RateLimited("backend rate limited",
		WithCause(cause),
		WithAttempts(3),
		WithCredential(2),
		WithRetryAfter(90*time.Second),
		WithMetadata("model", "gemini-1.5-flash"),
	)

	if err.Attempts() != 3 {
		t.Errorf("expected attempts 3, got %d", err.Attempts())
	}
	if err.Metadata()["attempts"] != "3" {
		t.Errorf("expected attempts metadata '3', got %q", err.Metadata()["attempts"])
	}
	if err.Credential() != 2 {
		t.Errorf("expected credential 2, got %d", err.Credential())
	}
	if err.RetryAfter() != 90*time.Second {
		t.Errorf("expected retryAfter 90s, got %v", err.RetryAfter())
	}
	if err.Metadata()["model"] != "gemini-1.5-flash" {
		t.Error("expected model metadata")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if err.Error() != "backend rate limited: 429 Too Many Requests" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestMetadataIsCopied(t *testing.T) {
	err := New(ErrCodeInternal, "x", WithMetadata("k", "v"))
	md := err.Metadata()
	md["k"] = "changed"
	if err.Metadata()["k"] != "v" {
		t.Error("Metadata() should return a copy")
	}
}

// ============================================================================
// 4. Wrapping
// ============================================================================

func TestWrapPreservesCode(t *testing.T) {
	inner := SafetyBlocked("SAFETY", WithCredential(1))
	wrapped := Wrap(inner, "generate failed")

	if wrapped.Code() != ErrCodeSafetyBlocked {
		t.Errorf("expected code preserved, got %s", wrapped.Code())
	}
	if wrapped.Credential() != 1 {
		t.Errorf("expected credential preserved, got %d", wrapped.Credential())
	}
	if !Is(wrapped, ErrCodeSafetyBlocked) {
		t.Error("Is should match the wrapped code")
	}
}

func TestWrapContextErrors(t *testing.T) {
	if got := Wrap(context.DeadlineExceeded, "wait").Code(); got != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %s", got)
	}
	if got := Wrap(context.Canceled, "wait").Code(); got != ErrCodeCanceled {
		t.Errorf("expected CANCELED, got %s", got)
	}
	if got := Wrap(fmt.Errorf("plain"), "wrap").Code(); got != ErrCodeInternal {
		t.Errorf("expected INTERNAL, got %s", got)
	}
	if Wrap(nil, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapWithCode(t *testing.T) {
	err := WrapWithCode(fmt.Errorf("dial tcp: i/o timeout"), ErrCodeNetworkErr, "transport failure")
	if err.Code() != ErrCodeNetworkErr {
		t.Errorf("expected NETWORK_ERR, got %s", err.Code())
	}
	if WrapWithCode(nil, ErrCodeNetworkErr, "x") != nil {
		t.Error("WrapWithCode(nil) should return nil")
	}
}

func TestHelpersOnForeignErrors(t *testing.T) {
	plain := fmt.Errorf("plain")
	if Code(plain) != "" {
		t.Error("expected empty code for foreign error")
	}
	if Category(plain) != "" {
		t.Error("expected empty category for foreign error")
	}
	if IsRetryable(plain) {
		t.Error("foreign errors are not retryable")
	}
	if AsRelayError(plain) != nil {
		t.Error("expected nil relay error")
	}
}

func TestCause(t *testing.T) {
	root := fmt.Errorf("root")
	err := Wrap(NetworkError("net", WithCause(root)), "outer")
	if Cause(err) != root {
		t.Errorf("expected root cause, got %v", Cause(err))
	}
}

// ============================================================================
// 5. HTTP mapping and JSON
// ============================================================================

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeExhausted, http.StatusTooManyRequests},
		{ErrCodeRateLimit, http.StatusTooManyRequests},
		{ErrCodeQuotaPermanent, http.StatusTooManyRequests},
		{ErrCodeSafetyBlocked, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeNetworkErr, http.StatusBadGateway},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeUnknownBackend, http.StatusInternalServerError},
		{ErrCodeEmptyResponse, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.code, tt.want, got)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := QuotaExhausted("quota zero",
		WithCause(fmt.Errorf(`quota_limit_value":"0"`)),
		WithAttempts(1),
		WithCredential(3),
		WithRetryAfter(2*time.Minute),
	)

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Error
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Code() != ErrCodeQuotaPermanent {
		t.Errorf("expected code preserved, got %s", decoded.Code())
	}
	if decoded.Credential() != 3 || decoded.Attempts() != 1 {
		t.Errorf("expected credential 3 / attempts 1, got %d / %d", decoded.Credential(), decoded.Attempts())
	}
	if decoded.RetryAfter() != 2*time.Minute {
		t.Errorf("expected retryAfter 2m, got %v", decoded.RetryAfter())
	}
	if !decoded.Retryable() {
		t.Error("expected retryable flag preserved")
	}
}

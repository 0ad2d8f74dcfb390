package dispatch

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"

	"github.com/vinayprograms/relaykit/llm"
)

// Class is the retry classification of a failed backend call.
type Class string

const (
	// ClassQuotaZero means the credential's quota limit is zero. The
	// credential is sidelined for a day; another one may still serve.
	ClassQuotaZero Class = "quota_zero"

	// ClassRateLimit means the credential hit a rate or quota limit.
	ClassRateLimit Class = "rate_limit"

	// ClassNetwork is a transport failure. It says nothing about the credential.
	ClassNetwork Class = "network"

	// ClassOther is anything else. Not retried.
	ClassOther Class = "other"
)

// Retryable reports whether the dispatcher retries this class.
func (c Class) Retryable() bool {
	return c != ClassOther
}

var (
	quotaZeroPattern = regexp.MustCompile(`quota_limit_value\W{0,6}0(?:[^\d.]|$)`)

	rateLimitMarkers = []string{
		"429",
		"rate limit",
		"quota",
		"rate_limit_exceeded",
		"resource_exhausted",
		"too many requests",
	}

	networkMarkers = []string{
		"fetch",
		"connection reset",
		"connection refused",
		"broken pipe",
		"no such host",
		"unexpected eof",
		"tls handshake",
	}
)

// Classify maps a backend error to a retry class. Structured status codes are
// used when the provider SDK exposes one; the message text decides otherwise.
func Classify(err error) Class {
	if err == nil {
		return ClassOther
	}

	msg := strings.ToLower(err.Error())

	if code, ok := llm.StatusCode(err); ok {
		switch {
		case code == http.StatusTooManyRequests:
			return rateClass(msg)
		case code == http.StatusBadGateway, code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
			return ClassNetwork
		}
	}

	if containsAny(msg, rateLimitMarkers) {
		return rateClass(msg)
	}

	if isTransportError(err) || containsAny(msg, networkMarkers) {
		return ClassNetwork
	}

	return ClassOther
}

// rateClass separates a zero quota from an ordinary limit.
func rateClass(msg string) Class {
	if quotaZeroPattern.MatchString(msg) {
		return ClassQuotaZero
	}
	return ClassRateLimit
}

func isTransportError(err error) bool {
	// Context errors belong to the caller, not the network.
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	return stderrors.Is(err, io.ErrUnexpectedEOF) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.ECONNREFUSED)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

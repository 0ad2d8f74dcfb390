package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/vinayprograms/relaykit/credentials"
	"github.com/vinayprograms/relaykit/errors"
)

// Retry hints sent with backend-side 429s.
const (
	exhaustedRetryAfter   = 120
	rateLimitedRetryAfter = 90
)

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt  string `json:"prompt"`
	Persona string `json:"persona,omitempty"`
}

// GenerateResponse is the success body of POST /generate.
type GenerateResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	credentials.Snapshot
	RateLimitedKeys int     `json:"rateLimitedKeys"`
	APIKeyCount     int     `json:"apiKeyCount"`
	UptimeSeconds   float64 `json:"uptimeSeconds"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	client := clientKey(r)

	var req GenerateRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, requestID, errors.InvalidInput("Invalid request body", errors.WithCause(err)))
		return
	}

	prompt, err := s.validate(&req)
	if err != nil {
		s.writeError(w, requestID, err)
		return
	}

	if !s.throttle.Allow(client) {
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			Error:      "Please wait a moment before sending another message.",
			Code:       string(errors.ErrCodeRateLimit),
			RetryAfter: s.throttle.RetryAfterSeconds(),
			RequestID:  requestID,
		})
		return
	}

	// A client disconnect does not abort the dispatch; only the request
	// timeout does.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.RequestTimeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.log.Warn("generate_failed", map[string]interface{}{
			"request_id": requestID,
			"client":     client,
			"code":       string(errors.Code(err)),
			"category":   string(errors.Category(err)),
			"error":      err.Error(),
		})
		s.writeError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Response: text})
}

// validate checks the request and returns the prompt to send.
func (s *Server) validate(req *GenerateRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.InvalidInput("Please enter a message")
	}
	if utf8.RuneCountInString(prompt) > s.cfg.MaxPromptChars {
		return "", errors.Newf(errors.ErrCodeInvalidInput, "Message too long. Please keep it under %d characters.", s.cfg.MaxPromptChars)
	}

	persona := strings.TrimSpace(req.Persona)
	if utf8.RuneCountInString(persona) > s.cfg.MaxPersonaChars {
		return "", errors.Newf(errors.ErrCodeInvalidInput, "Persona too long. Please keep it under %d characters.", s.cfg.MaxPersonaChars)
	}
	if persona == "" {
		return prompt, nil
	}
	return persona + "\n\nUser: " + prompt, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.pool.Snapshot()

	status := "ok"
	if snap.Available == 0 {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          status,
		Snapshot:        snap,
		RateLimitedKeys: len(snap.Limited),
		APIKeyCount:     snap.Total,
		UptimeSeconds:   s.nowFunc().Sub(s.started).Seconds(),
	})
}

// errorReply maps a dispatch error to a status and body.
func errorReply(err error) (int, ErrorResponse) {
	code := errors.Code(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	resp := ErrorResponse{Code: string(code)}

	switch code {
	case errors.ErrCodeExhausted:
		resp.Error = "All credentials are busy right now. Please try again in a moment."
		resp.RetryAfter = exhaustedRetryAfter
	case errors.ErrCodeRateLimit, errors.ErrCodeQuotaPermanent:
		resp.Error = "The backend is overloaded right now. Please give it a minute."
		resp.RetryAfter = rateLimitedRetryAfter
	case errors.ErrCodeSafetyBlocked:
		resp.Error = "That message contains content the model cannot respond to. Please try rephrasing."
	case errors.ErrCodeInvalidInput:
		resp.Error = errors.AsRelayError(err).Message()
	case errors.ErrCodeTimeout:
		resp.Error = "The request took too long. Please try again."
	default:
		resp.Error = "Something went wrong. Please try again."
	}
	return code.HTTPStatus(), resp
}

func (s *Server) writeError(w http.ResponseWriter, requestID string, err error) {
	status, resp := errorReply(err)
	resp.RequestID = requestID
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

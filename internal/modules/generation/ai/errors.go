package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	openaiclient "github.com/openai/openai-go/v2"

	"github.com/rankforge/core/internal/models"
)

// TransportError covers timeouts, 5xx responses, and network failures.
// Retryable against the provider's attempt budget.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider %s transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError covers 401/403 responses. Fatal for the provider; the chain
// advances without consuming its remaining attempts.
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %s rejected credentials (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// QuotaError covers 402/429 responses. Fatal for the provider for this
// request; retrying the same key immediately would only burn budget.
type QuotaError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("provider %s quota exceeded (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// ShapeError means the provider answered but the payload failed schema
// validation. Retryable against the provider's attempt budget.
type ShapeError struct {
	Provider string
	Err      error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("provider %s returned an invalid payload: %v", e.Provider, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// EngineExhaustedError is the only hard failure callers see: every provider
// leg and the heuristic fallback failed.
type EngineExhaustedError struct {
	Attempts []models.ProviderAttempt
	LastErr  error
}

func (e *EngineExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("generation exhausted after %d provider legs: %v", len(e.Attempts), e.LastErr)
	}
	return fmt.Sprintf("generation exhausted after %d provider legs", len(e.Attempts))
}

func (e *EngineExhaustedError) Unwrap() error { return e.LastErr }

// httpStatusError carries a raw HTTP status from the compatible-endpoint
// client so classification does not have to re-parse its own message.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// isFatalProviderError reports whether the error should abort the provider
// immediately instead of consuming further attempts.
func isFatalProviderError(err error) bool {
	var authErr *AuthError
	var quotaErr *QuotaError
	return errors.As(err, &authErr) || errors.As(err, &quotaErr)
}

// classifyProviderError maps a raw provider failure onto the typed taxonomy.
// Context cancellation passes through untouched so the run can be abandoned.
func classifyProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var transportErr *TransportError
	var authErr *AuthError
	var quotaErr *QuotaError
	var shapeErr *ShapeError
	if errors.As(err, &transportErr) || errors.As(err, &authErr) ||
		errors.As(err, &quotaErr) || errors.As(err, &shapeErr) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	// A per-attempt deadline is an ordinary timeout; the abandoned-run case
	// is caught by the orchestrator checking the parent context.
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Provider: provider, Err: err}
	}

	if status, ok := statusCodeFromError(err); ok {
		return errorFromStatus(provider, status, err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Provider: provider, Err: err}
	}

	if status, ok := sniffStatusFromText(err.Error()); ok {
		return errorFromStatus(provider, status, err.Error())
	}

	return &TransportError{Provider: provider, Err: err}
}

// statusCodeFromError extracts the HTTP status from SDK error types and the
// compatible-endpoint client's own status error.
func statusCodeFromError(err error) (int, bool) {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status, true
	}
	var openaiErr *openaiclient.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}
	var anthropicErr *anthropicclient.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}
	return 0, false
}

func errorFromStatus(provider string, status int, message string) error {
	switch status {
	case 401, 403:
		return &AuthError{Provider: provider, StatusCode: status, Message: message}
	case 402, 429:
		return &QuotaError{Provider: provider, StatusCode: status, Message: message}
	default:
		return &TransportError{Provider: provider, Err: fmt.Errorf("status %d: %s", status, message)}
	}
}

// sniffStatusFromText is the last resort for errors that arrive flattened to
// a string, which happens when an SDK wrapper discards the original type.
func sniffStatusFromText(message string) (int, bool) {
	text := strings.ToLower(message)
	switch {
	case strings.Contains(text, "401") || strings.Contains(text, "unauthorized") ||
		strings.Contains(text, "invalid api key") || strings.Contains(text, "invalid x-api-key") ||
		strings.Contains(text, "authentication"):
		return 401, true
	case strings.Contains(text, "403") || strings.Contains(text, "forbidden") ||
		strings.Contains(text, "permission denied"):
		return 403, true
	case strings.Contains(text, "429") || strings.Contains(text, "rate limit") ||
		strings.Contains(text, "rate_limit") || strings.Contains(text, "too many requests"):
		return 429, true
	case strings.Contains(text, "402") || strings.Contains(text, "quota") ||
		strings.Contains(text, "insufficient credit") || strings.Contains(text, "billing"):
		return 402, true
	default:
		return 0, false
	}
}

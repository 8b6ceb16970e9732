package ai

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyProviderError_Passthrough(t *testing.T) {
	assert.NoError(t, classifyProviderError("a", nil))

	authErr := &AuthError{Provider: "a", StatusCode: 401, Message: "bad key"}
	assert.Same(t, authErr, classifyProviderError("a", authErr))

	shapeErr := &ShapeError{Provider: "a", Err: errors.New("missing field")}
	assert.Same(t, shapeErr, classifyProviderError("a", shapeErr))

	assert.ErrorIs(t, classifyProviderError("a", context.Canceled), context.Canceled)
	var transportErr *TransportError
	assert.False(t, errors.As(classifyProviderError("a", context.Canceled), &transportErr),
		"cancellation must stay untyped so the run is abandoned")
}

func TestClassifyProviderError_AttemptDeadlineIsRetryable(t *testing.T) {
	classified := classifyProviderError("a", context.DeadlineExceeded)

	var transportErr *TransportError
	require.ErrorAs(t, classified, &transportErr)
	assert.Equal(t, "a", transportErr.Provider)
	assert.ErrorIs(t, classified, context.DeadlineExceeded)
	assert.False(t, isFatalProviderError(classified))
}

func TestClassifyProviderError_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   string
		fatal  bool
	}{
		{401, "auth", true},
		{403, "auth", true},
		{402, "quota", true},
		{429, "quota", true},
		{400, "transport", false},
		{500, "transport", false},
		{503, "transport", false},
	}

	for _, tc := range cases {
		classified := classifyProviderError("p", &httpStatusError{status: tc.status, body: "details"})

		var authErr *AuthError
		var quotaErr *QuotaError
		var transportErr *TransportError
		switch tc.want {
		case "auth":
			require.ErrorAs(t, classified, &authErr, "status %d", tc.status)
			assert.Equal(t, tc.status, authErr.StatusCode)
		case "quota":
			require.ErrorAs(t, classified, &quotaErr, "status %d", tc.status)
			assert.Equal(t, tc.status, quotaErr.StatusCode)
		case "transport":
			require.ErrorAs(t, classified, &transportErr, "status %d", tc.status)
		}
		assert.Equal(t, tc.fatal, isFatalProviderError(classified), "status %d", tc.status)
	}
}

func TestClassifyProviderError_TextSniffing(t *testing.T) {
	cases := []struct {
		message string
		status  int
	}{
		{"Error code: 401 - invalid api key provided", 401},
		{"anthropic: invalid x-api-key", 401},
		{"permission denied for this model", 403},
		{"Rate limit reached for gpt-4o-mini in organization org-123", 429},
		{"You exceeded your current quota, please check your plan and billing details", 402},
	}

	for _, tc := range cases {
		classified := classifyProviderError("p", errors.New(tc.message))

		switch tc.status {
		case 401, 403:
			var authErr *AuthError
			require.ErrorAs(t, classified, &authErr, "message %q", tc.message)
			assert.Equal(t, tc.status, authErr.StatusCode)
		case 402, 429:
			var quotaErr *QuotaError
			require.ErrorAs(t, classified, &quotaErr, "message %q", tc.message)
			assert.Equal(t, tc.status, quotaErr.StatusCode)
		}
	}
}

func TestClassifyProviderError_NetworkFailures(t *testing.T) {
	var transportErr *TransportError

	classified := classifyProviderError("p", &net.DNSError{Err: "lookup timed out", IsTimeout: true})
	require.ErrorAs(t, classified, &transportErr)
	assert.False(t, isFatalProviderError(classified))

	classified = classifyProviderError("p", errors.New("connection refused"))
	require.ErrorAs(t, classified, &transportErr)
	assert.False(t, isFatalProviderError(classified))
}

func TestEngineExhaustedErrorMessage(t *testing.T) {
	err := &EngineExhaustedError{LastErr: errors.New("boom")}
	assert.Contains(t, err.Error(), "boom")
	assert.ErrorIs(t, err, err.LastErr)

	bare := &EngineExhaustedError{}
	assert.Contains(t, bare.Error(), "exhausted")
}

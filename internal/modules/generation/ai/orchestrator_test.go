package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcfg "github.com/rankforge/core/internal/config"
)

type scriptedCall struct {
	raw string
	err error
}

// fakeProvider replays a fixed script of Generate outcomes and counts calls.
type fakeProvider struct {
	id     string
	model  string
	script []scriptedCall
	calls  int
}

func (p *fakeProvider) ID() string      { return p.id }
func (p *fakeProvider) Model() string   { return p.model }
func (p *fakeProvider) CanStream() bool { return false }

func (p *fakeProvider) Generate(_ context.Context, _ Prompt) (string, error) {
	idx := p.calls
	p.calls++
	if idx >= len(p.script) {
		return "", errors.New("unscripted call")
	}
	return p.script[idx].raw, p.script[idx].err
}

func (p *fakeProvider) Stream(ctx context.Context, prompt Prompt, onToken func(string)) (string, error) {
	raw, err := p.Generate(ctx, prompt)
	if err == nil && onToken != nil {
		onToken(raw)
	}
	return raw, err
}

// newTestOrchestrator swaps the sleep hook for one that records requested
// delays and returns instantly.
func newTestOrchestrator(t *testing.T, delays *[]time.Duration) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(appcfg.GenerationOptions{MaxRetries: 3, BaseDelayMS: 1000}, zap.NewNop())
	o.sleep = func(ctx context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return ctx.Err()
	}
	return o
}

func transportFailure(err error) scriptedCall {
	return scriptedCall{err: err}
}

func success(raw string) scriptedCall {
	return scriptedCall{raw: raw}
}

func TestRun_FirstProviderFirstAttempt(t *testing.T) {
	var delays []time.Duration
	a := &fakeProvider{id: "a", model: "gpt-4o-mini", script: []scriptedCall{success(`{"ok":true}`)}}

	outcome, err := newTestOrchestrator(t, &delays).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, outcome.Raw)
	assert.Equal(t, "a", outcome.ProviderUsed)
	assert.Equal(t, "gpt-4o-mini", outcome.ModelUsed)
	assert.Equal(t, 1, outcome.AttemptsMade)
	assert.False(t, outcome.FallbackUsed)
	assert.Empty(t, delays)

	require.Len(t, outcome.Attempts, 1)
	assert.Equal(t, "a", outcome.Attempts[0].Provider)
	assert.Equal(t, 1, outcome.Attempts[0].Attempts)
	assert.Empty(t, outcome.Attempts[0].LastError)
}

func TestRun_TransportErrorsRetryWithExponentialBackoff(t *testing.T) {
	var delays []time.Duration
	a := &fakeProvider{id: "a", script: []scriptedCall{
		transportFailure(errors.New("connection reset by peer")),
		transportFailure(errors.New("connection reset by peer")),
		success(`{"ok":true}`),
	}}

	outcome, err := newTestOrchestrator(t, &delays).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a},
	})
	require.NoError(t, err)

	assert.Equal(t, "a", outcome.ProviderUsed)
	assert.False(t, outcome.FallbackUsed, "recovery on the same provider is not a fallback")
	assert.Equal(t, 3, outcome.AttemptsMade)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
}

func TestRun_ProviderNeverExceedsRetryBudget(t *testing.T) {
	var delays []time.Duration
	a := &fakeProvider{id: "a", model: "gpt-4o", script: []scriptedCall{
		transportFailure(context.DeadlineExceeded),
		transportFailure(context.DeadlineExceeded),
		transportFailure(context.DeadlineExceeded),
		success("never reached"),
	}}
	b := &fakeProvider{id: "b", model: "claude-haiku-4-5-20251001", script: []scriptedCall{success(`{"ok":true}`)}}

	outcome, err := newTestOrchestrator(t, &delays).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a, b},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, a.calls, "exactly maxRetries calls against the failing provider")
	assert.Equal(t, "b", outcome.ProviderUsed)
	assert.Equal(t, "claude-haiku-4-5-20251001", outcome.ModelUsed)
	assert.True(t, outcome.FallbackUsed, "answer did not come from the first provider")
	assert.Equal(t, 4, outcome.AttemptsMade)

	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, "a", outcome.Attempts[0].Provider)
	assert.Equal(t, 3, outcome.Attempts[0].Attempts)
	assert.NotEmpty(t, outcome.Attempts[0].LastError)
	assert.Equal(t, "b", outcome.Attempts[1].Provider)
	assert.Equal(t, 1, outcome.Attempts[1].Attempts)
	assert.Empty(t, outcome.Attempts[1].LastError)

	// no sleep after the final attempt of a leg, none before b's first
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, delays)
}

func TestRun_AuthErrorAdvancesWithoutRetrying(t *testing.T) {
	var delays []time.Duration
	a := &fakeProvider{id: "a", script: []scriptedCall{
		transportFailure(&httpStatusError{status: 401, body: "invalid api key"}),
	}}
	b := &fakeProvider{id: "b", script: []scriptedCall{success(`{"ok":true}`)}}

	outcome, err := newTestOrchestrator(t, &delays).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a, b},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, a.calls, "credential failures must not burn the retry budget")
	assert.Empty(t, delays)
	assert.Equal(t, "b", outcome.ProviderUsed)
	assert.True(t, outcome.FallbackUsed)
	assert.Equal(t, 2, outcome.AttemptsMade)

	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, 1, outcome.Attempts[0].Attempts)
	assert.Contains(t, outcome.Attempts[0].LastError, "rejected credentials")
}

func TestRun_QuotaErrorAdvancesWithoutRetrying(t *testing.T) {
	var delays []time.Duration
	a := &fakeProvider{id: "a", script: []scriptedCall{
		transportFailure(errors.New("429: rate limit reached for requests")),
	}}
	b := &fakeProvider{id: "b", script: []scriptedCall{success(`{"ok":true}`)}}

	outcome, err := newTestOrchestrator(t, &delays).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a, b},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, a.calls)
	assert.Empty(t, delays)
	assert.Equal(t, "b", outcome.ProviderUsed)
	assert.Contains(t, outcome.Attempts[0].LastError, "quota exceeded")
}

func TestRun_InvalidPayloadConsumesRetryBudget(t *testing.T) {
	var delays []time.Duration
	a := &fakeProvider{id: "a", script: []scriptedCall{
		success("not json at all"),
		success("still not json"),
		success(`{"personas":["Homeowners who want softer water"]}`),
	}}

	validate := func(raw string) error {
		_, err := parsePersonas(raw)
		return err
	}

	outcome, err := newTestOrchestrator(t, &delays).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a},
		Validate:  validate,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, a.calls, "malformed payloads are retried against the budget")
	assert.Equal(t, 3, outcome.AttemptsMade)
	assert.Equal(t, "a", outcome.ProviderUsed)
	assert.Len(t, delays, 2)
}

func TestRun_HeuristicServesWhenAllProvidersFail(t *testing.T) {
	a := &fakeProvider{id: "a", script: []scriptedCall{
		transportFailure(errors.New("boom")),
		transportFailure(errors.New("boom")),
		transportFailure(errors.New("boom")),
	}}
	b := &fakeProvider{id: "b", script: []scriptedCall{
		transportFailure(&httpStatusError{status: 403, body: "forbidden"}),
	}}

	outcome, err := newTestOrchestrator(t, nil).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a, b},
		Fallback: func() (string, error) {
			return `{"personas":["Value-conscious shoppers comparing products online"]}`, nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, FallbackProviderID, outcome.ProviderUsed)
	assert.True(t, outcome.FallbackUsed)
	assert.Equal(t, 4, outcome.AttemptsMade)
	assert.NotEmpty(t, outcome.RawError, "the losing provider error is kept for diagnostics")
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, 3, outcome.Attempts[0].Attempts)
	assert.Equal(t, 1, outcome.Attempts[1].Attempts)
}

func TestRun_ExhaustedWithoutFallback(t *testing.T) {
	a := &fakeProvider{id: "a", script: []scriptedCall{
		transportFailure(errors.New("boom")),
		transportFailure(errors.New("boom")),
		transportFailure(errors.New("boom")),
	}}

	outcome, err := newTestOrchestrator(t, nil).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a},
	})
	assert.Nil(t, outcome)

	var exhausted *EngineExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 1)
	assert.Equal(t, 3, exhausted.Attempts[0].Attempts)
	assert.Error(t, exhausted.LastErr)
}

func TestRun_FallbackFailureIsExhausted(t *testing.T) {
	a := &fakeProvider{id: "a", script: []scriptedCall{
		transportFailure(&httpStatusError{status: 402, body: "insufficient credit"}),
	}}
	fallbackErr := errors.New("heuristic produced no output")

	outcome, err := newTestOrchestrator(t, nil).Run(context.Background(), GenerationRequest{
		Providers: []ProviderClient{a},
		Fallback:  func() (string, error) { return "", fallbackErr },
	})
	assert.Nil(t, outcome)

	var exhausted *EngineExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, exhausted.LastErr, fallbackErr)
}

func TestRun_EmptyProviderChainFallsBack(t *testing.T) {
	outcome, err := newTestOrchestrator(t, nil).Run(context.Background(), GenerationRequest{
		Fallback: func() (string, error) { return `{"keywords":["buying guide"]}`, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackProviderID, outcome.ProviderUsed)
	assert.True(t, outcome.FallbackUsed)
	assert.Zero(t, outcome.AttemptsMade)
	assert.Empty(t, outcome.RawError)
}

func TestRun_CancellationAbandonsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &fakeProvider{id: "a", script: []scriptedCall{
		transportFailure(errors.New("boom")),
		success("never reached"),
	}}
	b := &fakeProvider{id: "b", script: []scriptedCall{success("never reached")}}

	o := newTestOrchestrator(t, nil)
	o.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	fallbackCalled := false
	outcome, err := o.Run(ctx, GenerationRequest{
		Providers: []ProviderClient{a, b},
		Fallback: func() (string, error) {
			fallbackCalled = true
			return "unused", nil
		},
	})

	assert.Nil(t, outcome, "a cancelled run must not return a partial result")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
	assert.False(t, fallbackCalled)
}

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	o := NewOrchestrator(appcfg.GenerationOptions{MaxRetries: 5, BaseDelayMS: 250}, zap.NewNop())

	assert.Equal(t, 250*time.Millisecond, o.backoffDelay(1))
	assert.Equal(t, 500*time.Millisecond, o.backoffDelay(2))
	assert.Equal(t, 1*time.Second, o.backoffDelay(3))
	assert.Equal(t, 2*time.Second, o.backoffDelay(4))
}

func TestNewOrchestratorDefaults(t *testing.T) {
	o := NewOrchestrator(appcfg.GenerationOptions{}, nil)

	assert.Equal(t, 3, o.maxRetries)
	assert.Equal(t, 1*time.Second, o.baseDelay)
	assert.Equal(t, 1*time.Second, o.backoffDelay(1))
	assert.Equal(t, 4*time.Second, o.backoffDelay(3))
}

package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/rankforge/core/internal/config"
	"github.com/rankforge/core/internal/models"
)

const (
	defaultMaxRetries     = 3
	defaultBaseDelay      = 1000 * time.Millisecond
	defaultAttemptTimeout = 45 * time.Second

	// FallbackProviderID marks results produced by the heuristic generator.
	FallbackProviderID = "heuristic"
)

// GenerationRequest describes one orchestrated run: the prompt, the ordered
// provider chain, a shape validator, and an optional last-resort generator.
type GenerationRequest struct {
	Prompt    Prompt
	Providers []ProviderClient
	Validate  func(raw string) error
	Fallback  func() (string, error)
}

// GenerationOutcome is the immutable result of a run. FallbackUsed is set
// whenever the answer did not come from the first provider in the chain.
type GenerationOutcome struct {
	Raw          string
	ProviderUsed string
	ModelUsed    string
	AttemptsMade int
	FallbackUsed bool
	Attempts     []models.ProviderAttempt
	RawError     string
}

// Orchestrator walks the provider chain with bounded retries and exponential
// backoff. The sleep hook is injected so tests can observe delays without
// waiting for them.
type Orchestrator struct {
	maxRetries     int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	logger         *zap.Logger
}

func NewOrchestrator(opts appcfg.GenerationOptions, logger *zap.Logger) *Orchestrator {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := time.Duration(opts.BaseDelayMS) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		maxRetries:     maxRetries,
		baseDelay:      baseDelay,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          sleepContext,
		logger:         logger,
	}
}

// Run tries each provider in order until one produces a valid payload, then
// falls back to the heuristic generator. Cancellation of ctx abandons the run
// with no partial result.
func (o *Orchestrator) Run(ctx context.Context, req GenerationRequest) (*GenerationOutcome, error) {
	outcome := &GenerationOutcome{
		Attempts: make([]models.ProviderAttempt, 0, len(req.Providers)),
	}
	var lastErr error

	for i, provider := range req.Providers {
		attempts, raw, err := o.tryProvider(ctx, provider, req)
		outcome.AttemptsMade += attempts
		trace := models.ProviderAttempt{
			Provider: provider.ID(),
			Model:    provider.Model(),
			Attempts: attempts,
		}
		if err != nil {
			trace.LastError = err.Error()
			lastErr = err
		}
		outcome.Attempts = append(outcome.Attempts, trace)

		if err == nil {
			outcome.Raw = raw
			outcome.ProviderUsed = provider.ID()
			outcome.ModelUsed = provider.Model()
			outcome.FallbackUsed = i > 0
			o.logger.Info("generation succeeded",
				zap.String("provider", provider.ID()),
				zap.Int("attempts", outcome.AttemptsMade),
				zap.Bool("fallback", outcome.FallbackUsed))
			return outcome, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Warn("provider exhausted, advancing",
			zap.String("provider", provider.ID()),
			zap.Int("attempts", attempts),
			zap.Error(err))
	}

	if req.Fallback != nil {
		raw, err := req.Fallback()
		if err == nil {
			outcome.Raw = raw
			outcome.ProviderUsed = FallbackProviderID
			outcome.FallbackUsed = true
			if lastErr != nil {
				outcome.RawError = lastErr.Error()
			}
			o.logger.Warn("all providers failed, served heuristic fallback",
				zap.Int("attempts", outcome.AttemptsMade))
			return outcome, nil
		}
		lastErr = err
	}

	return nil, &EngineExhaustedError{Attempts: outcome.Attempts, LastErr: lastErr}
}

// tryProvider runs up to maxRetries attempts against one provider. Fatal
// errors abort the provider immediately; the returned count is the number of
// calls actually made.
func (o *Orchestrator) tryProvider(ctx context.Context, provider ProviderClient, req GenerationRequest) (int, string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, "", err
		}

		raw, err := o.attemptOnce(ctx, provider, req)
		if err == nil {
			return attempt, raw, nil
		}
		lastErr = err

		if isFatalProviderError(err) {
			return attempt, "", err
		}
		if attempt == o.maxRetries {
			return attempt, "", lastErr
		}

		delay := o.backoffDelay(attempt)
		o.logger.Debug("retrying provider",
			zap.String("provider", provider.ID()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := o.sleep(ctx, delay); err != nil {
			return attempt, "", err
		}
	}
	return o.maxRetries, "", lastErr
}

func (o *Orchestrator) attemptOnce(ctx context.Context, provider ProviderClient, req GenerationRequest) (string, error) {
	attemptCtx := ctx
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	raw, err := provider.Generate(attemptCtx, req.Prompt)
	if err != nil {
		return "", classifyProviderError(provider.ID(), err)
	}
	if req.Validate != nil {
		if err := req.Validate(raw); err != nil {
			return "", &ShapeError{Provider: provider.ID(), Err: err}
		}
	}
	return raw, nil
}

// backoffDelay returns baseDelay doubled per completed attempt.
func (o *Orchestrator) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return o.baseDelay << (attempt - 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

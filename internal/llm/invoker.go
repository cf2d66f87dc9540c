package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy controls retries. MaxRetries is the total number of attempts; the
// wait before attempt n+1 is BackoffBase*n.
type Policy struct {
	MaxRetries  int
	BackoffBase time.Duration
}

// DefaultPolicy is three attempts with a 1.2s linear backoff step.
var DefaultPolicy = Policy{MaxRetries: 3, BackoffBase: 1200 * time.Millisecond}

// Invoker wraps a Provider with linear-backoff retries.
type Invoker struct {
	provider Provider
	policy   Policy
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewInvoker(provider Provider, policy Policy, logger *slog.Logger) *Invoker {
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}
	return &Invoker{
		provider: provider,
		policy:   policy,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Provider returns the wrapped provider. The normalizer uses it directly for
// its single repair call, which must not be retried.
func (inv *Invoker) Provider() Provider {
	return inv.provider
}

// Invoke calls the provider until it succeeds or the attempts run out.
// Context cancellation ends the loop immediately and is returned as is.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= inv.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		text, err := inv.provider.Complete(ctx, req)
		if err == nil {
			inv.logger.Debug("model call completed",
				"model", inv.provider.Model(),
				"attempt", attempt,
				"duration_ms", time.Since(start).Milliseconds())
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", err
		}

		lastErr = err
		inv.logger.Warn("model call failed",
			"model", inv.provider.Model(),
			"attempt", attempt,
			"max_attempts", inv.policy.MaxRetries,
			"error", err)

		if attempt == inv.policy.MaxRetries {
			break
		}
		if err := inv.sleep(ctx, inv.policy.BackoffBase*time.Duration(attempt)); err != nil {
			return "", err
		}
	}
	return "", &InvocationError{Attempts: inv.policy.MaxRetries, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

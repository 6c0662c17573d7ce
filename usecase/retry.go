package usecase

import (
	"context"
	"time"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/logger"
)

// RetryPolicy governs in-cycle retries for collaborator calls. Only
// transient failures are retried; every other kind escalates to the caller
// on the first occurrence.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs fn up to MaxAttempts times with exponential backoff between
// transient failures. Returns the last error when attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		kind := model.KindOf(err)
		if kind != model.ErrKindTransient {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		logger.GetLogger().
			WithField("step", step).
			WithField("attempt", attempt).
			WithField("error", err).
			Warn("Transient failure - retrying")
		select {
		case <-ctx.Done():
			return model.Transient(ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"video-autopilot/domain/model"
	"video-autopilot/usecase"
)

func fastRetry() usecase.RetryPolicy {
	return usecase.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestRetryPolicy_TransientSucceedsOnRetry(t *testing.T) {
	calls := 0
	err := fastRetry().Do(context.Background(), "publish", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return model.Transient(errors.New("connection reset"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_TransientExhaustsAttempts(t *testing.T) {
	calls := 0
	cause := model.Transient(errors.New("timeout"))
	err := fastRetry().Do(context.Background(), "render", func(ctx context.Context) error {
		calls++
		return cause
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, model.ErrKindTransient, model.KindOf(err))
}

func TestRetryPolicy_QuotaNotRetried(t *testing.T) {
	calls := 0
	err := fastRetry().Do(context.Background(), "publish", func(ctx context.Context) error {
		calls++
		return model.QuotaErr("youtube", errors.New("quotaExceeded"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.ErrKindQuota, model.KindOf(err))
}

func TestRetryPolicy_AuthNotRetried(t *testing.T) {
	calls := 0
	err := fastRetry().Do(context.Background(), "publish", func(ctx context.Context) error {
		calls++
		return model.AuthErr(errors.New("invalid_grant"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_PermanentNotRetried(t *testing.T) {
	calls := 0
	err := fastRetry().Do(context.Background(), "generate", func(ctx context.Context) error {
		calls++
		return model.Permanent(errors.New("bad request"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

// Unclassified errors default to transient so flaky collaborators still get
// their retries.
func TestRetryPolicy_UnclassifiedTreatedAsTransient(t *testing.T) {
	calls := 0
	err := fastRetry().Do(context.Background(), "render", func(ctx context.Context) error {
		calls++
		return errors.New("something odd")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

package repository

import (
	"context"

	"video-autopilot/domain/model"
)

// IQuota defines persistence for per-provider quota records. One row per
// provider; the Day column advances at UTC rollover.
type IQuota interface {
	GetOrCreate(ctx context.Context, provider, day string, ceiling int64) (*model.QuotaRecord, error)
	AddConsumed(ctx context.Context, provider string, amount int64) error
	SetExhausted(ctx context.Context, provider string, exhausted bool) error
	// Reset moves the record to day, zeroes consumption and clears the
	// exhausted flag. Implementations must be idempotent for the same day.
	Reset(ctx context.Context, provider, day string) error
	List(ctx context.Context) ([]*model.QuotaRecord, error)
}

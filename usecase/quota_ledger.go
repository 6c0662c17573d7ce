package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/logger"
)

// IQuotaLedger is the shared per-provider quota ledger. All channels consume
// from the same pool, so exhaustion on one channel pauses every channel that
// uses the provider.
type IQuotaLedger interface {
	// Reserve checks that the provider has headroom and records the spend.
	// Returns a quota-classified error when the pool is exhausted.
	Reserve(ctx context.Context, provider string, cost int64) error
	// Refund returns headroom taken by Reserve when the cycle aborts before
	// publishing, so a failing channel cannot drain the shared pool.
	Refund(ctx context.Context, provider string, cost int64) error
	// MarkExhausted flags the provider after the platform itself rejected a
	// call for quota, regardless of the ledger's own accounting.
	MarkExhausted(ctx context.Context, provider string) error
	// ResetIfRolledOver starts a fresh day for the provider when the UTC day
	// has advanced. Safe to call repeatedly.
	ResetIfRolledOver(ctx context.Context, provider string, now time.Time) (bool, error)
	Exhausted(ctx context.Context, provider string) (bool, error)
	Status(ctx context.Context) ([]*model.QuotaRecord, error)
}

type quotaLedger struct {
	quotaRepo      repository.IQuota
	defaultCeiling int64
	ceilings       map[string]int64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewQuotaLedger(quotaRepo repository.IQuota, defaultCeiling int64, ceilings map[string]int64) IQuotaLedger {
	return &quotaLedger{
		quotaRepo:      quotaRepo,
		defaultCeiling: defaultCeiling,
		ceilings:       ceilings,
		locks:          make(map[string]*sync.Mutex),
	}
}

// providerLock serializes ledger updates per provider so concurrent channel
// workers cannot double-spend the same headroom.
func (l *quotaLedger) providerLock(provider string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[provider]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[provider] = lock
	}
	return lock
}

func (l *quotaLedger) ceiling(provider string) int64 {
	if c, ok := l.ceilings[provider]; ok {
		return c
	}
	return l.defaultCeiling
}

func (l *quotaLedger) Reserve(ctx context.Context, provider string, cost int64) error {
	lock := l.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.record(ctx, provider)
	if err != nil {
		return model.Transient(err)
	}
	if rec.Exhausted || rec.Consumed+cost > rec.Ceiling {
		return model.QuotaErr(provider, fmt.Errorf("provider %s quota exhausted (%d/%d)", provider, rec.Consumed, rec.Ceiling))
	}
	if err := l.quotaRepo.AddConsumed(ctx, provider, cost); err != nil {
		return model.Transient(err)
	}
	return nil
}

func (l *quotaLedger) Refund(ctx context.Context, provider string, cost int64) error {
	lock := l.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.record(ctx, provider)
	if err != nil {
		return err
	}
	// The pool may have been reset since the reservation; never go negative.
	if cost > rec.Consumed {
		cost = rec.Consumed
	}
	if cost == 0 {
		return nil
	}
	return l.quotaRepo.AddConsumed(ctx, provider, -cost)
}

func (l *quotaLedger) MarkExhausted(ctx context.Context, provider string) error {
	lock := l.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	if _, err := l.record(ctx, provider); err != nil {
		return err
	}
	if err := l.quotaRepo.SetExhausted(ctx, provider, true); err != nil {
		return err
	}
	logger.GetLogger().WithField("provider", provider).Warn("Provider quota marked exhausted")
	return nil
}

func (l *quotaLedger) ResetIfRolledOver(ctx context.Context, provider string, now time.Time) (bool, error) {
	lock := l.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.record(ctx, provider)
	if err != nil {
		return false, err
	}
	if !rec.RolledOver(now) {
		return false, nil
	}
	if err := l.quotaRepo.Reset(ctx, provider, model.UTCDay(now)); err != nil {
		return false, err
	}
	logger.GetLogger().
		WithField("provider", provider).
		WithField("day", model.UTCDay(now)).
		Info("Quota day rolled over - pool reset")
	return true, nil
}

func (l *quotaLedger) Exhausted(ctx context.Context, provider string) (bool, error) {
	rec, err := l.record(ctx, provider)
	if err != nil {
		return false, err
	}
	return rec.Exhausted, nil
}

func (l *quotaLedger) Status(ctx context.Context) ([]*model.QuotaRecord, error) {
	return l.quotaRepo.List(ctx)
}

func (l *quotaLedger) record(ctx context.Context, provider string) (*model.QuotaRecord, error) {
	return l.quotaRepo.GetOrCreate(ctx, provider, model.UTCDay(time.Now()), l.ceiling(provider))
}

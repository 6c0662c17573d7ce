package usecase

import (
	"context"
	"time"

	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/logger"
	"video-autopilot/infrastructure/realtime"
)

// IQuotaMonitor periodically resets rolled-over quota pools and resumes
// channels that were paused for quota once every provider they use has
// headroom again.
type IQuotaMonitor interface {
	Run(ctx context.Context, interval time.Duration) error
	Sweep(ctx context.Context, now time.Time) error
}

type quotaMonitor struct {
	channelRepo repository.IChannel
	ledger      IQuotaLedger
	hub         *realtime.Hub
}

func NewQuotaMonitor(channelRepo repository.IChannel, ledger IQuotaLedger, hub *realtime.Hub) IQuotaMonitor {
	return &quotaMonitor{channelRepo: channelRepo, ledger: ledger, hub: hub}
}

// Run executes a sweep on every tick until the context ends.
func (m *quotaMonitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Sweep(ctx, time.Now().UTC()); err != nil {
				logger.GetLogger().WithField("error", err).Error("Error while sweeping quota pools")
			}
		}
	}
}

// Sweep resets rolled-over pools, then resumes paused_quota channels whose
// providers are all clear.
func (m *quotaMonitor) Sweep(ctx context.Context, now time.Time) error {
	records, err := m.ledger.Status(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := m.ledger.ResetIfRolledOver(ctx, rec.Provider, now); err != nil {
			logger.GetLogger().
				WithField("provider", rec.Provider).
				WithField("error", err).
				Error("Error while resetting quota pool")
		}
	}

	paused, err := m.channelRepo.ListByState(ctx, model.ChannelPausedQuota)
	if err != nil {
		return err
	}
	for _, ch := range paused {
		ok, err := m.providersClear(ctx, ch)
		if err != nil {
			logger.GetLogger().
				WithField("channelId", ch.ID).
				WithField("error", err).
				Error("Error while checking provider headroom")
			continue
		}
		if !ok {
			continue
		}
		if err := m.channelRepo.SetState(ctx, ch.ID, model.ChannelActive); err != nil {
			logger.GetLogger().
				WithField("channelId", ch.ID).
				WithField("error", err).
				Error("Error while resuming channel")
			continue
		}
		logger.GetLogger().WithField("channelId", ch.ID).Info("Quota restored - channel resumed")
		if m.hub != nil {
			m.hub.BroadcastStateChange(ch.ID, string(model.ChannelActive))
		}
	}
	return nil
}

// providersClear reports whether none of the channel's providers are
// exhausted. A channel resumes only when every provider it consumes has
// headroom.
func (m *quotaMonitor) providersClear(ctx context.Context, ch *model.Channel) (bool, error) {
	for _, provider := range ch.Providers {
		exhausted, err := m.ledger.Exhausted(ctx, provider)
		if err != nil {
			return false, err
		}
		if exhausted {
			return false, nil
		}
	}
	return true, nil
}

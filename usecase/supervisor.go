package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"video-autopilot/domain/dto"
	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/cache"
	"video-autopilot/infrastructure/logger"
	"video-autopilot/infrastructure/realtime"
	"video-autopilot/infrastructure/servicebus"
)

// SupervisorOptions bundles the background loop intervals and the stale
// pause alert policy.
type SupervisorOptions struct {
	QuotaSweepInterval   time.Duration
	RefreshSweepInterval time.Duration
	StalePauseAlertAfter time.Duration
}

// IFleetSupervisor runs the fleet and exposes the operator surface.
type IFleetSupervisor interface {
	// Run starts the scheduler, the quota monitor and the credential
	// refresher and blocks until the context ends or one of them fails.
	Run(ctx context.Context) error
	Pause(ctx context.Context, channelID string) error
	Resume(ctx context.Context, channelID string) error
	Health(ctx context.Context) (*dto.FleetHealth, error)
}

type fleetSupervisor struct {
	channelRepo repository.IChannel
	scheduler   IScheduler
	monitor     IQuotaMonitor
	refresher   ICredentialRefresher
	ledger      IQuotaLedger
	statusCache *cache.StatusCache
	alertBus    servicebus.IAlertBus
	hub         *realtime.Hub
	opts        SupervisorOptions
}

func NewFleetSupervisor(
	channelRepo repository.IChannel,
	scheduler IScheduler,
	monitor IQuotaMonitor,
	refresher ICredentialRefresher,
	ledger IQuotaLedger,
	statusCache *cache.StatusCache,
	alertBus servicebus.IAlertBus,
	hub *realtime.Hub,
	opts SupervisorOptions,
) IFleetSupervisor {
	return &fleetSupervisor{
		channelRepo: channelRepo,
		scheduler:   scheduler,
		monitor:     monitor,
		refresher:   refresher,
		ledger:      ledger,
		statusCache: statusCache,
		alertBus:    alertBus,
		hub:         hub,
		opts:        opts,
	}
}

func (s *fleetSupervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.scheduler.Run(ctx) })
	g.Go(func() error { return s.monitor.Run(ctx, s.opts.QuotaSweepInterval) })
	g.Go(func() error { return s.refresher.Run(ctx, s.opts.RefreshSweepInterval) })
	if s.opts.StalePauseAlertAfter > 0 {
		g.Go(func() error { return s.watchStalePauses(ctx) })
	}
	logger.GetLogger().Info("Fleet supervisor started")
	return g.Wait()
}

// Pause takes a channel out of rotation at the operator's request. Paused
// channels never auto-resume; that is reserved for pauses the system applied
// itself.
func (s *fleetSupervisor) Pause(ctx context.Context, channelID string) error {
	if _, err := s.channelRepo.GetByID(ctx, channelID); err != nil {
		return err
	}
	if err := s.channelRepo.SetState(ctx, channelID, model.ChannelDisabled); err != nil {
		return err
	}
	logger.GetLogger().WithField("channelId", channelID).Info("Channel disabled by operator")
	if s.hub != nil {
		s.hub.BroadcastStateChange(channelID, string(model.ChannelDisabled))
	}
	return nil
}

// Resume puts a channel back in rotation regardless of why it was paused.
func (s *fleetSupervisor) Resume(ctx context.Context, channelID string) error {
	if _, err := s.channelRepo.GetByID(ctx, channelID); err != nil {
		return err
	}
	if err := s.channelRepo.SetState(ctx, channelID, model.ChannelActive); err != nil {
		return err
	}
	logger.GetLogger().WithField("channelId", channelID).Info("Channel resumed by operator")
	if s.hub != nil {
		s.hub.BroadcastStateChange(channelID, string(model.ChannelActive))
	}
	return nil
}

// Health reports per-channel and per-provider status. Snapshots are cached
// briefly so a polling dashboard does not hammer the repositories.
func (s *fleetSupervisor) Health(ctx context.Context) (*dto.FleetHealth, error) {
	if s.statusCache != nil {
		if cached := s.statusCache.GetHealth(ctx); cached != nil {
			return cached, nil
		}
	}

	channels, err := s.channelRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	quotas, err := s.ledger.Status(ctx)
	if err != nil {
		return nil, err
	}

	health := &dto.FleetHealth{GeneratedAt: time.Now().UTC()}
	for _, ch := range channels {
		health.Channels = append(health.Channels, dto.ChannelStatus{
			ID:                  ch.ID,
			Name:                ch.Name,
			Theme:               ch.Theme,
			State:               string(ch.State),
			IntervalMinutes:     ch.IntervalMinutes,
			LastRunAt:           ch.LastRunAt,
			ConsecutiveFailures: ch.ConsecutiveFailures,
			Providers:           ch.Providers,
		})
		health.RecentFailures += ch.ConsecutiveFailures
		switch ch.State {
		case model.ChannelActive:
			health.ActiveCount++
		case model.ChannelPausedQuota:
			health.PausedQuota++
		case model.ChannelPausedAuth:
			health.PausedAuth++
		case model.ChannelPausedErrors:
			health.PausedErrors++
		case model.ChannelDisabled:
			health.DisabledCount++
		}
	}
	for _, q := range quotas {
		health.Quotas = append(health.Quotas, dto.ProviderQuotaStatus{
			Provider:  q.Provider,
			Day:       q.Day,
			Ceiling:   q.Ceiling,
			Consumed:  q.Consumed,
			Exhausted: q.Exhausted,
			LastReset: q.LastReset,
		})
	}

	if s.statusCache != nil {
		s.statusCache.SetHealth(ctx, health)
	}
	return health, nil
}

// watchStalePauses alerts on channels that have sat in a system-applied
// pause state longer than the alert window. Quota pauses are expected to
// clear at rollover; auth and error pauses need a human.
func (s *fleetSupervisor) watchStalePauses(ctx context.Context) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepStalePauses(ctx, time.Now().UTC())
		}
	}
}

func (s *fleetSupervisor) sweepStalePauses(ctx context.Context, now time.Time) {
	for _, state := range []model.ChannelState{model.ChannelPausedAuth, model.ChannelPausedErrors, model.ChannelPausedQuota} {
		channels, err := s.channelRepo.ListByState(ctx, state)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while listing paused channels")
			continue
		}
		for _, ch := range channels {
			if now.Sub(ch.UpdatedAt) < s.opts.StalePauseAlertAfter {
				continue
			}
			logger.GetLogger().
				WithField("channelId", ch.ID).
				WithField("state", ch.State).
				WithField("pausedSince", ch.UpdatedAt).
				Warn("Channel paused past alert window")
			if s.alertBus != nil {
				alert := &servicebus.PauseAlert{
					ChannelID: ch.ID,
					State:     string(ch.State),
					Reason:    fmt.Sprintf("paused since %s", ch.UpdatedAt.Format(time.RFC3339)),
					RaisedAt:  now,
				}
				if err := s.alertBus.SendPauseAlert(ctx, alert); err != nil {
					logger.GetLogger().WithField("error", err).Error("Error while sending stale pause alert")
				}
			}
		}
	}
}

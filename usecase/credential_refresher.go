package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/logger"
	"video-autopilot/infrastructure/realtime"
	"video-autopilot/infrastructure/servicebus"
)

// ICredentialRefresher renews OAuth credentials before they expire so publish
// cycles never start with a dead token.
type ICredentialRefresher interface {
	Run(ctx context.Context, interval time.Duration) error
	Sweep(ctx context.Context, now time.Time) error
	// EnsureFresh refreshes the channel's credential if it is inside the
	// proactive window and returns a credential safe to publish with.
	EnsureFresh(ctx context.Context, channelID string) (*model.Credential, error)
}

type credentialRefresher struct {
	credentialRepo repository.ICredential
	channelRepo    repository.IChannel
	publisher      repository.IPublisher
	alertBus       servicebus.IAlertBus
	hub            *realtime.Hub

	window      time.Duration
	maxAttempts int
	baseDelay   time.Duration
}

func NewCredentialRefresher(
	credentialRepo repository.ICredential,
	channelRepo repository.IChannel,
	publisher repository.IPublisher,
	alertBus servicebus.IAlertBus,
	hub *realtime.Hub,
	window time.Duration,
	maxAttempts int,
	baseDelay time.Duration,
) ICredentialRefresher {
	return &credentialRefresher{
		credentialRepo: credentialRepo,
		channelRepo:    channelRepo,
		publisher:      publisher,
		alertBus:       alertBus,
		hub:            hub,
		window:         window,
		maxAttempts:    maxAttempts,
		baseDelay:      baseDelay,
	}
}

func (r *credentialRefresher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Sweep(ctx, time.Now().UTC()); err != nil {
				logger.GetLogger().WithField("error", err).Error("Error while sweeping credentials")
			}
		}
	}
}

// Sweep refreshes every credential that expires inside the proactive window.
func (r *credentialRefresher) Sweep(ctx context.Context, now time.Time) error {
	credentials, err := r.credentialRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, cred := range credentials {
		if !cred.ExpiresWithin(now, r.window) {
			continue
		}
		if err := r.refresh(ctx, cred); err != nil {
			logger.GetLogger().
				WithField("channelId", cred.ChannelID).
				WithField("error", err).
				Error("Error while refreshing credential")
		}
	}
	return nil
}

func (r *credentialRefresher) EnsureFresh(ctx context.Context, channelID string) (*model.Credential, error) {
	cred, err := r.credentialRepo.Get(ctx, channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A channel that was never authorized cannot be fixed by retrying;
			// it needs the consent flow.
			return nil, model.AuthErr(fmt.Errorf("channel %s has no stored credential: %w", channelID, err))
		}
		return nil, model.Transient(err)
	}
	if !cred.ExpiresWithin(time.Now().UTC(), r.window) {
		return cred, nil
	}
	if err := r.refresh(ctx, cred); err != nil {
		return nil, err
	}
	return r.credentialRepo.Get(ctx, channelID)
}

// refresh renews one credential with bounded retries. After the final
// attempt fails the channel moves to paused_auth and an operator alert goes
// out; the stale credential stays in the store untouched so the refresh
// token survives for manual recovery.
func (r *credentialRefresher) refresh(ctx context.Context, cred *model.Credential) error {
	delay := r.baseDelay
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		renewed, err := r.publisher.RefreshCredential(ctx, cred)
		if err == nil {
			if err := r.credentialRepo.Replace(ctx, renewed); err != nil {
				return err
			}
			logger.GetLogger().
				WithField("channelId", cred.ChannelID).
				WithField("expiry", renewed.Expiry).
				Info("Credential refreshed")
			return nil
		}
		lastErr = err
		if model.KindOf(err) == model.ErrKindAuth {
			// The refresh token itself is bad; retrying cannot help.
			break
		}
		logger.GetLogger().
			WithField("channelId", cred.ChannelID).
			WithField("attempt", attempt).
			WithField("error", err).
			Warn("Credential refresh failed - will retry")
		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return model.Transient(ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	r.pauseForAuth(ctx, cred.ChannelID, lastErr)
	return lastErr
}

func (r *credentialRefresher) pauseForAuth(ctx context.Context, channelID string, cause error) {
	if err := r.channelRepo.SetState(ctx, channelID, model.ChannelPausedAuth); err != nil {
		logger.GetLogger().
			WithField("channelId", channelID).
			WithField("error", err).
			Error("Error while pausing channel for auth")
		return
	}
	logger.GetLogger().
		WithField("channelId", channelID).
		WithField("error", cause).
		Warn("Credential refresh exhausted - channel paused for auth")
	if r.hub != nil {
		r.hub.BroadcastStateChange(channelID, string(model.ChannelPausedAuth))
	}
	if r.alertBus != nil {
		alert := &servicebus.PauseAlert{
			ChannelID: channelID,
			State:     string(model.ChannelPausedAuth),
			Reason:    "credential refresh failed; re-authorization required",
			RaisedAt:  time.Now().UTC(),
		}
		if err := r.alertBus.SendPauseAlert(ctx, alert); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while sending pause alert")
		}
	}
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"video-autopilot/domain/model"
	"video-autopilot/domain/repository"
	"video-autopilot/infrastructure/logger"
	"video-autopilot/infrastructure/pubsub"
	"video-autopilot/infrastructure/realtime"
	"video-autopilot/infrastructure/servicebus"
)

// publishCostUnits is the ledger cost of one publish cycle. YouTube bills a
// video insert at 1600 quota units.
const publishCostUnits = 1600

// SchedulerOptions bundles the tuning knobs for the cycle engine.
type SchedulerOptions struct {
	PollInterval       time.Duration
	CycleTimeout       time.Duration
	MaxRegenerations   int
	PauseAfterFailures int
	Retry              RetryPolicy
}

// IScheduler drives publish cycles for every active channel.
type IScheduler interface {
	// Run polls for due channels until the context ends. Each due channel
	// gets its own cycle goroutine; a channel never runs two cycles at once.
	Run(ctx context.Context) error
	// RunCycle executes one generate-render-publish cycle for the channel.
	RunCycle(ctx context.Context, channelID string) error
}

type scheduler struct {
	channelRepo repository.IChannel
	auditRepo   repository.ICycleAudit
	generator   repository.IContentGenerator
	renderer    repository.IRenderer
	publisher   repository.IPublisher
	guard       IDuplicateGuard
	ledger      IQuotaLedger
	refresher   ICredentialRefresher
	events      pubsub.ICycleEvents
	alertBus    servicebus.IAlertBus
	hub         *realtime.Hub
	opts        SchedulerOptions

	mu      sync.Mutex
	running map[string]bool
}

func NewScheduler(
	channelRepo repository.IChannel,
	auditRepo repository.ICycleAudit,
	generator repository.IContentGenerator,
	renderer repository.IRenderer,
	publisher repository.IPublisher,
	guard IDuplicateGuard,
	ledger IQuotaLedger,
	refresher ICredentialRefresher,
	events pubsub.ICycleEvents,
	alertBus servicebus.IAlertBus,
	hub *realtime.Hub,
	opts SchedulerOptions,
) IScheduler {
	return &scheduler{
		channelRepo: channelRepo,
		auditRepo:   auditRepo,
		generator:   generator,
		renderer:    renderer,
		publisher:   publisher,
		guard:       guard,
		ledger:      ledger,
		refresher:   refresher,
		events:      events,
		alertBus:    alertBus,
		hub:         hub,
		opts:        opts,
		running:     make(map[string]bool),
	}
}

func (s *scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

// dispatch starts a cycle for every active, due channel that is not already
// mid-cycle.
func (s *scheduler) dispatch(ctx context.Context) {
	channels, err := s.channelRepo.ListByState(ctx, model.ChannelActive)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while listing active channels")
		return
	}
	now := time.Now().UTC()
	for _, ch := range channels {
		if !ch.Due(now) {
			continue
		}
		channelID := ch.ID
		go func() {
			if err := s.RunCycle(ctx, channelID); err != nil {
				logger.GetLogger().
					WithField("channelId", channelID).
					WithField("error", err).
					Warn("Cycle did not complete")
			}
		}()
	}
}

// tryAcquire marks the channel as mid-cycle. Returns false when a cycle is
// already running for it.
func (s *scheduler) tryAcquire(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[channelID] {
		return false
	}
	s.running[channelID] = true
	return true
}

func (s *scheduler) release(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, channelID)
}

func (s *scheduler) RunCycle(ctx context.Context, channelID string) error {
	if !s.tryAcquire(channelID) {
		return nil
	}
	defer s.release(channelID)

	ctx, cancel := context.WithTimeout(ctx, s.opts.CycleTimeout)
	defer cancel()

	ch, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.State != model.ChannelActive {
		return nil
	}

	audit := &model.CycleAudit{
		CycleID:   uuid.New().String(),
		ChannelID: ch.ID,
		StartedAt: time.Now().UTC(),
	}
	log := logger.GetLogger().
		WithField("cycleId", audit.CycleID).
		WithField("channelId", ch.ID)
	log.Info("Cycle started")

	externalID, title, err := s.cycle(ctx, ch)
	audit.FinishedAt = time.Now().UTC()
	audit.Title = title
	if err != nil {
		audit.Status = "failed"
		audit.ErrorKind = string(model.KindOf(err))
		audit.Error = err.Error()
		s.finishAudit(ctx, audit)
		s.handleFailure(ctx, ch, err)
		return err
	}

	audit.Status = "success"
	audit.ExternalID = externalID
	s.finishAudit(ctx, audit)

	if err := s.channelRepo.MarkRunSuccess(ctx, ch.ID); err != nil {
		log.WithField("error", err).Error("Error while marking run success")
	}
	log.WithField("externalId", externalID).Info("Cycle published")
	if s.hub != nil {
		s.hub.Broadcast(realtime.FleetEvent{
			Type:      "cycle_published",
			ChannelID: ch.ID,
			State:     string(model.ChannelActive),
			CycleID:   &audit.CycleID,
		})
	}
	return nil
}

// cycle runs the generate-render-publish pipeline and returns the external
// video ID and the published title. Headroom reserved up front is returned to
// the ledger when the cycle aborts before the publish lands; only a finished
// publish counts against the day's pool.
func (s *scheduler) cycle(ctx context.Context, ch *model.Channel) (string, string, error) {
	var reserved []string
	published := false
	defer func() {
		if published {
			return
		}
		refundCtx := context.WithoutCancel(ctx)
		for _, provider := range reserved {
			if err := s.ledger.Refund(refundCtx, provider, publishCostUnits); err != nil {
				logger.GetLogger().
					WithField("provider", provider).
					WithField("error", err).
					Error("Error while refunding quota reservation")
			}
		}
	}()
	for _, provider := range ch.Providers {
		if err := s.ledger.Reserve(ctx, provider, publishCostUnits); err != nil {
			return "", "", err
		}
		reserved = append(reserved, provider)
	}

	cred, err := s.refresher.EnsureFresh(ctx, ch.ID)
	if err != nil {
		return "", "", err
	}

	content, err := s.generateFresh(ctx, ch)
	if err != nil {
		return "", "", err
	}

	var artifact string
	err = s.opts.Retry.Do(ctx, "render", func(ctx context.Context) error {
		artifact, err = s.renderer.Render(ctx, content.Body)
		return err
	})
	if err != nil {
		return "", content.Title, err
	}

	var externalID string
	err = s.opts.Retry.Do(ctx, "publish", func(ctx context.Context) error {
		externalID, err = s.publisher.Publish(ctx, artifact, content.Title, cred)
		return err
	})
	if err != nil {
		return "", content.Title, err
	}
	published = true

	if err := s.guard.Remember(ctx, ch.ID, content.Title); err != nil {
		// The video is live; a history write failure must not fail the cycle.
		logger.GetLogger().
			WithField("channelId", ch.ID).
			WithField("error", err).
			Error("Error while recording published title")
	}
	return externalID, content.Title, nil
}

// generateFresh asks the generator for content until the duplicate guard
// accepts a title, up to the regeneration cap. Rejected titles feed back into
// the next request so the generator can steer away from them.
func (s *scheduler) generateFresh(ctx context.Context, ch *model.Channel) (*model.GeneratedContent, error) {
	var avoid []string
	attempts := s.opts.MaxRegenerations + 1
	for i := 0; i < attempts; i++ {
		var content *model.GeneratedContent
		err := s.opts.Retry.Do(ctx, "generate", func(ctx context.Context) error {
			var genErr error
			content, genErr = s.generator.Generate(ctx, ch.Theme, avoid)
			return genErr
		})
		if err != nil {
			return nil, err
		}

		decision, err := s.guard.Check(ctx, ch.ID, content.Title)
		if err != nil {
			return nil, err
		}
		if decision.Accepted {
			return content, nil
		}
		logger.GetLogger().
			WithField("channelId", ch.ID).
			WithField("title", content.Title).
			WithField("matchedWith", decision.MatchedWith).
			WithField("similarity", decision.Similarity).
			Warn("Title too similar to recent history - regenerating")
		avoid = append(avoid, content.Title)
	}
	return nil, model.NewClassifiedError(model.ErrKindDuplicateExhausted,
		fmt.Errorf("no fresh title after %d regenerations", s.opts.MaxRegenerations))
}

// handleFailure applies the state transition the error kind calls for.
func (s *scheduler) handleFailure(ctx context.Context, ch *model.Channel, cause error) {
	switch model.KindOf(cause) {
	case model.ErrKindQuota:
		s.pause(ctx, ch, model.ChannelPausedQuota, "provider quota exhausted")
		// Pools are independent; only the provider that raised the signal is
		// flagged, never the channel's other providers.
		if provider := model.QuotaProvider(cause); provider != "" {
			if err := s.ledger.MarkExhausted(ctx, provider); err != nil {
				logger.GetLogger().
					WithField("provider", provider).
					WithField("error", err).
					Error("Error while marking provider exhausted")
			}
		}
	case model.ErrKindAuth:
		s.pause(ctx, ch, model.ChannelPausedAuth, "authorization failed; re-auth required")
	case model.ErrKindDuplicateExhausted:
		// Content-level condition, not channel health. The cycle is skipped
		// and the next one starts from a clean slate.
		logger.GetLogger().
			WithField("channelId", ch.ID).
			Warn("Cycle skipped - duplicate guard rejected all candidates")
	default:
		// Transient exhaustion and permanent errors abandon the cycle; the
		// channel stays active unless the failure streak policy is on.
		if err := s.channelRepo.IncrementFailures(ctx, ch.ID); err != nil {
			logger.GetLogger().
				WithField("channelId", ch.ID).
				WithField("error", err).
				Error("Error while counting failed cycle")
			return
		}
		if s.opts.PauseAfterFailures > 0 && ch.ConsecutiveFailures+1 >= s.opts.PauseAfterFailures {
			s.pause(ctx, ch, model.ChannelPausedErrors,
				fmt.Sprintf("%d consecutive failed cycles", ch.ConsecutiveFailures+1))
		}
	}
}

func (s *scheduler) pause(ctx context.Context, ch *model.Channel, state model.ChannelState, reason string) {
	if err := s.channelRepo.SetState(ctx, ch.ID, state); err != nil {
		logger.GetLogger().
			WithField("channelId", ch.ID).
			WithField("error", err).
			Error("Error while pausing channel")
		return
	}
	logger.GetLogger().
		WithField("channelId", ch.ID).
		WithField("state", state).
		WithField("reason", reason).
		Warn("Channel paused")
	if s.hub != nil {
		s.hub.BroadcastStateChange(ch.ID, string(state))
	}
	if s.alertBus != nil {
		alert := &servicebus.PauseAlert{
			ChannelID: ch.ID,
			State:     string(state),
			Reason:    reason,
			RaisedAt:  time.Now().UTC(),
		}
		if err := s.alertBus.SendPauseAlert(ctx, alert); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while sending pause alert")
		}
	}
}

func (s *scheduler) finishAudit(ctx context.Context, audit *model.CycleAudit) {
	if s.auditRepo != nil {
		if err := s.auditRepo.Record(ctx, audit); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while recording cycle audit")
		}
	}
	if s.events != nil {
		if _, err := s.events.PublishCycle(ctx, audit); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while publishing cycle event")
		}
	}
}

package usecase_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"video-autopilot/domain/model"
	"video-autopilot/usecase"
)

type schedulerFixture struct {
	channelRepo    *MockChannelRepo
	credentialRepo *MockCredentialRepo
	quotaRepo      *MockQuotaRepo
	historyRepo    *MockDuplicateHistory
	generator      *MockGenerator
	renderer       *MockRenderer
	publisher      *MockPublisher
	alertBus       *MockAlertBus
	scheduler      usecase.IScheduler
}

func newSchedulerFixture() *schedulerFixture {
	f := &schedulerFixture{
		channelRepo:    new(MockChannelRepo),
		credentialRepo: new(MockCredentialRepo),
		quotaRepo:      new(MockQuotaRepo),
		historyRepo:    new(MockDuplicateHistory),
		generator:      new(MockGenerator),
		renderer:       new(MockRenderer),
		publisher:      new(MockPublisher),
		alertBus:       new(MockAlertBus),
	}
	ledger := usecase.NewQuotaLedger(f.quotaRepo, 10000, nil)
	guard := usecase.NewDuplicateGuard(f.historyRepo, 50, 0.85)
	refresher := usecase.NewCredentialRefresher(
		f.credentialRepo, f.channelRepo, f.publisher, f.alertBus, nil,
		2*time.Hour, 5, time.Millisecond,
	)
	f.scheduler = usecase.NewScheduler(
		f.channelRepo, nil, f.generator, f.renderer, f.publisher,
		guard, ledger, refresher, nil, f.alertBus, nil,
		usecase.SchedulerOptions{
			PollInterval:     time.Second,
			CycleTimeout:     10 * time.Second,
			MaxRegenerations: 3,
			Retry:            usecase.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		},
	)
	return f
}

func (f *schedulerFixture) activeChannel() *model.Channel {
	return &model.Channel{
		ID:              "ch-1",
		Name:            "Daily Science",
		Theme:           "science facts",
		Providers:       []string{"youtube"},
		IntervalMinutes: 360,
		State:           model.ChannelActive,
	}
}

func (f *schedulerFixture) freshCredential() *model.Credential {
	return &model.Credential{
		ChannelID:    "ch-1",
		Provider:     "youtube",
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().UTC().Add(12 * time.Hour),
	}
}

func (f *schedulerFixture) expectQuotaHeadroom() {
	f.quotaRepo.On("GetOrCreate", mock.Anything, "youtube", mock.Anything, int64(10000)).
		Return(&model.QuotaRecord{Provider: "youtube", Day: model.UTCDay(time.Now()), Ceiling: 10000, Consumed: 0}, nil)
	f.quotaRepo.On("AddConsumed", mock.Anything, "youtube", mock.Anything).Return(nil)
}

func TestScheduler_CyclePublishes(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.expectQuotaHeadroom()
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Return(&model.GeneratedContent{Title: "Why The Sky Is Blue", Body: "script"}, nil)
	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{}, nil)
	f.renderer.On("Render", mock.Anything, "script").Return("https://cdn/artifact.mp4", nil)
	f.publisher.On("Publish", mock.Anything, "https://cdn/artifact.mp4", "Why The Sky Is Blue", mock.Anything).
		Return("vid-123", nil)
	f.historyRepo.On("Append", mock.Anything, mock.Anything, 50).Return(nil)
	f.channelRepo.On("MarkRunSuccess", mock.Anything, "ch-1").Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.NoError(t, err)
	f.channelRepo.AssertCalled(t, "MarkRunSuccess", mock.Anything, "ch-1")
	f.historyRepo.AssertCalled(t, "Append", mock.Anything, mock.Anything, 50)
	// The publish landed, so the spend stays on the ledger.
	f.quotaRepo.AssertNotCalled(t, "AddConsumed", mock.Anything, "youtube", int64(-1600))
}

func TestScheduler_SkipsNonActiveChannel(t *testing.T) {
	f := newSchedulerFixture()
	paused := f.activeChannel()
	paused.State = model.ChannelPausedAuth
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(paused, nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.NoError(t, err)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_RegeneratesOnDuplicateThenPublishes(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.expectQuotaHeadroom()
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)

	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{
		{Title: "Why The Sky Is Blue", Normalized: usecase.Normalize("Why The Sky Is Blue")},
	}, nil)
	// First candidate collides with history; the retry carries it in avoid.
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Return(&model.GeneratedContent{Title: "Why The Sky Is Blue!", Body: "dup"}, nil).Once()
	f.generator.On("Generate", mock.Anything, "science facts", []string{"Why The Sky Is Blue!"}).
		Return(&model.GeneratedContent{Title: "How Volcanoes Work", Body: "script"}, nil)

	f.renderer.On("Render", mock.Anything, "script").Return("artifact", nil)
	f.publisher.On("Publish", mock.Anything, "artifact", "How Volcanoes Work", mock.Anything).
		Return("vid-456", nil)
	f.historyRepo.On("Append", mock.Anything, mock.Anything, 50).Return(nil)
	f.channelRepo.On("MarkRunSuccess", mock.Anything, "ch-1").Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.NoError(t, err)
	f.generator.AssertNumberOfCalls(t, "Generate", 2)
}

func TestScheduler_DuplicateExhaustedSkipsCycleWithoutPausing(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.expectQuotaHeadroom()
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)

	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{
		{Title: "Why The Sky Is Blue", Normalized: usecase.Normalize("Why The Sky Is Blue")},
	}, nil)
	// Every candidate collides.
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Return(&model.GeneratedContent{Title: "Why The Sky Is Blue", Body: "dup"}, nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindDuplicateExhausted, model.KindOf(err))
	// 1 initial attempt + 3 regenerations.
	f.generator.AssertNumberOfCalls(t, "Generate", 4)
	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	// Content-level condition: the channel stays active and unblemished.
	f.channelRepo.AssertNotCalled(t, "SetState", mock.Anything, mock.Anything, mock.Anything)
	f.channelRepo.AssertNotCalled(t, "IncrementFailures", mock.Anything, mock.Anything)
}

func TestScheduler_QuotaExhaustionPausesChannel(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.quotaRepo.On("GetOrCreate", mock.Anything, "youtube", mock.Anything, int64(10000)).
		Return(&model.QuotaRecord{Provider: "youtube", Day: model.UTCDay(time.Now()), Ceiling: 10000, Consumed: 10000}, nil)
	f.quotaRepo.On("SetExhausted", mock.Anything, "youtube", true).Return(nil)
	f.channelRepo.On("SetState", mock.Anything, "ch-1", model.ChannelPausedQuota).Return(nil)
	f.alertBus.On("SendPauseAlert", mock.Anything, mock.Anything).Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindQuota, model.KindOf(err))
	f.channelRepo.AssertCalled(t, "SetState", mock.Anything, "ch-1", model.ChannelPausedQuota)
	f.quotaRepo.AssertCalled(t, "SetExhausted", mock.Anything, "youtube", true)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_QuotaSignalMarksOnlyFailingProvider(t *testing.T) {
	f := newSchedulerFixture()
	ch := f.activeChannel()
	ch.Providers = []string{"youtube", "tiktok"}
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(ch, nil)
	f.expectQuotaHeadroom()
	f.quotaRepo.On("GetOrCreate", mock.Anything, "tiktok", mock.Anything, int64(10000)).
		Return(&model.QuotaRecord{Provider: "tiktok", Day: model.UTCDay(time.Now()), Ceiling: 10000, Consumed: 0}, nil)
	f.quotaRepo.On("AddConsumed", mock.Anything, "tiktok", mock.Anything).Return(nil)
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Return(&model.GeneratedContent{Title: "Fresh Title", Body: "script"}, nil)
	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{}, nil)
	f.renderer.On("Render", mock.Anything, "script").Return("artifact", nil)
	// YouTube raises the quota signal; tiktok's pool is untouched.
	f.publisher.On("Publish", mock.Anything, "artifact", "Fresh Title", mock.Anything).
		Return("", model.QuotaErr("youtube", errors.New("403 quotaExceeded")))
	f.quotaRepo.On("SetExhausted", mock.Anything, "youtube", true).Return(nil)
	f.channelRepo.On("SetState", mock.Anything, "ch-1", model.ChannelPausedQuota).Return(nil)
	f.alertBus.On("SendPauseAlert", mock.Anything, mock.Anything).Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindQuota, model.KindOf(err))
	f.quotaRepo.AssertCalled(t, "SetExhausted", mock.Anything, "youtube", true)
	f.quotaRepo.AssertNotCalled(t, "SetExhausted", mock.Anything, "tiktok", true)
}

func TestScheduler_AbortedCycleRefundsReservation(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	// First read backs the reservation; the refund sees the recorded spend.
	f.quotaRepo.On("GetOrCreate", mock.Anything, "youtube", mock.Anything, int64(10000)).
		Return(&model.QuotaRecord{Provider: "youtube", Day: model.UTCDay(time.Now()), Ceiling: 10000, Consumed: 0}, nil).Once()
	f.quotaRepo.On("GetOrCreate", mock.Anything, "youtube", mock.Anything, int64(10000)).
		Return(&model.QuotaRecord{Provider: "youtube", Day: model.UTCDay(time.Now()), Ceiling: 10000, Consumed: 1600}, nil)
	f.quotaRepo.On("AddConsumed", mock.Anything, "youtube", int64(1600)).Return(nil)
	f.quotaRepo.On("AddConsumed", mock.Anything, "youtube", int64(-1600)).Return(nil)
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Return(&model.GeneratedContent{Title: "Fresh Title", Body: "script"}, nil)
	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{}, nil)
	f.renderer.On("Render", mock.Anything, "script").
		Return("", model.Permanent(errors.New("unsupported codec")))
	f.channelRepo.On("IncrementFailures", mock.Anything, "ch-1").Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.Error(t, err)
	// Nothing was published, so the 1600 units go back to the shared pool.
	f.quotaRepo.AssertCalled(t, "AddConsumed", mock.Anything, "youtube", int64(-1600))
}

func TestScheduler_MissingCredentialPausesForAuth(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.expectQuotaHeadroom()
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(nil, sql.ErrNoRows)
	f.channelRepo.On("SetState", mock.Anything, "ch-1", model.ChannelPausedAuth).Return(nil)
	f.alertBus.On("SendPauseAlert", mock.Anything, mock.Anything).Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.Error(t, err)
	assert.Equal(t, model.ErrKindAuth, model.KindOf(err))
	// The remedy is the consent flow, not another cycle.
	f.channelRepo.AssertCalled(t, "SetState", mock.Anything, "ch-1", model.ChannelPausedAuth)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_AuthFailurePausesChannel(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.expectQuotaHeadroom()
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Return(&model.GeneratedContent{Title: "Fresh Title", Body: "script"}, nil)
	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{}, nil)
	f.renderer.On("Render", mock.Anything, "script").Return("artifact", nil)
	f.publisher.On("Publish", mock.Anything, "artifact", "Fresh Title", mock.Anything).
		Return("", model.AuthErr(errors.New("401 unauthorized")))
	f.channelRepo.On("SetState", mock.Anything, "ch-1", model.ChannelPausedAuth).Return(nil)
	f.alertBus.On("SendPauseAlert", mock.Anything, mock.Anything).Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.Error(t, err)
	f.channelRepo.AssertCalled(t, "SetState", mock.Anything, "ch-1", model.ChannelPausedAuth)
	// Auth errors are not retried inside the cycle.
	f.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestScheduler_TransientFailureCountsAgainstChannel(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.expectQuotaHeadroom()
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Return(&model.GeneratedContent{Title: "Fresh Title", Body: "script"}, nil)
	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{}, nil)
	f.renderer.On("Render", mock.Anything, "script").
		Return("", model.Transient(errors.New("render farm busy")))
	f.channelRepo.On("IncrementFailures", mock.Anything, "ch-1").Return(nil)

	err := f.scheduler.RunCycle(context.Background(), "ch-1")

	assert.Error(t, err)
	f.renderer.AssertNumberOfCalls(t, "Render", 3)
	f.channelRepo.AssertCalled(t, "IncrementFailures", mock.Anything, "ch-1")
	f.channelRepo.AssertNotCalled(t, "SetState", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_NoOverlappingCyclesPerChannel(t *testing.T) {
	f := newSchedulerFixture()
	f.channelRepo.On("GetByID", mock.Anything, "ch-1").Return(f.activeChannel(), nil)
	f.expectQuotaHeadroom()
	f.credentialRepo.On("Get", mock.Anything, "ch-1").Return(f.freshCredential(), nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.generator.On("Generate", mock.Anything, "science facts", mock.Anything).
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&model.GeneratedContent{Title: "Fresh Title", Body: "script"}, nil)
	f.historyRepo.On("Recent", mock.Anything, "ch-1", 50).Return([]*model.PublishedTitle{}, nil)
	f.renderer.On("Render", mock.Anything, "script").Return("artifact", nil)
	f.publisher.On("Publish", mock.Anything, "artifact", "Fresh Title", mock.Anything).Return("vid-789", nil)
	f.historyRepo.On("Append", mock.Anything, mock.Anything, 50).Return(nil)
	f.channelRepo.On("MarkRunSuccess", mock.Anything, "ch-1").Return(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = f.scheduler.RunCycle(context.Background(), "ch-1")
	}()
	<-entered

	// A second cycle while the first is mid-flight must be a no-op.
	err := f.scheduler.RunCycle(context.Background(), "ch-1")
	assert.NoError(t, err)

	close(release)
	wg.Wait()

	f.generator.AssertNumberOfCalls(t, "Generate", 1)
	f.channelRepo.AssertNumberOfCalls(t, "GetByID", 1)
}

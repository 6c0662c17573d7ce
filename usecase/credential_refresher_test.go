package usecase_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"video-autopilot/domain/model"
	"video-autopilot/usecase"
)

func newRefresher(credentialRepo *MockCredentialRepo, channelRepo *MockChannelRepo, publisher *MockPublisher, alertBus *MockAlertBus) usecase.ICredentialRefresher {
	return usecase.NewCredentialRefresher(
		credentialRepo, channelRepo, publisher, alertBus, nil,
		2*time.Hour, 5, time.Millisecond,
	)
}

func TestRefresher_SkipsCredentialOutsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	credentialRepo := new(MockCredentialRepo)
	// Expires in three hours; the two-hour window does not cover it.
	credentialRepo.On("ListAll", mock.Anything).Return([]*model.Credential{
		{ChannelID: "ch-1", RefreshToken: "refresh", Expiry: now.Add(3 * time.Hour)},
	}, nil)

	publisher := new(MockPublisher)
	refresher := newRefresher(credentialRepo, new(MockChannelRepo), publisher, new(MockAlertBus))

	err := refresher.Sweep(context.Background(), now)

	assert.NoError(t, err)
	publisher.AssertNotCalled(t, "RefreshCredential", mock.Anything, mock.Anything)
}

func TestRefresher_RenewsCredentialInsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	stale := &model.Credential{ChannelID: "ch-1", Provider: "youtube", RefreshToken: "refresh", Expiry: now.Add(90 * time.Minute)}
	renewed := &model.Credential{ChannelID: "ch-1", Provider: "youtube", AccessToken: "fresh", RefreshToken: "refresh", Expiry: now.Add(24 * time.Hour)}

	credentialRepo := new(MockCredentialRepo)
	credentialRepo.On("ListAll", mock.Anything).Return([]*model.Credential{stale}, nil)
	credentialRepo.On("Replace", mock.Anything, renewed).Return(nil)

	publisher := new(MockPublisher)
	publisher.On("RefreshCredential", mock.Anything, stale).Return(renewed, nil)

	refresher := newRefresher(credentialRepo, new(MockChannelRepo), publisher, new(MockAlertBus))

	err := refresher.Sweep(context.Background(), now)

	assert.NoError(t, err)
	credentialRepo.AssertCalled(t, "Replace", mock.Anything, renewed)
	assert.True(t, renewed.Expiry.After(now))
}

func TestRefresher_TransientFailuresRetriedThenPausesAuth(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	stale := &model.Credential{ChannelID: "ch-1", RefreshToken: "refresh", Expiry: now.Add(time.Hour)}

	credentialRepo := new(MockCredentialRepo)
	credentialRepo.On("ListAll", mock.Anything).Return([]*model.Credential{stale}, nil)

	publisher := new(MockPublisher)
	publisher.On("RefreshCredential", mock.Anything, stale).
		Return(nil, model.Transient(errors.New("token endpoint 503"))).Times(5)

	channelRepo := new(MockChannelRepo)
	channelRepo.On("SetState", mock.Anything, "ch-1", model.ChannelPausedAuth).Return(nil)

	alertBus := new(MockAlertBus)
	alertBus.On("SendPauseAlert", mock.Anything, mock.Anything).Return(nil)

	refresher := newRefresher(credentialRepo, channelRepo, publisher, alertBus)

	err := refresher.Sweep(context.Background(), now)

	assert.NoError(t, err) // per-credential failures are contained
	publisher.AssertNumberOfCalls(t, "RefreshCredential", 5)
	channelRepo.AssertCalled(t, "SetState", mock.Anything, "ch-1", model.ChannelPausedAuth)
	alertBus.AssertCalled(t, "SendPauseAlert", mock.Anything, mock.Anything)
	// The stale credential must survive: nothing was written to the store.
	credentialRepo.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestRefresher_AuthFailureShortCircuits(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	stale := &model.Credential{ChannelID: "ch-1", RefreshToken: "revoked", Expiry: now.Add(time.Hour)}

	credentialRepo := new(MockCredentialRepo)
	credentialRepo.On("ListAll", mock.Anything).Return([]*model.Credential{stale}, nil)

	publisher := new(MockPublisher)
	publisher.On("RefreshCredential", mock.Anything, stale).
		Return(nil, model.AuthErr(errors.New("invalid_grant")))

	channelRepo := new(MockChannelRepo)
	channelRepo.On("SetState", mock.Anything, "ch-1", model.ChannelPausedAuth).Return(nil)

	alertBus := new(MockAlertBus)
	alertBus.On("SendPauseAlert", mock.Anything, mock.Anything).Return(nil)

	refresher := newRefresher(credentialRepo, channelRepo, publisher, alertBus)

	err := refresher.Sweep(context.Background(), now)

	assert.NoError(t, err)
	// A revoked refresh token cannot be fixed by retrying.
	publisher.AssertNumberOfCalls(t, "RefreshCredential", 1)
	channelRepo.AssertCalled(t, "SetState", mock.Anything, "ch-1", model.ChannelPausedAuth)
}

func TestRefresher_EnsureFreshReturnsValidCredentialUntouched(t *testing.T) {
	cred := &model.Credential{ChannelID: "ch-1", RefreshToken: "refresh", Expiry: time.Now().UTC().Add(12 * time.Hour)}

	credentialRepo := new(MockCredentialRepo)
	credentialRepo.On("Get", mock.Anything, "ch-1").Return(cred, nil)

	publisher := new(MockPublisher)
	refresher := newRefresher(credentialRepo, new(MockChannelRepo), publisher, new(MockAlertBus))

	got, err := refresher.EnsureFresh(context.Background(), "ch-1")

	assert.NoError(t, err)
	assert.Equal(t, cred, got)
	publisher.AssertNotCalled(t, "RefreshCredential", mock.Anything, mock.Anything)
}

func TestRefresher_EnsureFreshMissingCredentialIsAuthFailure(t *testing.T) {
	credentialRepo := new(MockCredentialRepo)
	credentialRepo.On("Get", mock.Anything, "ch-1").Return(nil, sql.ErrNoRows)

	publisher := new(MockPublisher)
	refresher := newRefresher(credentialRepo, new(MockChannelRepo), publisher, new(MockAlertBus))

	got, err := refresher.EnsureFresh(context.Background(), "ch-1")

	assert.Nil(t, got)
	assert.Error(t, err)
	// Never-authorized channels need the consent flow; retrying cannot help.
	assert.Equal(t, model.ErrKindAuth, model.KindOf(err))
	publisher.AssertNotCalled(t, "RefreshCredential", mock.Anything, mock.Anything)
}

func TestRefresher_EnsureFreshRefreshesExpiringCredential(t *testing.T) {
	now := time.Now().UTC()
	stale := &model.Credential{ChannelID: "ch-1", RefreshToken: "refresh", Expiry: now.Add(30 * time.Minute)}
	renewed := &model.Credential{ChannelID: "ch-1", AccessToken: "fresh", RefreshToken: "refresh", Expiry: now.Add(24 * time.Hour)}

	credentialRepo := new(MockCredentialRepo)
	credentialRepo.On("Get", mock.Anything, "ch-1").Return(stale, nil).Once()
	credentialRepo.On("Replace", mock.Anything, renewed).Return(nil)
	credentialRepo.On("Get", mock.Anything, "ch-1").Return(renewed, nil)

	publisher := new(MockPublisher)
	publisher.On("RefreshCredential", mock.Anything, stale).Return(renewed, nil)

	refresher := newRefresher(credentialRepo, new(MockChannelRepo), publisher, new(MockAlertBus))

	got, err := refresher.EnsureFresh(context.Background(), "ch-1")

	assert.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
}

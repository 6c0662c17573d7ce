package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"video-autopilot/domain/model"
	"video-autopilot/infrastructure/servicebus"
)

// Mock implementations

type MockChannelRepo struct {
	mock.Mock
}

func (m *MockChannelRepo) Create(ctx context.Context, ch *model.Channel) error {
	args := m.Called(ctx, ch)
	return args.Error(0)
}

func (m *MockChannelRepo) GetByID(ctx context.Context, id string) (*model.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *MockChannelRepo) List(ctx context.Context) ([]*model.Channel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Channel), args.Error(1)
}

func (m *MockChannelRepo) ListByState(ctx context.Context, state model.ChannelState) ([]*model.Channel, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Channel), args.Error(1)
}

func (m *MockChannelRepo) SetState(ctx context.Context, id string, state model.ChannelState) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockChannelRepo) SetInterval(ctx context.Context, id string, minutes int) error {
	args := m.Called(ctx, id, minutes)
	return args.Error(0)
}

func (m *MockChannelRepo) MarkRunSuccess(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChannelRepo) IncrementFailures(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChannelRepo) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCredentialRepo struct {
	mock.Mock
}

func (m *MockCredentialRepo) Get(ctx context.Context, channelID string) (*model.Credential, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialRepo) GetBackup(ctx context.Context, channelID string) (*model.Credential, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialRepo) Replace(ctx context.Context, cred *model.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepo) ListAll(ctx context.Context) ([]*model.Credential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Credential), args.Error(1)
}

func (m *MockCredentialRepo) Delete(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

type MockQuotaRepo struct {
	mock.Mock
}

func (m *MockQuotaRepo) GetOrCreate(ctx context.Context, provider, day string, ceiling int64) (*model.QuotaRecord, error) {
	args := m.Called(ctx, provider, day, ceiling)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuotaRecord), args.Error(1)
}

func (m *MockQuotaRepo) AddConsumed(ctx context.Context, provider string, amount int64) error {
	args := m.Called(ctx, provider, amount)
	return args.Error(0)
}

func (m *MockQuotaRepo) SetExhausted(ctx context.Context, provider string, exhausted bool) error {
	args := m.Called(ctx, provider, exhausted)
	return args.Error(0)
}

func (m *MockQuotaRepo) Reset(ctx context.Context, provider, day string) error {
	args := m.Called(ctx, provider, day)
	return args.Error(0)
}

func (m *MockQuotaRepo) List(ctx context.Context) ([]*model.QuotaRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QuotaRecord), args.Error(1)
}

type MockDuplicateHistory struct {
	mock.Mock
}

func (m *MockDuplicateHistory) Append(ctx context.Context, entry *model.PublishedTitle, keep int) error {
	args := m.Called(ctx, entry, keep)
	return args.Error(0)
}

func (m *MockDuplicateHistory) Recent(ctx context.Context, channelID string, limit int) ([]*model.PublishedTitle, error) {
	args := m.Called(ctx, channelID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublishedTitle), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, theme string, avoid []string) (*model.GeneratedContent, error) {
	args := m.Called(ctx, theme, avoid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GeneratedContent), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, body string) (string, error) {
	args := m.Called(ctx, body)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, artifact, title string, cred *model.Credential) (string, error) {
	args := m.Called(ctx, artifact, title, cred)
	return args.String(0), args.Error(1)
}

func (m *MockPublisher) RefreshCredential(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	args := m.Called(ctx, cred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

type MockAlertBus struct {
	mock.Mock
}

func (m *MockAlertBus) SendPauseAlert(ctx context.Context, alert *servicebus.PauseAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

package repository

import (
	"context"

	"video-autopilot/domain/model"
)

// IChannel defines persistence for the channel table.
type IChannel interface {
	Create(ctx context.Context, ch *model.Channel) error
	GetByID(ctx context.Context, id string) (*model.Channel, error)
	List(ctx context.Context) ([]*model.Channel, error)
	ListByState(ctx context.Context, state model.ChannelState) ([]*model.Channel, error)
	SetState(ctx context.Context, id string, state model.ChannelState) error
	SetInterval(ctx context.Context, id string, minutes int) error
	MarkRunSuccess(ctx context.Context, id string) error
	IncrementFailures(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

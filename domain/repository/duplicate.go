package repository

import (
	"context"

	"video-autopilot/domain/model"
)

// IDuplicateHistory defines persistence for the per-channel recent-title
// window used by the duplicate guard.
type IDuplicateHistory interface {
	// Append stores a published title and evicts entries beyond keep.
	Append(ctx context.Context, entry *model.PublishedTitle, keep int) error
	Recent(ctx context.Context, channelID string, limit int) ([]*model.PublishedTitle, error)
}

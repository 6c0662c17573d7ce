package repository

import (
	"context"

	"video-autopilot/domain/model"
)

// ICycleAudit is the optional audit trail of publish cycle outcomes.
type ICycleAudit interface {
	Record(ctx context.Context, audit *model.CycleAudit) error
	RecentByChannel(ctx context.Context, channelID string, limit int) ([]*model.CycleAudit, error)
}

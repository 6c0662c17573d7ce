package repository

import (
	"context"

	"video-autopilot/domain/model"
)

// ICredential defines the credential store. Implementations must enforce the
// refresh-token invariant on every write path: a write that would set the
// refresh token to empty is rejected, and Replace updates the primary and
// backup slots in one transaction.
type ICredential interface {
	Get(ctx context.Context, channelID string) (*model.Credential, error)
	GetBackup(ctx context.Context, channelID string) (*model.Credential, error)
	// Replace atomically writes cred into both the primary and backup slots.
	Replace(ctx context.Context, cred *model.Credential) error
	ListAll(ctx context.Context) ([]*model.Credential, error)
	Delete(ctx context.Context, channelID string) error
}

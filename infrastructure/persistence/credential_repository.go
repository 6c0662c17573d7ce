package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"video-autopilot/domain/model"
)

// ErrEmptyRefreshToken is returned by any write that would store an empty
// refresh token. The refresh token is never discarded except by explicit
// credential deletion.
var ErrEmptyRefreshToken = errors.New("refusing to store credential with empty refresh token")

// CredentialRepository implements the credential store on PostgreSQL. Every
// channel holds two rows: a primary slot and a backup slot that is the
// fallback source of truth after a corrupted or partial write.
type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository { return &CredentialRepository{db: db} }

func (r *CredentialRepository) Get(ctx context.Context, channelID string) (*model.Credential, error) {
	return r.getSlot(ctx, channelID, model.SlotPrimary)
}

func (r *CredentialRepository) GetBackup(ctx context.Context, channelID string) (*model.Credential, error) {
	return r.getSlot(ctx, channelID, model.SlotBackup)
}

func (r *CredentialRepository) getSlot(ctx context.Context, channelID string, slot model.CredentialSlot) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT channel_id, provider, access_token, refresh_token, expiry, updated_at FROM credentials WHERE channel_id=$1 AND slot=$2`, channelID, slot)
	cred := &model.Credential{}
	if err := row.Scan(&cred.ChannelID, &cred.Provider, &cred.AccessToken, &cred.RefreshToken, &cred.Expiry, &cred.UpdatedAt); err != nil {
		return nil, err
	}
	return cred, nil
}

// Replace writes cred into the primary and backup slots in one transaction.
// A partial write (new access token, stale refresh token) would silently
// recreate the failure mode the refresher exists to prevent, so both slots
// commit together or not at all.
func (r *CredentialRepository) Replace(ctx context.Context, cred *model.Credential) error {
	if cred.RefreshToken == "" {
		return ErrEmptyRefreshToken
	}
	cred.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO credentials (channel_id, slot, provider, access_token, refresh_token, expiry, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7)
		  ON CONFLICT (channel_id, slot) DO UPDATE SET
			provider=EXCLUDED.provider,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expiry=EXCLUDED.expiry,
			updated_at=EXCLUDED.updated_at`
	for _, slot := range []model.CredentialSlot{model.SlotPrimary, model.SlotBackup} {
		if _, err = tx.ExecContext(ctx, q, cred.ChannelID, slot, cred.Provider, cred.AccessToken, cred.RefreshToken, cred.Expiry, cred.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CredentialRepository) ListAll(ctx context.Context) ([]*model.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT channel_id, provider, access_token, refresh_token, expiry, updated_at FROM credentials WHERE slot=$1`, model.SlotPrimary)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.Credential
	for rows.Next() {
		cred := &model.Credential{}
		if err := rows.Scan(&cred.ChannelID, &cred.Provider, &cred.AccessToken, &cred.RefreshToken, &cred.Expiry, &cred.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, cred)
	}
	return list, rows.Err()
}

// Delete removes both slots. Only explicit user action reaches this path.
func (r *CredentialRepository) Delete(ctx context.Context, channelID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE channel_id=$1`, channelID)
	return err
}

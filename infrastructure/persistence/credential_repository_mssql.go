package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"video-autopilot/domain/model"
)

// CredentialRepositoryMSSQL implements the credential store on Azure SQL /
// SQL Server. Semantics match the PostgreSQL repository: two slots per
// channel, both written in one transaction, empty refresh tokens rejected.
type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

// EnsureCredentialSchemaMSSQL creates the credentials table for SQL Server if it does not exist.
func EnsureCredentialSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[credentials] (
        channel_id NVARCHAR(64) NOT NULL,
        slot NVARCHAR(16) NOT NULL,
        provider NVARCHAR(64) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NOT NULL,
        expiry DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL,
        CONSTRAINT pk_credentials PRIMARY KEY (channel_id, slot)
    );
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create credentials (mssql): %w", err)
	}
	return nil
}

func (r *CredentialRepositoryMSSQL) Get(ctx context.Context, channelID string) (*model.Credential, error) {
	return r.getSlot(ctx, channelID, model.SlotPrimary)
}

func (r *CredentialRepositoryMSSQL) GetBackup(ctx context.Context, channelID string) (*model.Credential, error) {
	return r.getSlot(ctx, channelID, model.SlotBackup)
}

func (r *CredentialRepositoryMSSQL) getSlot(ctx context.Context, channelID string, slot model.CredentialSlot) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT channel_id, provider, access_token, refresh_token, expiry, updated_at FROM credentials WHERE channel_id=@p1 AND slot=@p2`,
		channelID, string(slot))
	cred := &model.Credential{}
	if err := row.Scan(&cred.ChannelID, &cred.Provider, &cred.AccessToken, &cred.RefreshToken, &cred.Expiry, &cred.UpdatedAt); err != nil {
		return nil, err
	}
	return cred, nil
}

// Replace writes cred into the primary and backup slots in one transaction.
func (r *CredentialRepositoryMSSQL) Replace(ctx context.Context, cred *model.Credential) error {
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

	q := `MERGE credentials AS target
USING (SELECT @p1 AS channel_id, @p2 AS slot) AS source
ON target.channel_id = source.channel_id AND target.slot = source.slot
WHEN MATCHED THEN UPDATE SET
    provider=@p3, access_token=@p4, refresh_token=@p5, expiry=@p6, updated_at=@p7
WHEN NOT MATCHED THEN INSERT (channel_id, slot, provider, access_token, refresh_token, expiry, updated_at)
    VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7);`
	for _, slot := range []model.CredentialSlot{model.SlotPrimary, model.SlotBackup} {
		if _, err = tx.ExecContext(ctx, q, cred.ChannelID, string(slot), cred.Provider, cred.AccessToken, cred.RefreshToken, cred.Expiry, cred.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CredentialRepositoryMSSQL) ListAll(ctx context.Context) ([]*model.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT channel_id, provider, access_token, refresh_token, expiry, updated_at FROM credentials WHERE slot=@p1`,
		string(model.SlotPrimary))
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

func (r *CredentialRepositoryMSSQL) Delete(ctx context.Context, channelID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE channel_id=@p1`, channelID)
	return err
}

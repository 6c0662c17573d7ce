package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"video-autopilot/domain/model"
)

// ChannelRepositoryMSSQL implements channel persistence for Azure SQL / SQL
// Server deployments.
type ChannelRepositoryMSSQL struct{ db *sql.DB }

func NewChannelRepositoryMSSQL(db *sql.DB) *ChannelRepositoryMSSQL {
	return &ChannelRepositoryMSSQL{db: db}
}

// EnsureChannelSchemaMSSQL creates the channels table for SQL Server if it does not exist.
func EnsureChannelSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.channels') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[channels] (
        id NVARCHAR(64) PRIMARY KEY,
        name NVARCHAR(255) NOT NULL,
        theme NVARCHAR(255) NOT NULL,
        providers NVARCHAR(MAX) NOT NULL DEFAULT '',
        interval_minutes INT NOT NULL,
        state NVARCHAR(32) NOT NULL DEFAULT 'active',
        last_run_at DATETIME2 NULL,
        consecutive_failures INT NOT NULL DEFAULT 0,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create channels (mssql): %w", err)
	}
	return nil
}

func (r *ChannelRepositoryMSSQL) Create(ctx context.Context, ch *model.Channel) error {
	now := time.Now().UTC()
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = now
	}
	ch.UpdatedAt = now
	q := `INSERT INTO channels (id, name, theme, providers, interval_minutes, state, consecutive_failures, created_at, updated_at)
		  VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9)`
	_, err := r.db.ExecContext(ctx, q, ch.ID, ch.Name, ch.Theme, ch.ProvidersCSV(), ch.IntervalMinutes, string(ch.State), ch.ConsecutiveFailures, ch.CreatedAt, ch.UpdatedAt)
	return err
}

func (r *ChannelRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id=@p1`, id)
	return scanChannel(row)
}

func (r *ChannelRepositoryMSSQL) List(ctx context.Context) ([]*model.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepositoryMSSQL) ListByState(ctx context.Context, state model.ChannelState) ([]*model.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE state=@p1 ORDER BY created_at ASC`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepositoryMSSQL) SetState(ctx context.Context, id string, state model.ChannelState) error {
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET state=@p1, updated_at=@p2 WHERE id=@p3`, string(state), time.Now().UTC(), id)
	return err
}

func (r *ChannelRepositoryMSSQL) SetInterval(ctx context.Context, id string, minutes int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET interval_minutes=@p1, updated_at=@p2 WHERE id=@p3`, minutes, time.Now().UTC(), id)
	return err
}

func (r *ChannelRepositoryMSSQL) MarkRunSuccess(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET last_run_at=@p1, consecutive_failures=0, updated_at=@p1 WHERE id=@p2`, now, id)
	return err
}

func (r *ChannelRepositoryMSSQL) IncrementFailures(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET consecutive_failures=consecutive_failures+1, last_run_at=@p1, updated_at=@p1 WHERE id=@p2`, now, id)
	return err
}

func (r *ChannelRepositoryMSSQL) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id=@p1`, id)
	return err
}

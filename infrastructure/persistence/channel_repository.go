package persistence

import (
	"context"
	"database/sql"
	"time"

	"video-autopilot/domain/model"
)

// ChannelRepository implements channel persistence on PostgreSQL.
type ChannelRepository struct{ db *sql.DB }

func NewChannelRepository(db *sql.DB) *ChannelRepository { return &ChannelRepository{db: db} }

const channelColumns = `id, name, theme, providers, interval_minutes, state, last_run_at, consecutive_failures, created_at, updated_at`

func (r *ChannelRepository) Create(ctx context.Context, ch *model.Channel) error {
	now := time.Now().UTC()
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = now
	}
	ch.UpdatedAt = now
	q := `INSERT INTO channels (id, name, theme, providers, interval_minutes, state, consecutive_failures, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.ExecContext(ctx, q, ch.ID, ch.Name, ch.Theme, ch.ProvidersCSV(), ch.IntervalMinutes, ch.State, ch.ConsecutiveFailures, ch.CreatedAt, ch.UpdatedAt)
	return err
}

func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*model.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id=$1`, id)
	return scanChannel(row)
}

func (r *ChannelRepository) List(ctx context.Context) ([]*model.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepository) ListByState(ctx context.Context, state model.ChannelState) ([]*model.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE state=$1 ORDER BY created_at ASC`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepository) SetState(ctx context.Context, id string, state model.ChannelState) error {
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET state=$1, updated_at=$2 WHERE id=$3`, state, time.Now().UTC(), id)
	return err
}

func (r *ChannelRepository) SetInterval(ctx context.Context, id string, minutes int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET interval_minutes=$1, updated_at=$2 WHERE id=$3`, minutes, time.Now().UTC(), id)
	return err
}

// MarkRunSuccess records a completed cycle: last-run timestamp updated and
// the consecutive-failure counter cleared in one statement.
func (r *ChannelRepository) MarkRunSuccess(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET last_run_at=$1, consecutive_failures=0, updated_at=$1 WHERE id=$2`, now, id)
	return err
}

func (r *ChannelRepository) IncrementFailures(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `UPDATE channels SET consecutive_failures=consecutive_failures+1, last_run_at=$1, updated_at=$1 WHERE id=$2`, now, id)
	return err
}

func (r *ChannelRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, id)
	return err
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanChannel(row rowScanner) (*model.Channel, error) {
	ch := &model.Channel{}
	var providers string
	var lastRun sql.NullTime
	if err := row.Scan(&ch.ID, &ch.Name, &ch.Theme, &providers, &ch.IntervalMinutes, &ch.State, &lastRun, &ch.ConsecutiveFailures, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
		return nil, err
	}
	ch.Providers = model.ProvidersFromCSV(providers)
	if lastRun.Valid {
		ch.LastRunAt = &lastRun.Time
	}
	return ch, nil
}

func scanChannels(rows *sql.Rows) ([]*model.Channel, error) {
	var list []*model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ch)
	}
	return list, rows.Err()
}

package persistence

import (
	"context"
	"database/sql"
	"time"

	"video-autopilot/domain/model"
)

// DuplicateHistoryRepository persists the per-channel recent-title window on
// PostgreSQL.
type DuplicateHistoryRepository struct{ db *sql.DB }

func NewDuplicateHistoryRepository(db *sql.DB) *DuplicateHistoryRepository {
	return &DuplicateHistoryRepository{db: db}
}

// Append stores a published title and evicts entries past the keep window in
// one transaction.
func (r *DuplicateHistoryRepository) Append(ctx context.Context, entry *model.PublishedTitle, keep int) error {
	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO published_titles (channel_id, title, normalized, published_at) VALUES ($1,$2,$3,$4)`,
		entry.ChannelID, entry.Title, entry.Normalized, entry.PublishedAt); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM published_titles WHERE channel_id=$1 AND id NOT IN (
			SELECT id FROM published_titles WHERE channel_id=$1 ORDER BY published_at DESC, id DESC LIMIT $2
		)`, entry.ChannelID, keep); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *DuplicateHistoryRepository) Recent(ctx context.Context, channelID string, limit int) ([]*model.PublishedTitle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, channel_id, title, normalized, published_at FROM published_titles WHERE channel_id=$1 ORDER BY published_at DESC, id DESC LIMIT $2`,
		channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PublishedTitle
	for rows.Next() {
		t := &model.PublishedTitle{}
		if err := rows.Scan(&t.ID, &t.ChannelID, &t.Title, &t.Normalized, &t.PublishedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

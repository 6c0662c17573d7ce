package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureFleetSchema creates the fleet state tables if they are missing.
// Safe to call at startup; every statement is idempotent.
func EnsureFleetSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ddls := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			theme TEXT NOT NULL,
			providers TEXT NOT NULL DEFAULT '',
			interval_minutes INT NOT NULL,
			state TEXT NOT NULL DEFAULT 'active',
			last_run_at TIMESTAMPTZ NULL,
			consecutive_failures INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			channel_id TEXT NOT NULL,
			slot TEXT NOT NULL,
			provider TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expiry TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (channel_id, slot)
		)`,
		`CREATE TABLE IF NOT EXISTS quota_records (
			provider TEXT PRIMARY KEY,
			day TEXT NOT NULL,
			ceiling BIGINT NOT NULL,
			consumed BIGINT NOT NULL DEFAULT 0,
			exhausted BOOLEAN NOT NULL DEFAULT FALSE,
			last_reset TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS published_titles (
			id BIGSERIAL PRIMARY KEY,
			channel_id TEXT NOT NULL,
			title TEXT NOT NULL,
			normalized TEXT NOT NULL,
			published_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_published_titles_channel ON published_titles (channel_id, published_at DESC)`,
	}

	for _, ddl := range ddls {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensuring fleet schema failed: %w", err)
		}
	}

	// Column upgrades for deployments created before the column existed.
	upgrades := []struct {
		table  string
		column string
		ddl    string
	}{
		{"channels", "providers", "ALTER TABLE channels ADD COLUMN providers TEXT NOT NULL DEFAULT ''"},
	}
	for _, u := range upgrades {
		exists, err := columnExists(ctx, db, u.table, u.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, u.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", u.table, u.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

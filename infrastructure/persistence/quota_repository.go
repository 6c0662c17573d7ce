package persistence

import (
	"context"
	"database/sql"
	"time"

	"video-autopilot/domain/model"
)

// QuotaRepository implements quota record persistence on PostgreSQL. One row
// per provider; the day column advances at UTC rollover.
type QuotaRepository struct{ db *sql.DB }

func NewQuotaRepository(db *sql.DB) *QuotaRepository { return &QuotaRepository{db: db} }

func (r *QuotaRepository) GetOrCreate(ctx context.Context, provider, day string, ceiling int64) (*model.QuotaRecord, error) {
	now := time.Now().UTC()
	// Lazy creation on first use; existing rows are left untouched.
	q := `INSERT INTO quota_records (provider, day, ceiling, consumed, exhausted, last_reset)
		  VALUES ($1,$2,$3,0,FALSE,$4)
		  ON CONFLICT (provider) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, q, provider, day, ceiling, now); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT provider, day, ceiling, consumed, exhausted, last_reset FROM quota_records WHERE provider=$1`, provider)
	rec := &model.QuotaRecord{}
	if err := row.Scan(&rec.Provider, &rec.Day, &rec.Ceiling, &rec.Consumed, &rec.Exhausted, &rec.LastReset); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *QuotaRepository) AddConsumed(ctx context.Context, provider string, amount int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE quota_records SET consumed=consumed+$1 WHERE provider=$2`, amount, provider)
	return err
}

func (r *QuotaRepository) SetExhausted(ctx context.Context, provider string, exhausted bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE quota_records SET exhausted=$1 WHERE provider=$2`, exhausted, provider)
	return err
}

// Reset moves the record to day and clears consumption. The WHERE guard makes
// a second evaluation within the same day a no-op.
func (r *QuotaRepository) Reset(ctx context.Context, provider, day string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE quota_records SET day=$1, consumed=0, exhausted=FALSE, last_reset=$2 WHERE provider=$3 AND day <> $1`,
		day, time.Now().UTC(), provider)
	return err
}

func (r *QuotaRepository) List(ctx context.Context) ([]*model.QuotaRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT provider, day, ceiling, consumed, exhausted, last_reset FROM quota_records ORDER BY provider ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.QuotaRecord
	for rows.Next() {
		rec := &model.QuotaRecord{}
		if err := rows.Scan(&rec.Provider, &rec.Day, &rec.Ceiling, &rec.Consumed, &rec.Exhausted, &rec.LastReset); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

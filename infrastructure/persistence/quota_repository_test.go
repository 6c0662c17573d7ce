package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestQuotaRepository_GetOrCreate_InsertsThenSelects(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewQuotaRepository(db)
	lastReset := time.Date(2026, 8, 23, 0, 0, 5, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO quota_records (provider, day, ceiling, consumed, exhausted, last_reset)
		  VALUES ($1,$2,$3,0,FALSE,$4)
		  ON CONFLICT (provider) DO NOTHING`)).
		WithArgs("youtube", "2026-08-23", int64(10000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT provider, day, ceiling, consumed, exhausted, last_reset FROM quota_records WHERE provider=$1`)).
		WithArgs("youtube").
		WillReturnRows(sqlmock.NewRows([]string{"provider", "day", "ceiling", "consumed", "exhausted", "last_reset"}).
			AddRow("youtube", "2026-08-23", int64(10000), int64(0), false, lastReset))

	rec, err := repository.GetOrCreate(context.Background(), "youtube", "2026-08-23", 10000)
	require.NoError(t, err)
	require.Equal(t, "2026-08-23", rec.Day)
	require.Equal(t, int64(10000), rec.Ceiling)
	require.False(t, rec.Exhausted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaRepository_Reset_AdvancesDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewQuotaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota_records SET day=$1, consumed=0, exhausted=FALSE, last_reset=$2 WHERE provider=$3 AND day <> $1`)).
		WithArgs("2026-08-24", sqlmock.AnyArg(), "youtube").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repository.Reset(context.Background(), "youtube", "2026-08-24")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A second reset for the same day matches zero rows because of the day guard,
// so repeated monitor sweeps cannot double-clear consumption.
func TestQuotaRepository_Reset_SecondCallSameDayIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewQuotaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota_records SET day=$1, consumed=0, exhausted=FALSE, last_reset=$2 WHERE provider=$3 AND day <> $1`)).
		WithArgs("2026-08-24", sqlmock.AnyArg(), "youtube").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repository.Reset(context.Background(), "youtube", "2026-08-24")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaRepository_AddConsumed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewQuotaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota_records SET consumed=consumed+$1 WHERE provider=$2`)).
		WithArgs(int64(1600), "youtube").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repository.AddConsumed(context.Background(), "youtube", 1600)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotaRepository_SetExhausted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewQuotaRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE quota_records SET exhausted=$1 WHERE provider=$2`)).
		WithArgs(true, "youtube").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repository.SetExhausted(context.Background(), "youtube", true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

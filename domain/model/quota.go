package model

import "time"

// QuotaRecord tracks the consumed-vs-available call budget for one external
// provider on the current UTC day. One row per provider; the Day column
// advances at rollover.
type QuotaRecord struct {
	Provider  string    `json:"provider"`
	Day       string    `json:"day"` // UTC day, "2006-01-02"
	Ceiling   int64     `json:"ceiling"`
	Consumed  int64     `json:"consumed"`
	Exhausted bool      `json:"exhausted"`
	LastReset time.Time `json:"last_reset"`
}

// UTCDay formats t as the ledger's day key.
func UTCDay(t time.Time) string { return t.UTC().Format("2006-01-02") }

// RolledOver reports whether the record belongs to an earlier UTC day than now.
func (q *QuotaRecord) RolledOver(now time.Time) bool { return q.Day != UTCDay(now) }

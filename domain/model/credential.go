package model

import "time"

// CredentialSlot identifies which copy of a channel's credential a row holds.
// The backup slot is the fallback source of truth when the primary is
// corrupted or a refresh fails catastrophically.
type CredentialSlot string

const (
	SlotPrimary CredentialSlot = "primary"
	SlotBackup  CredentialSlot = "backup"
)

// Credential stores one OAuth credential for a channel on a publish provider.
// The refresh token is the single most expensive-to-reacquire asset in the
// system; the store's write path must never accept an empty one.
type Credential struct {
	ChannelID    string    `json:"channel_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExpiresWithin reports whether the credential expires inside the proactive
// refresh window.
func (c *Credential) ExpiresWithin(now time.Time, window time.Duration) bool {
	return c.Expiry.Sub(now) < window
}

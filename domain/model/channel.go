package model

import (
	"strings"
	"time"
)

// ChannelState is the lifecycle state of a channel.
type ChannelState string

const (
	ChannelActive       ChannelState = "active"
	ChannelPausedQuota  ChannelState = "paused_quota"
	ChannelPausedAuth   ChannelState = "paused_auth"
	ChannelPausedErrors ChannelState = "paused_errors"
	ChannelDisabled     ChannelState = "disabled"
)

// Channel is one independently scheduled publishing identity.
type Channel struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Theme               string       `json:"theme"`
	Providers           []string     `json:"providers"` // external providers a cycle consumes
	IntervalMinutes     int          `json:"interval_minutes"`
	State               ChannelState `json:"state"`
	LastRunAt           *time.Time   `json:"last_run_at,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Due reports whether the channel's cadence interval has elapsed.
// A channel with no prior run is due immediately.
func (c *Channel) Due(now time.Time) bool {
	if c.LastRunAt == nil {
		return true
	}
	return now.Sub(*c.LastRunAt) >= time.Duration(c.IntervalMinutes)*time.Minute
}

// ProvidersCSV renders the provider list for storage in a single column.
func (c *Channel) ProvidersCSV() string { return strings.Join(c.Providers, ",") }

// ProvidersFromCSV parses the stored provider column back into a list.
func ProvidersFromCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package model

import "time"

// PublishedTitle is one entry in a channel's recent-title history. The raw
// title is retained for display only; all comparisons use the normalized form.
type PublishedTitle struct {
	ID          int64     `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Title       string    `json:"title"`
	Normalized  string    `json:"normalized"`
	PublishedAt time.Time `json:"published_at"`
}

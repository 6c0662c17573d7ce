package model

import "time"

// GeneratedContent is the content collaborator's output for one cycle.
type GeneratedContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CycleAudit records the outcome of one publish cycle for observability.
type CycleAudit struct {
	CycleID    string    `json:"cycle_id" bson:"cycle_id"`
	ChannelID  string    `json:"channel_id" bson:"channel_id"`
	Title      string    `json:"title,omitempty" bson:"title,omitempty"`
	Status     string    `json:"status" bson:"status"` // success | failed
	ErrorKind  string    `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
	ExternalID string    `json:"external_id,omitempty" bson:"external_id,omitempty"`
	StartedAt  time.Time `json:"started_at" bson:"started_at"`
	FinishedAt time.Time `json:"finished_at" bson:"finished_at"`
}

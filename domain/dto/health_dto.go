package dto

import "time"

// ProviderQuotaStatus is the per-provider slice of the fleet health view.
type ProviderQuotaStatus struct {
	Provider  string    `json:"provider"`
	Day       string    `json:"day"`
	Ceiling   int64     `json:"ceiling"`
	Consumed  int64     `json:"consumed"`
	Exhausted bool      `json:"exhausted"`
	LastReset time.Time `json:"lastReset"`
}

// FleetHealth is the global health query answered by the ops API.
type FleetHealth struct {
	GeneratedAt    time.Time             `json:"generatedAt"`
	Channels       []ChannelStatus       `json:"channels"`
	Quotas         []ProviderQuotaStatus `json:"quotas"`
	ActiveCount    int                   `json:"activeCount"`
	PausedQuota    int                   `json:"pausedQuota"`
	PausedAuth     int                   `json:"pausedAuth"`
	PausedErrors   int                   `json:"pausedErrors"`
	DisabledCount  int                   `json:"disabledCount"`
	RecentFailures int                   `json:"recentFailures"`
}

// TokenRequest exchanges the operator secret for a bearer token.
type TokenRequest struct {
	Name   string `json:"name" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

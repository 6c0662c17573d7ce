package dto

import "time"

// Res is the standard response envelope for the ops API.
type Res struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}

// CreateChannelRequest configures a new channel.
type CreateChannelRequest struct {
	Name            string   `json:"name" binding:"required"`
	Theme           string   `json:"theme" binding:"required"`
	Providers       []string `json:"providers"`
	IntervalMinutes int      `json:"intervalMinutes"`
}

// CadenceRequest adjusts a channel's posting interval.
type CadenceRequest struct {
	IntervalMinutes int `json:"intervalMinutes" binding:"required"`
}

// ChannelStatus is the per-channel view exposed by the ops API.
type ChannelStatus struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Theme               string     `json:"theme"`
	State               string     `json:"state"`
	IntervalMinutes     int        `json:"intervalMinutes"`
	LastRunAt           *time.Time `json:"lastRunAt,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	Providers           []string   `json:"providers"`
}

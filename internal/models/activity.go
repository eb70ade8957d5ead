package models

import "time"

// ActivityEvent is one tracked action by a profile (game played, quiz
// finished, prayer completed, ...)
type ActivityEvent struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profileId"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivitySummary is a per-day aggregate for one profile
type ActivitySummary struct {
	ProfileID int64     `json:"profileId"`
	Day       time.Time `json:"day"`
	Kind      string    `json:"kind"`
	Count     int       `json:"count"`
}

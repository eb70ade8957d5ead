package models

import "time"

// Comment sources
const (
	CommentSourceUser      = "user"
	CommentSourceGenerated = "generated"
)

// Comment is a reflection comment on a story or lesson. AI-generated drafts
// carry Source "generated"; kid-typed ones carry "user" and pass moderation
// before being stored.
type Comment struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profileId"`
	Topic     string    `json:"topic"`
	Body      string    `json:"body"`
	Source    string    `json:"source"` // 'user' or 'generated'
	CreatedAt time.Time `json:"createdAt"`
}

// SurveyResponse is one submitted onboarding/feedback survey
type SurveyResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Survey      string    `json:"survey"`
	Answers     string    `json:"answers"` // raw JSON answer blob
	SubmittedAt time.Time `json:"submittedAt"`
}

package models

import "time"

// Profile represents a user slot with its own coins, avatar and
// subscription-relevant state. Each parent account has one parent profile
// plus an ordered list of kid profiles. Exactly one profile is active per
// session at a time.
type Profile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Kind      string    `json:"kind"` // 'parent' or 'kid'
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"` // kid login name, empty for parents
	PIN       string    `json:"-"`                  // kid login PIN
	Position  int       `json:"position"`           // order within the family
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsKid reports whether this is a kid profile
func (p *Profile) IsKid() bool {
	return p.Kind == ProfileKindKid
}

// Profile kinds
const (
	ProfileKindParent = "parent"
	ProfileKindKid    = "kid"
)

// KidSession represents an authenticated kid session
type KidSession struct {
	ID        string    `json:"id"`
	ProfileID int64     `json:"profileId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired checks if the kid session has expired
func (s *KidSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

package models

import "time"

// Subscription statuses
const (
	SubscriptionNone         = "none"
	SubscriptionActive       = "active"
	SubscriptionReverseTrial = "reverse_trial" // premium granted before payment
	SubscriptionExpired      = "expired"
)

// Subscription is the billing state for one parent account. The purchase
// bridge (in-app purchase layer) is the source of truth; this row is the
// server-side mirror kept eventually consistent by the reconciler and the
// renewal-check job.
type Subscription struct {
	UserID        int64      `json:"userId"`
	Status        string     `json:"status"`
	Premium       bool       `json:"premium"`
	TrialEndsAt   *time.Time `json:"trialEndsAt,omitempty"`
	RenewedAt     *time.Time `json:"renewedAt,omitempty"`
	LastCheckedAt time.Time  `json:"lastCheckedAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// IsPremium reports whether the account currently has premium access,
// counting an unexpired reverse trial.
func (s *Subscription) IsPremium() bool {
	if s.Premium {
		return true
	}
	if s.Status == SubscriptionReverseTrial && s.TrialEndsAt != nil {
		return time.Now().Before(*s.TrialEndsAt)
	}
	return false
}

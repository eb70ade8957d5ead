package models

import "time"

// EconomySnapshot is the coin balance, transaction history and owned/unlocked
// item sets for one profile. Created lazily with starter defaults the first
// time a profile is activated.
type EconomySnapshot struct {
	ProfileID        int64         `json:"profileId"`
	Coins            int           `json:"coins"`
	Transactions     []Transaction `json:"transactions"` // newest first, capped
	OwnedItemIDs     []string      `json:"ownedItemIds"`
	UnlockedVoiceIDs []string      `json:"unlockedVoiceIds"`
	RedeemedCodes    []string      `json:"redeemedCodes"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// OwnsItem reports whether the snapshot contains the given shop item
func (s *EconomySnapshot) OwnsItem(itemID string) bool {
	for _, id := range s.OwnedItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// HasVoice reports whether the snapshot has unlocked the given voice
func (s *EconomySnapshot) HasVoice(voiceID string) bool {
	for _, id := range s.UnlockedVoiceIDs {
		if id == voiceID {
			return true
		}
	}
	return false
}

// HasRedeemed reports whether the code has already been used by this profile
func (s *EconomySnapshot) HasRedeemed(code string) bool {
	for _, c := range s.RedeemedCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Transaction is a single coin movement. Positive amounts are grants,
// negative amounts are spends.
type Transaction struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profileId"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

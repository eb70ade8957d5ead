package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			if got := session.IsExpired(); got != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		name string
		deg  float64
		want float64
	}{
		{"already normalized", 45, 45},
		{"zero", 0, 0},
		{"full turn", 360, 0},
		{"over a turn", 405, 45},
		{"negative", -90, 270},
		{"multiple negative turns", -810, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRotation(tt.deg); got != tt.want {
				t.Errorf("NormalizeRotation(%v) = %v, want %v", tt.deg, got, tt.want)
			}
		})
	}
}

func TestClampScale(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		want  float64
	}{
		{"in range", 1.0, 1.0},
		{"too small", 0.1, MinPartScale},
		{"too large", 5.0, MaxPartScale},
		{"lower bound", MinPartScale, MinPartScale},
		{"upper bound", MaxPartScale, MaxPartScale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampScale(tt.scale); got != tt.want {
				t.Errorf("ClampScale(%v) = %v, want %v", tt.scale, got, tt.want)
			}
		})
	}
}

func TestShopItemSlot(t *testing.T) {
	tests := []struct {
		itemType string
		want     string
	}{
		{ItemTypeAvatar, SlotHead},
		{ItemTypeFrame, SlotFrame},
		{ItemTypeHat, SlotHat},
		{ItemTypeBody, SlotBody},
		{ItemTypeLeftArm, SlotLeftArm},
		{ItemTypeRightArm, SlotRightArm},
		{ItemTypeLegs, SlotLegs},
		{ItemTypeAnimation, SlotAnimation},
		{ItemTypeVoice, ""},
	}

	for _, tt := range tests {
		t.Run(tt.itemType, func(t *testing.T) {
			item := ShopItem{Type: tt.itemType}
			if got := item.Slot(); got != tt.want {
				t.Errorf("Slot() for type %q = %q, want %q", tt.itemType, got, tt.want)
			}
		})
	}
}

func TestSubscriptionIsPremium(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"premium flag set", Subscription{Status: SubscriptionActive, Premium: true}, true},
		{"no subscription", Subscription{Status: SubscriptionNone}, false},
		{"expired", Subscription{Status: SubscriptionExpired}, false},
		{"running reverse trial", Subscription{Status: SubscriptionReverseTrial, TrialEndsAt: &future}, true},
		{"lapsed reverse trial", Subscription{Status: SubscriptionReverseTrial, TrialEndsAt: &past}, false},
		{"reverse trial without end date", Subscription{Status: SubscriptionReverseTrial}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.IsPremium(); got != tt.want {
				t.Errorf("IsPremium() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultAvatarConfig(t *testing.T) {
	cfg := DefaultAvatarConfig(7)

	if cfg.ProfileID != 7 {
		t.Errorf("expected profile ID 7, got %d", cfg.ProfileID)
	}
	if cfg.Equipped[SlotHead] != DefaultHead {
		t.Errorf("expected default head %q, got %q", DefaultHead, cfg.Equipped[SlotHead])
	}
	if len(cfg.Poses) != 0 {
		t.Errorf("expected no poses, got %d", len(cfg.Poses))
	}
}

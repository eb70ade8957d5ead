package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"godlykids/internal/database"
	"godlykids/internal/entitlement"
	"godlykids/internal/events"
	"godlykids/internal/models"
	"godlykids/internal/repository"
)

const testWebhookSecret = "test-secret"

func setupSubscriptionService(t *testing.T) (*SubscriptionService, *events.Bus, int64) {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userID, err := db.ExecReturningID(
		"INSERT INTO users (email, password_hash, name, referral_code) VALUES (?, ?, ?, ?)",
		"parent@example.com", "hash", "Parent", "TEST-CODE")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	bus := events.NewBus()
	svc := NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		entitlement.NewMemoryCache(),
		bus,
		testWebhookSecret,
		time.Hour, // reconciler not started in tests
	)
	return svc, bus, userID
}

func TestGetSubscriptionDefaultsToNone(t *testing.T) {
	svc, _, userID := setupSubscriptionService(t)

	sub, err := svc.GetSubscription(userID)
	if err != nil {
		t.Fatalf("Failed to get subscription: %v", err)
	}
	if sub.Status != models.SubscriptionNone {
		t.Errorf("Expected status none, got %q", sub.Status)
	}
	if sub.IsPremium() {
		t.Error("Expected no premium for a fresh account")
	}
}

func TestApplyUpdatePublishesPremiumChange(t *testing.T) {
	svc, bus, userID := setupSubscriptionService(t)
	ctx := context.Background()

	ch, unsubscribe := bus.Subscribe(events.TopicPremiumChanged)
	defer unsubscribe()

	err := svc.ApplyUpdate(ctx, BridgeUpdate{
		UserID:  userID,
		Status:  models.SubscriptionActive,
		Premium: true,
	})
	if err != nil {
		t.Fatalf("Failed to apply update: %v", err)
	}

	select {
	case event := <-ch:
		if event.UserID != userID || !event.Premium {
			t.Errorf("Unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected premium.changed event")
	}

	premium, err := svc.IsPremium(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to check premium: %v", err)
	}
	if !premium {
		t.Error("Expected premium after activation")
	}

	// same effective state again must not publish
	err = svc.ApplyUpdate(ctx, BridgeUpdate{
		UserID:  userID,
		Status:  models.SubscriptionActive,
		Premium: true,
	})
	if err != nil {
		t.Fatalf("Failed to apply update: %v", err)
	}
	select {
	case event := <-ch:
		t.Errorf("Unexpected event for unchanged entitlement: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReverseTrialGrantsPremiumUntilExpiry(t *testing.T) {
	svc, _, userID := setupSubscriptionService(t)
	ctx := context.Background()

	future := time.Now().Add(24 * time.Hour)
	err := svc.ApplyUpdate(ctx, BridgeUpdate{
		UserID:      userID,
		Status:      models.SubscriptionReverseTrial,
		Premium:     false,
		TrialEndsAt: &future,
	})
	if err != nil {
		t.Fatalf("Failed to apply update: %v", err)
	}

	premium, err := svc.IsPremium(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to check premium: %v", err)
	}
	if !premium {
		t.Error("Expected premium during reverse trial")
	}

	past := time.Now().Add(-time.Hour)
	err = svc.ApplyUpdate(ctx, BridgeUpdate{
		UserID:      userID,
		Status:      models.SubscriptionReverseTrial,
		Premium:     false,
		TrialEndsAt: &past,
	})
	if err != nil {
		t.Fatalf("Failed to apply update: %v", err)
	}

	premium, err = svc.IsPremium(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to check premium: %v", err)
	}
	if premium {
		t.Error("Expected premium gone after trial expiry")
	}
}

func TestReconcilePublishesTrialExpiryAfterCacheLapse(t *testing.T) {
	svc, bus, userID := setupSubscriptionService(t)
	ctx := context.Background()

	soon := time.Now().Add(30 * time.Millisecond)
	err := svc.ApplyUpdate(ctx, BridgeUpdate{
		UserID:      userID,
		Status:      models.SubscriptionReverseTrial,
		Premium:     false,
		TrialEndsAt: &soon,
	})
	if err != nil {
		t.Fatalf("Failed to apply update: %v", err)
	}

	ch, unsubscribe := bus.Subscribe(events.TopicPremiumChanged)
	defer unsubscribe()

	time.Sleep(50 * time.Millisecond)
	// the cached flag can expire before the trial does; the downgrade must
	// still be noticed
	if err := svc.cache.Invalidate(ctx, userID); err != nil {
		t.Fatalf("Failed to invalidate cache: %v", err)
	}

	svc.reconcile(ctx, func() ([]int64, error) { return []int64{userID}, nil })

	select {
	case event := <-ch:
		if event.UserID != userID || event.Premium {
			t.Errorf("Unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected premium.changed event after trial expiry")
	}

	// a second pass over the same state must stay quiet
	svc.reconcile(ctx, func() ([]int64, error) { return []int64{userID}, nil })
	select {
	case event := <-ch:
		t.Errorf("Unexpected event for unchanged entitlement: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestVerifyWebhook(t *testing.T) {
	svc, _, userID := setupSubscriptionService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId":  userID,
		"status":  models.SubscriptionActive,
		"premium": true,
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(testWebhookSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	update, err := svc.VerifyWebhook(signed)
	if err != nil {
		t.Fatalf("Failed to verify webhook: %v", err)
	}
	if update.UserID != userID || !update.Premium {
		t.Errorf("Unexpected update: %+v", update)
	}
}

func TestVerifyWebhookRejectsBadSignature(t *testing.T) {
	svc, _, userID := setupSubscriptionService(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := svc.VerifyWebhook(signed); err != ErrInvalidWebhookToken {
		t.Errorf("Expected ErrInvalidWebhookToken, got %v", err)
	}

	if _, err := svc.VerifyWebhook("not-a-token"); err != ErrInvalidWebhookToken {
		t.Errorf("Expected ErrInvalidWebhookToken for garbage, got %v", err)
	}
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/entitlement"
	"godlykids/internal/events"
	"godlykids/internal/models"
	"godlykids/internal/repository"
	"godlykids/internal/service"
)

func setupRenewalTest(t *testing.T, users int, billing http.HandlerFunc) (*RenewalChecker, *database.DB, []int64) {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	var userIDs []int64
	for i := 0; i < users; i++ {
		id, err := db.ExecReturningID(
			"INSERT INTO users (email, password_hash, name, referral_code) VALUES (?, ?, ?, ?)",
			fmt.Sprintf("parent%d@example.com", i), "hash", "Parent", fmt.Sprintf("CODE-%04d", i))
		if err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
		userIDs = append(userIDs, id)
	}

	server := httptest.NewServer(billing)
	t.Cleanup(server.Close)

	userRepo := repository.NewUserRepository(db)
	subscriptions := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		entitlement.NewMemoryCache(),
		events.NewBus(),
		"", time.Hour)
	emailService, _ := service.NewEmailService("", "", "", "", false)

	checker := NewRenewalChecker(
		userRepo,
		subscriptions,
		NewBillingClient(server.URL),
		emailService,
		nil,
		2,                   // small batches so the test exercises batching
		5*time.Millisecond,  // short pause between batches
	)
	return checker, db, userIDs
}

func billingUserID(path string) int64 {
	id, _ := strconv.ParseInt(strings.TrimPrefix(path, "/subscriptions/"), 10, 64)
	return id
}

func TestRenewalCheckUpdatesSubscriptions(t *testing.T) {
	var checker *RenewalChecker
	var db *database.DB
	var userIDs []int64

	renewedAt := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	handler := func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BillingStatus{
			Status:    models.SubscriptionActive,
			Premium:   true,
			RenewedAt: &renewedAt,
		})
	}
	checker, db, userIDs = setupRenewalTest(t, 5, handler)

	checker.Run(context.Background())

	for _, userID := range userIDs {
		var status string
		var premium bool
		err := db.QueryRow("SELECT status, premium FROM subscriptions WHERE user_id = ?", userID).
			Scan(&status, &premium)
		if err != nil {
			t.Fatalf("Expected subscription row for user %d: %v", userID, err)
		}
		if status != models.SubscriptionActive || !premium {
			t.Errorf("User %d: expected active premium, got status=%q premium=%v", userID, status, premium)
		}
	}
}

func TestRenewalCheckSkipsFailingUsers(t *testing.T) {
	var failingUser int64

	handler := func(w http.ResponseWriter, r *http.Request) {
		if billingUserID(r.URL.Path) == failingUser {
			// a permanent client error, retries would not help
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(BillingStatus{Status: models.SubscriptionActive, Premium: true})
	}
	checker, db, userIDs := setupRenewalTest(t, 3, handler)
	failingUser = userIDs[1]

	checker.Run(context.Background())

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM subscriptions").Scan(&count); err != nil {
		t.Fatalf("Failed to count subscriptions: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 subscriptions written around the failing user, got %d", count)
	}
	var failedCount int
	db.QueryRow("SELECT COUNT(*) FROM subscriptions WHERE user_id = ?", failingUser).Scan(&failedCount)
	if failedCount != 0 {
		t.Error("Expected no subscription row for the failing user")
	}
}

func TestRenewalCheckTreatsUnknownUsersAsNone(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	checker, db, userIDs := setupRenewalTest(t, 1, handler)

	checker.Run(context.Background())

	var status string
	err := db.QueryRow("SELECT status FROM subscriptions WHERE user_id = ?", userIDs[0]).Scan(&status)
	if err != nil {
		t.Fatalf("Expected subscription row: %v", err)
	}
	if status != models.SubscriptionNone {
		t.Errorf("Expected status none for unknown billing user, got %q", status)
	}
}

func TestIsNewRenewal(t *testing.T) {
	earlier := time.Now().Add(-time.Hour)
	later := time.Now()

	tests := []struct {
		name   string
		before *time.Time
		after  *time.Time
		want   bool
	}{
		{"no renewal reported", nil, nil, false},
		{"first renewal", nil, &later, true},
		{"newer renewal", &earlier, &later, true},
		{"same renewal", &earlier, &earlier, false},
		{"renewal cleared", &earlier, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNewRenewal(tt.before, tt.after); got != tt.want {
				t.Errorf("isNewRenewal() = %v, want %v", got, tt.want)
			}
		})
	}
}

package database

import (
	"path/filepath"
	"testing"
)

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "test_integration.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Migrations must be idempotent across restarts
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	tables := []string{
		"users", "sessions", "profiles", "kid_sessions",
		"economy", "transactions", "owned_items", "unlocked_voices",
		"redeemed_codes", "avatar_slots", "shop_items",
		"quizzes", "quiz_questions", "quiz_results", "subscriptions",
		"activity_events", "activity_summaries", "comments", "surveys",
		"moderation_words",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	// The shop catalog is seeded by migration
	var items int
	if err := db.QueryRow("SELECT COUNT(*) FROM shop_items").Scan(&items); err != nil {
		t.Fatalf("Failed to count shop items: %v", err)
	}
	if items == 0 {
		t.Error("Expected seeded shop items")
	}

	var defaultHeadPrice int
	if err := db.QueryRow("SELECT price FROM shop_items WHERE id = ?", "head-toast").Scan(&defaultHeadPrice); err != nil {
		t.Fatalf("Expected default head in catalog: %v", err)
	}
	if defaultHeadPrice != 0 {
		t.Errorf("Default head should be free, got price %d", defaultHeadPrice)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "test_transactions.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Committed work is visible
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	_, err = tx.Exec(
		"INSERT INTO users (email, password_hash, name, referral_code) VALUES (?, ?, ?, ?)",
		"parent@example.com", "hash", "Parent", "ABCD-EFGH")
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after commit, got %d", count)
	}

	// Rolled-back work is not
	tx, err = db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	_, err = tx.Exec(
		"INSERT INTO users (email, password_hash, name, referral_code) VALUES (?, ?, ?, ?)",
		"other@example.com", "hash", "Other", "WXYZ-2345")
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("Failed to count users: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after rollback, got %d", count)
	}
}

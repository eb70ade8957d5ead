package repository

import (
	"database/sql"
	"fmt"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// SubscriptionRepository handles database operations for subscription mirrors
type SubscriptionRepository struct {
	db database.DBTX
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetSubscription retrieves the subscription mirror for a user
func (r *SubscriptionRepository) GetSubscription(userID int64) (*models.Subscription, error) {
	query := `
		SELECT user_id, status, premium, trial_ends_at, renewed_at, last_checked_at, updated_at
		FROM subscriptions
		WHERE user_id = ?
	`
	sub := &models.Subscription{}
	err := r.db.QueryRow(query, userID).Scan(
		&sub.UserID,
		&sub.Status,
		&sub.Premium,
		&sub.TrialEndsAt,
		&sub.RenewedAt,
		&sub.LastCheckedAt,
		&sub.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// UpsertSubscription writes the subscription mirror for a user. Last write
// wins, matching the reconciliation model.
func (r *SubscriptionRepository) UpsertSubscription(sub *models.Subscription) error {
	existing, err := r.GetSubscription(sub.UserID)
	if err != nil {
		return err
	}

	if existing == nil {
		query := `
			INSERT INTO subscriptions (user_id, status, premium, trial_ends_at, renewed_at, last_checked_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		if _, err := r.db.Exec(query, sub.UserID, sub.Status, sub.Premium, sub.TrialEndsAt, sub.RenewedAt, sub.LastCheckedAt); err != nil {
			return fmt.Errorf("failed to insert subscription: %w", err)
		}
		return nil
	}

	query := `
		UPDATE subscriptions
		SET status = ?, premium = ?, trial_ends_at = ?, renewed_at = ?, last_checked_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`
	if _, err := r.db.Exec(query, sub.Status, sub.Premium, sub.TrialEndsAt, sub.RenewedAt, sub.LastCheckedAt, sub.UserID); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// TouchLastChecked records when the renewal job last looked at a user
func (r *SubscriptionRepository) TouchLastChecked(userID int64, at time.Time) error {
	query := "UPDATE subscriptions SET last_checked_at = ? WHERE user_id = ?"
	if _, err := r.db.Exec(query, at, userID); err != nil {
		return fmt.Errorf("failed to touch subscription: %w", err)
	}
	return nil
}

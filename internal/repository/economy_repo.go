package repository

import (
	"database/sql"
	"fmt"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// EconomyRepository handles database operations for per-profile economy state
type EconomyRepository struct {
	db database.DBTX
}

// NewEconomyRepository creates a new economy repository
func NewEconomyRepository(db database.DBTX) *EconomyRepository {
	return &EconomyRepository{db: db}
}

// WithTx returns a repository bound to the given transaction, so a flush can
// write the balance, transaction log and item sets atomically.
func (r *EconomyRepository) WithTx(tx *database.Tx) *EconomyRepository {
	return &EconomyRepository{db: tx}
}

// CreateDefault creates the starter economy for a newly activated profile:
// the starter coin grant plus its welcome transaction, and ownership of the
// default head so the shop treats it as purchased.
func (r *EconomyRepository) CreateDefault(profileID int64, starterCoins int) (*models.EconomySnapshot, error) {
	if _, err := r.db.Exec("INSERT INTO economy (profile_id, coins) VALUES (?, ?)", profileID, starterCoins); err != nil {
		return nil, fmt.Errorf("failed to create economy: %w", err)
	}

	query := "INSERT INTO transactions (profile_id, amount, reason, source) VALUES (?, ?, 'welcome', 'system')"
	txnID, err := r.db.ExecReturningID(query, profileID, starterCoins)
	if err != nil {
		return nil, fmt.Errorf("failed to create welcome transaction: %w", err)
	}

	if err := r.AddOwnedItem(profileID, models.DefaultHead); err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.EconomySnapshot{
		ProfileID: profileID,
		Coins:     starterCoins,
		Transactions: []models.Transaction{{
			ID:        txnID,
			ProfileID: profileID,
			Amount:    starterCoins,
			Reason:    "welcome",
			Source:    "system",
			CreatedAt: now,
		}},
		OwnedItemIDs: []string{models.DefaultHead},
		UpdatedAt:    now,
	}, nil
}

// GetSnapshot loads a profile's full economy snapshot, with the transaction
// log newest first limited to txnLimit entries. Returns nil if the profile
// has never been activated.
func (r *EconomyRepository) GetSnapshot(profileID int64, txnLimit int) (*models.EconomySnapshot, error) {
	snap := &models.EconomySnapshot{ProfileID: profileID}

	err := r.db.QueryRow("SELECT coins, updated_at FROM economy WHERE profile_id = ?", profileID).
		Scan(&snap.Coins, &snap.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get economy: %w", err)
	}

	txns, err := r.GetTransactions(profileID, txnLimit)
	if err != nil {
		return nil, err
	}
	snap.Transactions = txns

	snap.OwnedItemIDs, err = r.stringSet("SELECT item_id FROM owned_items WHERE profile_id = ? ORDER BY acquired_at ASC", profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owned items: %w", err)
	}

	snap.UnlockedVoiceIDs, err = r.stringSet("SELECT voice_id FROM unlocked_voices WHERE profile_id = ? ORDER BY unlocked_at ASC", profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked voices: %w", err)
	}

	snap.RedeemedCodes, err = r.stringSet("SELECT code FROM redeemed_codes WHERE profile_id = ? ORDER BY redeemed_at ASC", profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get redeemed codes: %w", err)
	}

	return snap, nil
}

func (r *EconomyRepository) stringSet(query string, profileID int64) ([]string, error) {
	rows, err := r.db.Query(query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetTransactions retrieves a profile's transaction log, newest first
func (r *EconomyRepository) GetTransactions(profileID int64, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id, profile_id, amount, reason, source, created_at
		FROM transactions
		WHERE profile_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.ProfileID, &t.Amount, &t.Reason, &t.Source, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// UpdateCoins sets a profile's coin balance
func (r *EconomyRepository) UpdateCoins(profileID int64, coins int) error {
	query := "UPDATE economy SET coins = ?, updated_at = CURRENT_TIMESTAMP WHERE profile_id = ?"
	if _, err := r.db.Exec(query, coins, profileID); err != nil {
		return fmt.Errorf("failed to update coins: %w", err)
	}
	return nil
}

// InsertTransaction appends a transaction record and returns its ID
func (r *EconomyRepository) InsertTransaction(profileID int64, amount int, reason, source string) (int64, error) {
	query := "INSERT INTO transactions (profile_id, amount, reason, source) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, profileID, amount, reason, source)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return id, nil
}

// TruncateTransactions drops all but the newest `keep` transactions for a
// profile. Oldest entries go silently, there is no archival. The keep set is
// wrapped in a derived table because MySQL refuses both a LIMIT inside an IN
// subquery and a subquery on the delete target itself.
func (r *EconomyRepository) TruncateTransactions(profileID int64, keep int) error {
	query := `
		DELETE FROM transactions
		WHERE profile_id = ? AND id NOT IN (
			SELECT id FROM (
				SELECT id FROM transactions WHERE profile_id = ? ORDER BY id DESC LIMIT ?
			) newest
		)
	`
	if _, err := r.db.Exec(query, profileID, profileID, keep); err != nil {
		return fmt.Errorf("failed to truncate transactions: %w", err)
	}
	return nil
}

// AddOwnedItem records ownership of a shop item
func (r *EconomyRepository) AddOwnedItem(profileID int64, itemID string) error {
	query := "INSERT INTO owned_items (profile_id, item_id) VALUES (?, ?)"
	if _, err := r.db.Exec(query, profileID, itemID); err != nil {
		return fmt.Errorf("failed to add owned item: %w", err)
	}
	return nil
}

// AddUnlockedVoice records an unlocked narration voice
func (r *EconomyRepository) AddUnlockedVoice(profileID int64, voiceID string) error {
	query := "INSERT INTO unlocked_voices (profile_id, voice_id) VALUES (?, ?)"
	if _, err := r.db.Exec(query, profileID, voiceID); err != nil {
		return fmt.Errorf("failed to add unlocked voice: %w", err)
	}
	return nil
}

// AddRedeemedCode records a used referral/reward code
func (r *EconomyRepository) AddRedeemedCode(profileID int64, code string) error {
	query := "INSERT INTO redeemed_codes (profile_id, code) VALUES (?, ?)"
	if _, err := r.db.Exec(query, profileID, code); err != nil {
		return fmt.Errorf("failed to add redeemed code: %w", err)
	}
	return nil
}

// ResetEconomy wipes a profile's economy state entirely (explicit user data
// reset). The next activation recreates starter defaults.
func (r *EconomyRepository) ResetEconomy(profileID int64) error {
	statements := []string{
		"DELETE FROM transactions WHERE profile_id = ?",
		"DELETE FROM owned_items WHERE profile_id = ?",
		"DELETE FROM unlocked_voices WHERE profile_id = ?",
		"DELETE FROM redeemed_codes WHERE profile_id = ?",
		"DELETE FROM economy WHERE profile_id = ?",
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt, profileID); err != nil {
			return fmt.Errorf("failed to reset economy: %w", err)
		}
	}
	return nil
}

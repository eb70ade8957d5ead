package repository

import (
	"fmt"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// AvatarRepository handles database operations for avatar configurations
type AvatarRepository struct {
	db database.DBTX
}

// NewAvatarRepository creates a new avatar repository
func NewAvatarRepository(db database.DBTX) *AvatarRepository {
	return &AvatarRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *AvatarRepository) WithTx(tx *database.Tx) *AvatarRepository {
	return &AvatarRepository{db: tx}
}

// GetConfig loads a profile's avatar configuration. Returns nil when the
// profile has no equipped slots yet.
func (r *AvatarRepository) GetConfig(profileID int64) (*models.AvatarConfig, error) {
	query := `
		SELECT slot, value, rotation, offset_x, offset_y, scale
		FROM avatar_slots
		WHERE profile_id = ?
	`
	rows, err := r.db.Query(query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query avatar slots: %w", err)
	}
	defer rows.Close()

	config := &models.AvatarConfig{
		ProfileID: profileID,
		Equipped:  map[string]string{},
		Poses:     map[string]models.PartPose{},
	}

	found := false
	for rows.Next() {
		var slot, value string
		var pose models.PartPose
		if err := rows.Scan(&slot, &value, &pose.Rotation, &pose.OffsetX, &pose.OffsetY, &pose.Scale); err != nil {
			return nil, fmt.Errorf("failed to scan avatar slot: %w", err)
		}
		config.Equipped[slot] = value
		config.Poses[slot] = pose
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}
	return config, nil
}

// SaveConfig persists a full avatar configuration, replacing whatever was
// stored before. Runs delete-then-insert so it composes with the flush Tx.
func (r *AvatarRepository) SaveConfig(config *models.AvatarConfig) error {
	if _, err := r.db.Exec("DELETE FROM avatar_slots WHERE profile_id = ?", config.ProfileID); err != nil {
		return fmt.Errorf("failed to clear avatar slots: %w", err)
	}

	insert := `
		INSERT INTO avatar_slots (profile_id, slot, value, rotation, offset_x, offset_y, scale)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for slot, value := range config.Equipped {
		pose, ok := config.Poses[slot]
		if !ok {
			pose = models.PartPose{Scale: 1}
		}
		if _, err := r.db.Exec(insert, config.ProfileID, slot, value,
			pose.Rotation, pose.OffsetX, pose.OffsetY, pose.Scale); err != nil {
			return fmt.Errorf("failed to save avatar slot %s: %w", slot, err)
		}
	}
	return nil
}

// DeleteConfig removes a profile's avatar configuration
func (r *AvatarRepository) DeleteConfig(profileID int64) error {
	if _, err := r.db.Exec("DELETE FROM avatar_slots WHERE profile_id = ?", profileID); err != nil {
		return fmt.Errorf("failed to delete avatar config: %w", err)
	}
	return nil
}

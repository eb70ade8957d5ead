package repository

import (
	"database/sql"
	"fmt"
	"time"

	"godlykids/internal/database"
	"godlykids/internal/models"
)

// ProfileRepository handles database operations for parent and kid profiles
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = "id, user_id, kind, name, COALESCE(username, ''), pin, position, created_at, updated_at"

// CreateParentProfile creates the singleton parent profile for an account
func (r *ProfileRepository) CreateParentProfile(userID int64, name string) (*models.Profile, error) {
	query := "INSERT INTO profiles (user_id, kind, name) VALUES (?, 'parent', ?)"
	profileID, err := r.db.ExecReturningID(query, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create parent profile: %w", err)
	}

	return &models.Profile{
		ID:        profileID,
		UserID:    userID,
		Kind:      models.ProfileKindParent,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

// CreateKidProfile creates a kid profile at the end of the family's ordered list
func (r *ProfileRepository) CreateKidProfile(userID int64, name, username, pin string) (*models.Profile, error) {
	var position int
	posQuery := "SELECT COALESCE(MAX(position), -1) + 1 FROM profiles WHERE user_id = ? AND kind = 'kid'"
	if err := r.db.QueryRow(posQuery, userID).Scan(&position); err != nil {
		return nil, fmt.Errorf("failed to compute kid position: %w", err)
	}

	query := "INSERT INTO profiles (user_id, kind, name, username, pin, position) VALUES (?, 'kid', ?, ?, ?, ?)"
	profileID, err := r.db.ExecReturningID(query, userID, name, username, pin, position)
	if err != nil {
		return nil, fmt.Errorf("failed to create kid profile: %w", err)
	}

	return &models.Profile{
		ID:        profileID,
		UserID:    userID,
		Kind:      models.ProfileKindKid,
		Name:      name,
		Username:  username,
		PIN:       pin,
		Position:  position,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	profile := &models.Profile{}
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Kind,
		&profile.Name,
		&profile.Username,
		&profile.PIN,
		&profile.Position,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetProfileByID retrieves a profile by ID
func (r *ProfileRepository) GetProfileByID(profileID int64) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE id = ?"
	return scanProfile(r.db.QueryRow(query, profileID))
}

// GetProfileByUsername retrieves a kid profile by its login username
func (r *ProfileRepository) GetProfileByUsername(username string) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE username = ?"
	return scanProfile(r.db.QueryRow(query, username))
}

// GetParentProfile retrieves the parent profile for an account
func (r *ProfileRepository) GetParentProfile(userID int64) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE user_id = ? AND kind = 'parent'"
	return scanProfile(r.db.QueryRow(query, userID))
}

// GetUserProfiles retrieves all profiles for an account, parent first then
// kids in list order
func (r *ProfileRepository) GetUserProfiles(userID int64) ([]models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_id = ?
		ORDER BY CASE kind WHEN 'parent' THEN 0 ELSE 1 END, position ASC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Kind,
			&p.Name,
			&p.Username,
			&p.PIN,
			&p.Position,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// UpdateProfile updates a profile's display name
func (r *ProfileRepository) UpdateProfile(profileID int64, name string) error {
	query := "UPDATE profiles SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, name, profileID); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateKidPIN replaces a kid's login PIN
func (r *ProfileRepository) UpdateKidPIN(profileID int64, pin string) error {
	query := "UPDATE profiles SET pin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND kind = 'kid'"
	if _, err := r.db.Exec(query, pin, profileID); err != nil {
		return fmt.Errorf("failed to update kid pin: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile and, via cascade, its economy and avatar data
func (r *ProfileRepository) DeleteProfile(profileID int64) error {
	if _, err := r.db.Exec("DELETE FROM profiles WHERE id = ?", profileID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// CreateKidSession creates a new kid session
func (r *ProfileRepository) CreateKidSession(sessionID string, profileID int64, expiresAt time.Time) error {
	query := "INSERT INTO kid_sessions (id, profile_id, expires_at) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, sessionID, profileID, expiresAt); err != nil {
		return fmt.Errorf("failed to create kid session: %w", err)
	}
	return nil
}

// GetKidSession retrieves a kid session by ID
func (r *ProfileRepository) GetKidSession(sessionID string) (*models.KidSession, error) {
	query := "SELECT id, profile_id, expires_at, created_at FROM kid_sessions WHERE id = ?"
	session := &models.KidSession{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.ProfileID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid session: %w", err)
	}
	return session, nil
}

// DeleteKidSession removes a kid session
func (r *ProfileRepository) DeleteKidSession(sessionID string) error {
	if _, err := r.db.Exec("DELETE FROM kid_sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete kid session: %w", err)
	}
	return nil
}

// DeleteExpiredKidSessions removes all expired kid sessions
func (r *ProfileRepository) DeleteExpiredKidSessions() error {
	if _, err := r.db.Exec("DELETE FROM kid_sessions WHERE expires_at < ?", time.Now()); err != nil {
		return fmt.Errorf("failed to delete expired kid sessions: %w", err)
	}
	return nil
}

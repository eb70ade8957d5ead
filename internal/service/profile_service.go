package service

import (
	"errors"
	"fmt"
	"time"

	"godlykids/internal/credentials"
	"godlykids/internal/models"
	"godlykids/internal/repository"
	"godlykids/internal/security"
	"godlykids/internal/validation"
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrNotKidProfile     = errors.New("not a kid profile")
	ErrInvalidKidLogin   = errors.New("invalid username or PIN")
	ErrProfileNotOwned   = errors.New("profile does not belong to this account")
	ErrKidSessionExpired = errors.New("kid session expired")
)

// ProfileService handles parent and kid profile management
type ProfileService struct {
	profileRepo     *repository.ProfileRepository
	economyRepo     *repository.EconomyRepository
	avatarRepo      *repository.AvatarRepository
	sessionDuration time.Duration
}

// NewProfileService creates a new profile service
func NewProfileService(profileRepo *repository.ProfileRepository, economyRepo *repository.EconomyRepository, avatarRepo *repository.AvatarRepository, sessionDuration time.Duration) *ProfileService {
	return &ProfileService{
		profileRepo:     profileRepo,
		economyRepo:     economyRepo,
		avatarRepo:      avatarRepo,
		sessionDuration: sessionDuration,
	}
}

// GetProfiles returns all profiles for an account, parent first then kids in
// list order
func (s *ProfileService) GetProfiles(userID int64) ([]models.Profile, error) {
	return s.profileRepo.GetUserProfiles(userID)
}

// GetOwnedProfile returns a profile after verifying it belongs to the account
func (s *ProfileService) GetOwnedProfile(userID, profileID int64) (*models.Profile, error) {
	profile, err := s.profileRepo.GetProfileByID(profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	if profile.UserID != userID {
		return nil, ErrProfileNotOwned
	}
	return profile, nil
}

// CreateKidProfile creates a kid profile with generated login credentials.
// Username generation retries on the rare collision with an existing kid.
func (s *ProfileService) CreateKidProfile(userID int64, name string) (*models.Profile, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	username, err := s.uniqueKidUsername()
	if err != nil {
		return nil, err
	}

	pin, err := credentials.GenerateKidPIN()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PIN: %w", err)
	}

	profile, err := s.profileRepo.CreateKidProfile(userID, name, username, pin)
	if err != nil {
		return nil, fmt.Errorf("failed to create kid profile: %w", err)
	}
	return profile, nil
}

// RenameProfile updates a profile's display name
func (s *ProfileService) RenameProfile(userID, profileID int64, name string) error {
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	if _, err := s.GetOwnedProfile(userID, profileID); err != nil {
		return err
	}
	return s.profileRepo.UpdateProfile(profileID, name)
}

// RegenerateKidPIN replaces a kid's login PIN and returns the new value
func (s *ProfileService) RegenerateKidPIN(userID, profileID int64) (string, error) {
	profile, err := s.GetOwnedProfile(userID, profileID)
	if err != nil {
		return "", err
	}
	if !profile.IsKid() {
		return "", ErrNotKidProfile
	}

	pin, err := credentials.GenerateKidPIN()
	if err != nil {
		return "", fmt.Errorf("failed to generate PIN: %w", err)
	}
	if err := s.profileRepo.UpdateKidPIN(profileID, pin); err != nil {
		return "", err
	}
	return pin, nil
}

// DeleteKidProfile removes a kid profile and all its data
func (s *ProfileService) DeleteKidProfile(userID, profileID int64) error {
	profile, err := s.GetOwnedProfile(userID, profileID)
	if err != nil {
		return err
	}
	if !profile.IsKid() {
		return ErrNotKidProfile
	}
	return s.profileRepo.DeleteProfile(profileID)
}

// ResetProfileData wipes a profile's economy and avatar state. The caller is
// responsible for deactivating any live session for the profile first so a
// later flush cannot resurrect the old state.
func (s *ProfileService) ResetProfileData(userID, profileID int64) error {
	if _, err := s.GetOwnedProfile(userID, profileID); err != nil {
		return err
	}
	if err := s.economyRepo.ResetEconomy(profileID); err != nil {
		return err
	}
	return s.avatarRepo.DeleteConfig(profileID)
}

// KidLogin authenticates a kid by username and PIN and creates a kid session
func (s *ProfileService) KidLogin(username, pin string) (*models.KidSession, *models.Profile, error) {
	profile, err := s.profileRepo.GetProfileByUsername(username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil || !profile.IsKid() {
		return nil, nil, ErrInvalidKidLogin
	}
	// PINs are short-lived shared secrets within a family, stored plain
	if profile.PIN == "" || profile.PIN != pin {
		return nil, nil, ErrInvalidKidLogin
	}

	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)
	if err := s.profileRepo.CreateKidSession(sessionID, profile.ID, expiresAt); err != nil {
		return nil, nil, err
	}

	return &models.KidSession{
		ID:        sessionID,
		ProfileID: profile.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, profile, nil
}

// ValidateKidSession checks a kid session and returns the associated profile
func (s *ProfileService) ValidateKidSession(sessionID string) (*models.Profile, error) {
	session, err := s.profileRepo.GetKidSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get kid session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.profileRepo.DeleteKidSession(sessionID)
		return nil, ErrKidSessionExpired
	}

	profile, err := s.profileRepo.GetProfileByID(session.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile == nil {
		return nil, ErrSessionNotFound
	}
	return profile, nil
}

// KidLogout invalidates a kid session
func (s *ProfileService) KidLogout(sessionID string) error {
	return s.profileRepo.DeleteKidSession(sessionID)
}

func (s *ProfileService) uniqueKidUsername() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		username, err := credentials.GenerateKidUsername()
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
		existing, err := s.profileRepo.GetProfileByUsername(username)
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		if existing == nil {
			return username, nil
		}
	}
	return "", errors.New("failed to generate a unique kid username")
}

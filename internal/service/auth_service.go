package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"godlykids/internal/credentials"
	"godlykids/internal/models"
	"godlykids/internal/repository"
	"godlykids/internal/security"
	"godlykids/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService handles parent account authentication
type AuthService struct {
	userRepo        *repository.UserRepository
	profileRepo     *repository.ProfileRepository
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, profileRepo *repository.ProfileRepository, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		profileRepo:     profileRepo,
		sessionDuration: sessionDuration,
	}
}

// Register creates a new parent account with its parent profile and a unique
// referral code the family can share.
func (s *AuthService) Register(email, password, name string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	referralCode, err := s.uniqueReferralCode()
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.CreateUser(email, passwordHash, name, referralCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := s.profileRepo.CreateParentProfile(user.ID, name); err != nil {
		// Don't fail registration - the profile can be recreated on login
		log.Printf("Warning: failed to create parent profile for user %d: %v", user.ID, err)
	}

	return user, nil
}

// Login authenticates a parent and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	return s.createSession(user)
}

// OAuthLogin authenticates or creates a parent account using an OAuth identity
func (s *AuthService) OAuthLogin(provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			// password account with the same email stays a password account
			return nil, nil, ErrEmailTaken
		}

		if name == "" {
			name = strings.Split(email, "@")[0]
		}
		referralCode, err := s.uniqueReferralCode()
		if err != nil {
			return nil, nil, err
		}
		user, err = s.userRepo.CreateOAuthUser(email, name, provider, subject, referralCode)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
		if _, err := s.profileRepo.CreateParentProfile(user.ID, name); err != nil {
			log.Printf("Warning: failed to create parent profile for user %d: %v", user.ID, err)
		}
	}

	return s.createSession(user)
}

func (s *AuthService) createSession(user *models.User) (*models.Session, *models.User, error) {
	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)

	session, err := s.userRepo.CreateSession(sessionID, user.ID, expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, user, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// DeleteAccount removes a parent account and all its profiles and data
func (s *AuthService) DeleteAccount(userID int64) error {
	if err := s.userRepo.DeleteUser(userID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired parent and kid sessions
func (s *AuthService) CleanupExpiredSessions() error {
	if err := s.userRepo.DeleteExpiredSessions(); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if err := s.profileRepo.DeleteExpiredKidSessions(); err != nil {
		return fmt.Errorf("failed to cleanup kid sessions: %w", err)
	}
	return nil
}

// SendWelcome sends the welcome email for a new account, best-effort
func (s *AuthService) SendWelcome(ctx context.Context, emailService *EmailService, user *models.User) {
	if emailService == nil || !emailService.IsEnabled() {
		return
	}
	if err := emailService.SendWelcomeEmail(ctx, user.Email, user.Name, user.ReferralCode); err != nil {
		log.Printf("Warning: failed to send welcome email to %s: %v", user.Email, err)
	}
}

// uniqueReferralCode generates a referral code, retrying on the rare collision
func (s *AuthService) uniqueReferralCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := credentials.GenerateReferralCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		existing, err := s.userRepo.GetUserByReferralCode(code)
		if err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique referral code")
}

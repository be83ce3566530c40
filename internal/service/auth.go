// Package service provides business-logic services for authentication and
// case reporting, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/covidreport/internal/models"
	"github.com/atinyakov/covidreport/internal/repository"
)

// bcryptCost is the work factor for password hashing.
const bcryptCost = 12

// minPasswordLen is the minimum accepted password length for registration.
const minPasswordLen = 6

// Errors reported by the authentication service. ErrInvalidCredentials
// covers both unknown-username and wrong-password so the two are not
// distinguishable by a caller probing for usernames.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

// UserRepository defines the persistence operations required by the
// authentication service.
type UserRepository interface {
	// UserExists returns true if a user with the given username exists.
	UserExists(ctx context.Context, username string) (bool, error)
	// CreateUser persists a new user record. Returns
	// repository.ErrDuplicateUsername when the username is taken.
	CreateUser(ctx context.Context, user models.User) error
	// FindByUsername fetches a user or repository.ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdateLoginStats sets last_login and increments login_count atomically.
	UpdateLoginStats(ctx context.Context, username string, ts time.Time) error
	// SetActive toggles the is_active flag.
	SetActive(ctx context.Context, username string, active bool) error
	// UpdateProfile sets the user's profile fields.
	UpdateProfile(ctx context.Context, username, fullName, email string) error
	// ListAll returns every user, newest-created first.
	ListAll(ctx context.Context) ([]models.User, error)
	// CountActive counts accounts with is_active = true.
	CountActive(ctx context.Context) (int64, error)
	// Statistics returns the credential-store counter snapshot.
	Statistics(ctx context.Context) (*models.UserStatistics, error)
}

// AuthService implements authentication operations by delegating to a
// UserRepository.
type AuthService struct {
	// repo performs the data-layer operations.
	repo UserRepository
	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewAuthService constructs a new AuthService using the provided repository.
// repo must implement UserRepository.
func NewAuthService(repo UserRepository) *AuthService {
	return &AuthService{repo: repo, now: time.Now}
}

// Authenticate validates the credentials and returns the user on success.
// Unknown usernames and wrong passwords both map to ErrInvalidCredentials;
// disabled accounts map to ErrAccountDisabled regardless of the password.
// On success the user's login statistics are updated.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.UpdateLoginStats(ctx, username, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("update login stats: %w", err)
	}
	return user, nil
}

// Register creates a new account with role "user". Username presence and
// the minimum password length are enforced here so every entry point gets
// the same checks. Duplicate usernames surface as
// repository.ErrDuplicateUsername from the storage constraint.
func (s *AuthService) Register(ctx context.Context, username, password, fullName, email string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.repo.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Email:        email,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	})
}

// SeedAdmin creates the bootstrap admin account if it does not already
// exist. Returns true when the account was created by this call. Safe to
// run on every startup.
func (s *AuthService) SeedAdmin(ctx context.Context, password string) (bool, error) {
	exists, err := s.repo.UserExists(ctx, "admin")
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	err = s.repo.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		PasswordHash: hash,
		FullName:     "System Administrator",
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicateUsername) {
		// Lost the race against a concurrent seeder; the account exists.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUser returns the user record for the given username.
func (s *AuthService) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// ListUsers returns all users, newest-created first.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.ListAll(ctx)
}

// SetActive enables or disables an account. Authorization is the caller's
// responsibility.
func (s *AuthService) SetActive(ctx context.Context, username string, active bool) error {
	return s.repo.SetActive(ctx, username, active)
}

// UpdateProfile sets the user's full name and/or email.
func (s *AuthService) UpdateProfile(ctx context.Context, username, fullName, email string) error {
	return s.repo.UpdateProfile(ctx, username, fullName, email)
}

// CountActive returns the number of accounts eligible to authenticate.
func (s *AuthService) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}

// Statistics returns the credential-store counter snapshot.
func (s *AuthService) Statistics(ctx context.Context) (*models.UserStatistics, error) {
	return s.repo.Statistics(ctx)
}

// IsAdmin reports whether the named user holds the admin role.
func (s *AuthService) IsAdmin(ctx context.Context, username string) (bool, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == models.RoleAdmin, nil
}

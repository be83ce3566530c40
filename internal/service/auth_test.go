package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/covidreport/internal/models"
	"github.com/atinyakov/covidreport/internal/repository"
)

type mockUserRepo struct {
	UserExistsFunc       func(ctx context.Context, username string) (bool, error)
	CreateUserFunc       func(ctx context.Context, user models.User) error
	FindByUsernameFunc   func(ctx context.Context, username string) (*models.User, error)
	UpdateLoginStatsFunc func(ctx context.Context, username string, ts time.Time) error
	SetActiveFunc        func(ctx context.Context, username string, active bool) error
	UpdateProfileFunc    func(ctx context.Context, username, fullName, email string) error
	ListAllFunc          func(ctx context.Context) ([]models.User, error)
	CountActiveFunc      func(ctx context.Context) (int64, error)
	StatisticsFunc       func(ctx context.Context) (*models.UserStatistics, error)
}

func (m *mockUserRepo) UserExists(ctx context.Context, username string) (bool, error) {
	return m.UserExistsFunc(ctx, username)
}
func (m *mockUserRepo) CreateUser(ctx context.Context, user models.User) error {
	return m.CreateUserFunc(ctx, user)
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.FindByUsernameFunc(ctx, username)
}
func (m *mockUserRepo) UpdateLoginStats(ctx context.Context, username string, ts time.Time) error {
	return m.UpdateLoginStatsFunc(ctx, username, ts)
}
func (m *mockUserRepo) SetActive(ctx context.Context, username string, active bool) error {
	return m.SetActiveFunc(ctx, username, active)
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, username, fullName, email string) error {
	return m.UpdateProfileFunc(ctx, username, fullName, email)
}
func (m *mockUserRepo) ListAll(ctx context.Context) ([]models.User, error) {
	return m.ListAllFunc(ctx)
}
func (m *mockUserRepo) CountActive(ctx context.Context) (int64, error) {
	return m.CountActiveFunc(ctx)
}
func (m *mockUserRepo) Statistics(ctx context.Context) (*models.UserStatistics, error) {
	return m.StatisticsFunc(ctx)
}

func hashFor(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return hash
}

func TestAuthenticate_Success(t *testing.T) {
	statsUpdated := false
	repo := &mockUserRepo{
		FindByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{
				Username:     "alice",
				PasswordHash: hashFor(t, "secret1"),
				Role:         models.RoleUser,
				IsActive:     true,
			}, nil
		},
		UpdateLoginStatsFunc: func(ctx context.Context, username string, ts time.Time) error {
			statsUpdated = true
			if username != "alice" {
				t.Errorf("UpdateLoginStats received username = %q; want %q", username, "alice")
			}
			return nil
		},
	}
	svc := NewAuthService(repo)

	user, err := svc.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Errorf("Authenticate role = %q; want %q", user.Role, models.RoleUser)
	}
	if !statsUpdated {
		t.Error("expected login stats to be updated on success")
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	repo := &mockUserRepo{
		FindByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{
				Username:     "alice",
				PasswordHash: hashFor(t, "secret1"),
				IsActive:     true,
			}, nil
		},
		UpdateLoginStatsFunc: func(ctx context.Context, username string, ts time.Time) error {
			t.Error("login stats must not be updated on failure")
			return nil
		},
	}
	svc := NewAuthService(repo)

	_, err := svc.Authenticate(context.Background(), "alice", "wrongpw")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_UnknownUser_SameError(t *testing.T) {
	repo := &mockUserRepo{
		FindByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return nil, repository.ErrUserNotFound
		},
	}
	svc := NewAuthService(repo)

	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	// Unknown user and wrong password must be indistinguishable.
	if err.Error() != ErrInvalidCredentials.Error() {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAuthenticate_DisabledAccount(t *testing.T) {
	repo := &mockUserRepo{
		FindByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return &models.User{
				Username:     "bob",
				PasswordHash: hashFor(t, "secret1"),
				IsActive:     false,
			}, nil
		},
	}
	svc := NewAuthService(repo)

	// Correct password must not matter for a disabled account.
	_, err := svc.Authenticate(context.Background(), "bob", "secret1")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRegister_Success(t *testing.T) {
	var created models.User
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			created = user
			return nil
		},
	}
	svc := NewAuthService(repo)

	if err := svc.Register(context.Background(), "carol", "secret1", "Carol", "c@example.com"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if created.Username != "carol" || created.Role != models.RoleUser || !created.IsActive {
		t.Errorf("unexpected created user: %+v", created)
	}
	if created.ID == "" {
		t.Error("expected a generated user ID")
	}
	if string(created.PasswordHash) == "secret1" {
		t.Error("password hash must not equal the plaintext password")
	}
	if err := bcrypt.CompareHashAndPassword(created.PasswordHash, []byte("secret1")); err != nil {
		t.Errorf("stored hash does not verify the password: %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			t.Error("CreateUser must not be called for invalid input")
			return nil
		},
	}
	svc := NewAuthService(repo)

	if err := svc.Register(context.Background(), "", "secret1", "", ""); !errors.Is(err, ErrUsernameRequired) {
		t.Errorf("empty username: got %v; want ErrUsernameRequired", err)
	}
	if err := svc.Register(context.Background(), "dave", "short", "", ""); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password: got %v; want ErrPasswordTooShort", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			return repository.ErrDuplicateUsername
		},
	}
	svc := NewAuthService(repo)

	err := svc.Register(context.Background(), "alice", "secret1", "", "")
	if !errors.Is(err, repository.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestSeedAdmin_CreatesOnce(t *testing.T) {
	var created *models.User
	repo := &mockUserRepo{
		UserExistsFunc: func(ctx context.Context, username string) (bool, error) {
			return created != nil, nil
		},
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			created = &user
			return nil
		},
	}
	svc := NewAuthService(repo)

	ok, err := svc.SeedAdmin(context.Background(), "admin123")
	if err != nil || !ok {
		t.Fatalf("first seed = (%v, %v); want (true, nil)", ok, err)
	}
	if created.Role != models.RoleAdmin || created.FullName != "System Administrator" {
		t.Errorf("unexpected admin: %+v", created)
	}

	ok, err = svc.SeedAdmin(context.Background(), "admin123")
	if err != nil || ok {
		t.Fatalf("second seed = (%v, %v); want (false, nil)", ok, err)
	}
}

func TestSeedAdmin_LosesRaceGracefully(t *testing.T) {
	repo := &mockUserRepo{
		UserExistsFunc: func(ctx context.Context, username string) (bool, error) {
			return false, nil
		},
		CreateUserFunc: func(ctx context.Context, user models.User) error {
			return repository.ErrDuplicateUsername
		},
	}
	svc := NewAuthService(repo)

	ok, err := svc.SeedAdmin(context.Background(), "admin123")
	if err != nil || ok {
		t.Fatalf("seed after race = (%v, %v); want (false, nil)", ok, err)
	}
}

func TestIsAdmin(t *testing.T) {
	repo := &mockUserRepo{
		FindByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			switch username {
			case "admin":
				return &models.User{Username: "admin", Role: models.RoleAdmin}, nil
			case "bob":
				return &models.User{Username: "bob", Role: models.RoleUser}, nil
			}
			return nil, repository.ErrUserNotFound
		},
	}
	svc := NewAuthService(repo)

	cases := []struct {
		username string
		want     bool
	}{
		{"admin", true},
		{"bob", false},
		{"ghost", false},
	}
	for _, tc := range cases {
		got, err := svc.IsAdmin(context.Background(), tc.username)
		if err != nil {
			t.Fatalf("IsAdmin(%q) returned error: %v", tc.username, err)
		}
		if got != tc.want {
			t.Errorf("IsAdmin(%q) = %v; want %v", tc.username, got, tc.want)
		}
	}
}

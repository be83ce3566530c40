package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/covidreport/internal/middleware"
	"github.com/atinyakov/covidreport/internal/models"
	"github.com/atinyakov/covidreport/internal/repository"
	"github.com/atinyakov/covidreport/internal/service"
	"github.com/atinyakov/covidreport/internal/token"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Authenticate validates credentials and returns the user on success.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	// Register creates a new account with role "user".
	Register(ctx context.Context, username, password, fullName, email string) error
	// GetUser returns the user record for the given username.
	GetUser(ctx context.Context, username string) (*models.User, error)
	// ListUsers returns all users, newest-created first.
	ListUsers(ctx context.Context) ([]models.User, error)
	// SetActive enables or disables an account.
	SetActive(ctx context.Context, username string, active bool) error
	// UpdateProfile sets the user's profile fields.
	UpdateProfile(ctx context.Context, username, fullName, email string) error
	// Statistics returns the credential-store counter snapshot.
	Statistics(ctx context.Context) (*models.UserStatistics, error)
}

// AuthHandler handles HTTP requests for registration, login, profile, and
// user administration.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Tokens issues session tokens on successful login.
	Tokens *token.Manager
	// Log records internal failures.
	Log *zap.Logger
}

// credentialsRequest is the JSON payload for registration and login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Register handles POST /api/register.
// It expects a JSON body with "username" and "password"; the role is
// always "user". Duplicate usernames and weak passwords return 400.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, false, "invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeResult(w, http.StatusBadRequest, false, "missing credentials")
		return
	}

	err := h.AuthService.Register(r.Context(), req.Username, req.Password, req.FullName, req.Email)
	switch {
	case err == nil:
		writeResult(w, http.StatusOK, true, "Registration successful")
	case errors.Is(err, repository.ErrDuplicateUsername):
		writeResult(w, http.StatusBadRequest, false, "Username already exists")
	case errors.Is(err, service.ErrUsernameRequired), errors.Is(err, service.ErrPasswordTooShort):
		writeResult(w, http.StatusBadRequest, false, err.Error())
	default:
		internalError(w, h.Log, "register", err)
	}
}

// Login handles POST /api/login.
// On success it returns the username, role, and a session token. Unknown
// usernames and wrong passwords get the same 401 message so usernames
// cannot be enumerated; disabled accounts are told why they are rejected.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, false, "invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeResult(w, http.StatusBadRequest, false, "missing credentials")
		return
	}

	user, err := h.AuthService.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountDisabled):
		writeResult(w, http.StatusUnauthorized, false, err.Error())
		return
	default:
		internalError(w, h.Log, "login", err)
		return
	}

	tok, err := h.Tokens.Issue(user.Username, user.Role)
	if err != nil {
		internalError(w, h.Log, "issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Login successful",
		"username": user.Username,
		"role":     user.Role,
		"token":    tok,
	})
}

// Profile handles GET /api/profile for the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUserFromContext(r.Context())

	user, err := h.AuthService.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, h.Log, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// profileUpdateRequest is the JSON payload for profile edits.
type profileUpdateRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// UpdateProfile handles PUT /api/profile for the authenticated user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUserFromContext(r.Context())

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, false, "invalid request")
		return
	}
	if req.FullName == "" && req.Email == "" {
		writeResult(w, http.StatusBadRequest, false, "nothing to update")
		return
	}

	if err := h.AuthService.UpdateProfile(r.Context(), username, req.FullName, req.Email); err != nil {
		internalError(w, h.Log, "update profile", err)
		return
	}
	writeResult(w, http.StatusOK, true, "Profile updated successfully")
}

// ListUsers handles GET /api/admin/users.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.AuthService.ListUsers(r.Context())
	if err != nil {
		internalError(w, h.Log, "list users", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

// setActiveRequest is the JSON payload for account activation toggles.
type setActiveRequest struct {
	Active *bool `json:"active"`
}

// SetActive handles POST /api/admin/users/{username}/active.
func (h *AuthHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeResult(w, http.StatusBadRequest, false, "invalid request")
		return
	}

	err := h.AuthService.SetActive(r.Context(), username, *req.Active)
	switch {
	case err == nil:
		msg := "User deactivated successfully"
		if *req.Active {
			msg = "User activated successfully"
		}
		writeResult(w, http.StatusOK, true, msg)
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		internalError(w, h.Log, "set active", err)
	}
}

// UserStatistics handles GET /api/admin/user-statistics.
func (h *AuthHandler) UserStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.AuthService.Statistics(r.Context())
	if err != nil {
		internalError(w, h.Log, "user statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

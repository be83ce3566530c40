// Package repository provides persistence implementations for the
// credential and case stores using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/covidreport/internal/models"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// PostgresUserRepository implements credential-store operations using a
// PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the
// given database connection. db must be a valid *sql.DB connected to a
// PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// UserExists checks whether a user with the specified username exists.
// It returns true if the user exists, false otherwise.
// If an error occurs during the query, it is returned.
func (r *PostgresUserRepository) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	return exists, err
}

// CreateUser persists a new user record. The unique constraint on username
// is the source of truth for duplicates: a violation is reported as
// ErrDuplicateUsername regardless of any prior existence check.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user models.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, full_name, email, role, is_active, created_at, login_count)
		VALUES ($1, $2, $3, $4, $5, $6, true, $7, 0)
	`, user.ID, user.Username, user.PasswordHash, user.FullName, user.Email, user.Role, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByUsername fetches a single user by username.
// Returns ErrUserNotFound when no row matches.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, full_name, email, role, is_active, created_at, last_login, login_count
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &lastLogin, &u.LoginCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// UpdateLoginStats sets last_login and increments login_count in a single
// statement. The server-side increment keeps the counter correct under
// concurrent logins by the same user.
func (r *PostgresUserRepository) UpdateLoginStats(ctx context.Context, username string, ts time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users SET last_login = $1, login_count = login_count + 1 WHERE username = $2
	`, ts, username)
	if err != nil {
		return fmt.Errorf("update login stats: %w", err)
	}
	return nil
}

// SetActive toggles the is_active flag for the given username.
// Returns ErrUserNotFound when no row was updated.
func (r *PostgresUserRepository) SetActive(ctx context.Context, username string, active bool) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET is_active = $1 WHERE username = $2
	`, active, username)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateProfile sets the profile fields for the given username. Empty
// values are skipped so a caller can update one field at a time.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, username, fullName, email string) error {
	if fullName != "" {
		if _, err := r.DB.ExecContext(ctx,
			`UPDATE users SET full_name = $1 WHERE username = $2`, fullName, username); err != nil {
			return fmt.Errorf("update full name: %w", err)
		}
	}
	if email != "" {
		if _, err := r.DB.ExecContext(ctx,
			`UPDATE users SET email = $1 WHERE username = $2`, email, username); err != nil {
			return fmt.Errorf("update email: %w", err)
		}
	}
	return nil
}

// ListAll returns every user, newest-created first.
func (r *PostgresUserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, username, full_name, email, role, is_active, created_at, last_login, login_count
		FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt, &lastLogin, &u.LoginCount); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if lastLogin.Valid {
			u.LastLogin = &lastLogin.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountActive returns the number of accounts with is_active = true.
func (r *PostgresUserRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_active = true`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}
	return count, nil
}

// Statistics returns a counter snapshot. Day boundaries are normalized to
// UTC on both sides of the comparison.
func (r *PostgresUserRepository) Statistics(ctx context.Context) (*models.UserStatistics, error) {
	var stats models.UserStatistics
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active = true),
		       COUNT(*) FILTER (WHERE (created_at AT TIME ZONE 'UTC')::date = (NOW() AT TIME ZONE 'UTC')::date),
		       COUNT(*) FILTER (WHERE (last_login AT TIME ZONE 'UTC')::date = (NOW() AT TIME ZONE 'UTC')::date)
		FROM users
	`).Scan(&stats.TotalUsers, &stats.ActiveUsers, &stats.RegistrationsToday, &stats.LoginsToday)
	if err != nil {
		return nil, fmt.Errorf("user statistics: %w", err)
	}
	return &stats, nil
}

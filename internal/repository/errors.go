package repository

import "errors"

// Sentinel errors returned by the repositories. Services and handlers
// match on these with errors.Is to choose a response.
var (
	// ErrDuplicateUsername is returned when an insert hits the unique
	// constraint on users.username.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrUserNotFound is returned when no user row matches the username.
	ErrUserNotFound = errors.New("user not found")

	// ErrCountryNotFound is returned when a country has never appeared in
	// the case store. Distinct from an empty result set.
	ErrCountryNotFound = errors.New("country not found")

	// ErrNoData is returned by aggregations over an empty case store.
	ErrNoData = errors.New("no data available")
)

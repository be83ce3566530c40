// Package models defines the core data structures for users and case records.
package models

import "time"

// Role is the access tier assigned to a user account.
type Role string

const (
	// RoleAdmin grants access to administrative views and user management.
	RoleAdmin Role = "admin"
	// RoleUser is the default tier for registered accounts.
	RoleUser Role = "user"
)

// User represents an application user with credentials and login statistics.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte `json:"-"`
	// FullName is the optional display name of the user.
	FullName string `json:"full_name,omitempty"`
	// Email is the optional contact address of the user.
	Email string `json:"email,omitempty"`
	// Role is the access tier ("admin" or "user").
	Role Role `json:"role"`
	// IsActive reports whether the account may authenticate.
	IsActive bool `json:"is_active"`
	// CreatedAt is the registration timestamp, immutable.
	CreatedAt time.Time `json:"created_at"`
	// LastLogin is the timestamp of the most recent successful login,
	// nil until the first one.
	LastLogin *time.Time `json:"last_login,omitempty"`
	// LoginCount is the number of successful logins, never decreasing.
	LoginCount int64 `json:"login_count"`
}

// CaseRecord is one country's cumulative case snapshot for one date.
// Records are append-only; a country's current totals are the sum over
// all of its rows.
type CaseRecord struct {
	// ID is the surrogate key assigned on insertion.
	ID int64 `json:"id"`
	// Country is the display-formatted country name.
	Country string `json:"country"`
	// Date is the calendar date in YYYY-MM-DD form.
	Date string `json:"date"`
	// Confirmed is the cumulative confirmed case count.
	Confirmed int64 `json:"confirmed"`
	// Deaths is the cumulative death count.
	Deaths int64 `json:"deaths"`
	// Recovered is the cumulative recovered count.
	Recovered int64 `json:"recovered"`
	// Active is the caller-supplied active case count.
	Active int64 `json:"active"`
	// CreatedAt is the insertion timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// CountryAggregate holds one country's metrics summed across all of its
// dated records.
type CountryAggregate struct {
	Country   string `json:"country"`
	Confirmed int64  `json:"confirmed"`
	Deaths    int64  `json:"deaths"`
	Recovered int64  `json:"recovered"`
	Active    int64  `json:"active"`
}

// GlobalSummary holds each metric summed across every record in the store.
type GlobalSummary struct {
	TotalConfirmed int64 `json:"total_confirmed"`
	TotalDeaths    int64 `json:"total_deaths"`
	TotalRecovered int64 `json:"total_recovered"`
	TotalActive    int64 `json:"total_active"`
}

// UserStatistics is a snapshot of credential-store counters. Day counters
// use UTC calendar days.
type UserStatistics struct {
	TotalUsers         int64 `json:"total_users"`
	ActiveUsers        int64 `json:"active_users"`
	RegistrationsToday int64 `json:"registrations_today"`
	LoginsToday        int64 `json:"logins_today"`
}

// DateRange is the span of dates covered by the case store.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DatasetStatistics describes the case store's contents.
type DatasetStatistics struct {
	TotalRecords   int64     `json:"total_records"`
	DateRange      DateRange `json:"date_range"`
	CountriesCount int64     `json:"countries_count"`
	Columns        []string  `json:"columns"`
}

// Metric identifies one of the four case-count columns.
type Metric string

const (
	MetricConfirmed Metric = "confirmed"
	MetricDeaths    Metric = "deaths"
	MetricRecovered Metric = "recovered"
	MetricActive    Metric = "active"
)

// Valid reports whether m names a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricConfirmed, MetricDeaths, MetricRecovered, MetricActive:
		return true
	}
	return false
}

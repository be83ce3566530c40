package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/atinyakov/covidreport/internal/models"
)

func setupCaseMock(t *testing.T) (*PostgresCaseRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresCaseRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestInsert_Success(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	rec := models.CaseRecord{
		Country: "Testland", Date: "2024-01-01",
		Confirmed: 100, Deaths: 5, Recovered: 80, Active: 15,
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO covid_cases (country, date, confirmed, deaths, recovered, active)`)).
		WithArgs(rec.Country, rec.Date, rec.Confirmed, rec.Deaths, rec.Recovered, rec.Active).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestInsert_Error(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO covid_cases`)).
		WillReturnError(errors.New("insert failed"))

	if err := repo.Insert(context.Background(), models.CaseRecord{Country: "X"}); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDistinctCountries(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT country FROM covid_cases ORDER BY country`)).
		WillReturnRows(sqlmock.NewRows([]string{"country"}).AddRow("France").AddRow("Italy"))

	countries, err := repo.DistinctCountries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(countries) != 2 || countries[0] != "France" || countries[1] != "Italy" {
		t.Errorf("unexpected countries: %v", countries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecordsForCountry_NotFound(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM covid_cases WHERE country = $1 ORDER BY date`)).
		WithArgs("Wakanda").
		WillReturnRows(sqlmock.NewRows([]string{"id", "country", "date", "confirmed", "deaths", "recovered", "active", "created_at"}))

	_, err := repo.RecordsForCountry(context.Background(), "Wakanda")
	if !errors.Is(err, ErrCountryNotFound) {
		t.Fatalf("expected ErrCountryNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGlobalSummary_Sums(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "confirmed", "deaths", "recovered", "active"}).
			AddRow(7, 1000, 50, 800, 150))

	summary, err := repo.GlobalSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalConfirmed != 1000 || summary.TotalDeaths != 50 ||
		summary.TotalRecovered != 800 || summary.TotalActive != 150 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGlobalSummary_Empty(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "confirmed", "deaths", "recovered", "active"}).
			AddRow(0, 0, 0, 0, 0))

	_, err := repo.GlobalSummary(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTopCountries_OrdersByMetric(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(`ORDER BY deaths DESC, country ASC`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"country", "confirmed", "deaths", "recovered", "active"}).
			AddRow("Italy", 500, 40, 300, 160).
			AddRow("France", 600, 30, 500, 70))

	top, err := repo.TopCountries(context.Background(), models.MetricDeaths, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 || top[0].Country != "Italy" || top[1].Country != "France" {
		t.Errorf("unexpected order: %+v", top)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTopCountries_UnknownMetric(t *testing.T) {
	repo, _, cleanup := setupCaseMock(t)
	defer cleanup()

	// Must fail before any query is built; the metric is interpolated
	// into ORDER BY and only whitelisted names are allowed.
	if _, err := repo.TopCountries(context.Background(), "vaccinated; DROP TABLE users", 5); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestCompare_SubsetOnly(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE country = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{"country", "confirmed", "deaths", "recovered", "active"}).
			AddRow("France", 600, 30, 500, 70))

	result, err := repo.Compare(context.Background(), []string{"France", "Wakanda"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0].Country != "France" {
		t.Errorf("unexpected result: %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStatistics_Empty(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max", "countries"}).
			AddRow(0, nil, nil, 0))

	_, err := repo.Statistics(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStatistics_Populated(t *testing.T) {
	repo, mock, cleanup := setupCaseMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max", "countries"}).
			AddRow(42, "2024-01-01", "2024-03-01", 6))

	stats, err := repo.Statistics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalRecords != 42 || stats.DateRange.Start != "2024-01-01" || stats.DateRange.End != "2024-03-01" || stats.CountriesCount != 6 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(stats.Columns) != 6 || stats.Columns[0] != "country" {
		t.Errorf("unexpected columns: %v", stats.Columns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/covidreport/internal/models"
)

// metricColumns whitelists the metric names that may appear in ORDER BY.
// Anything else is rejected before query construction.
var metricColumns = map[models.Metric]string{
	models.MetricConfirmed: "confirmed",
	models.MetricDeaths:    "deaths",
	models.MetricRecovered: "recovered",
	models.MetricActive:    "active",
}

// PostgresCaseRepository implements case-store operations against a
// PostgreSQL database. The store is append-only: records are inserted and
// summed, never updated or deleted.
type PostgresCaseRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresCaseRepository creates a new PostgresCaseRepository using the
// provided *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresCaseRepository(db *sql.DB) *PostgresCaseRepository {
	return &PostgresCaseRepository{DB: db}
}

// Insert appends a case record. There is no uniqueness constraint on
// (country, date); duplicate pairs accumulate and are summed by the
// aggregation queries.
func (r *PostgresCaseRepository) Insert(ctx context.Context, rec models.CaseRecord) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO covid_cases (country, date, confirmed, deaths, recovered, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Country, rec.Date, rec.Confirmed, rec.Deaths, rec.Recovered, rec.Active)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// DistinctCountries returns every country name in the store, sorted
// ascending.
func (r *PostgresCaseRepository) DistinctCountries(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT country FROM covid_cases ORDER BY country`)
	if err != nil {
		return nil, fmt.Errorf("distinct countries: %w", err)
	}
	defer rows.Close()

	var countries []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// RecordsForCountry fetches all records for one country, oldest date
// first. Returns ErrCountryNotFound when the country has never appeared,
// which callers must keep distinct from an empty slice.
func (r *PostgresCaseRepository) RecordsForCountry(ctx context.Context, country string) ([]models.CaseRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, country, date, confirmed, deaths, recovered, active, created_at
		FROM covid_cases WHERE country = $1 ORDER BY date
	`, country)
	if err != nil {
		return nil, fmt.Errorf("records for country: %w", err)
	}
	defer rows.Close()

	var records []models.CaseRecord
	for rows.Next() {
		var rec models.CaseRecord
		if err := rows.Scan(&rec.ID, &rec.Country, &rec.Date, &rec.Confirmed, &rec.Deaths, &rec.Recovered, &rec.Active, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrCountryNotFound
	}
	return records, nil
}

// GlobalSummary sums each metric across every record in the store.
// Returns ErrNoData when the store is empty.
func (r *PostgresCaseRepository) GlobalSummary(ctx context.Context) (*models.GlobalSummary, error) {
	var count int64
	var summary models.GlobalSummary
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(confirmed), 0),
		       COALESCE(SUM(deaths), 0),
		       COALESCE(SUM(recovered), 0),
		       COALESCE(SUM(active), 0)
		FROM covid_cases
	`).Scan(&count, &summary.TotalConfirmed, &summary.TotalDeaths, &summary.TotalRecovered, &summary.TotalActive)
	if err != nil {
		return nil, fmt.Errorf("global summary: %w", err)
	}
	if count == 0 {
		return nil, ErrNoData
	}
	return &summary, nil
}

// TopCountries groups records by country, sums each metric, and returns
// the top rows ordered by the chosen metric descending with country name
// ascending as the tie-break. Any positive limit is accepted; range
// clamping belongs to the API boundary.
func (r *PostgresCaseRepository) TopCountries(ctx context.Context, metric models.Metric, limit int) ([]models.CountryAggregate, error) {
	column, ok := metricColumns[metric]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	query := fmt.Sprintf(`
		SELECT country,
		       COALESCE(SUM(confirmed), 0) AS confirmed,
		       COALESCE(SUM(deaths), 0) AS deaths,
		       COALESCE(SUM(recovered), 0) AS recovered,
		       COALESCE(SUM(active), 0) AS active
		FROM covid_cases
		GROUP BY country
		ORDER BY %s DESC, country ASC
		LIMIT $1
	`, column)

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top countries: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// Compare returns per-country aggregates restricted to the requested set.
// Countries absent from the store produce no row; reporting them is the
// caller's concern.
func (r *PostgresCaseRepository) Compare(ctx context.Context, countries []string) ([]models.CountryAggregate, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT country,
		       COALESCE(SUM(confirmed), 0) AS confirmed,
		       COALESCE(SUM(deaths), 0) AS deaths,
		       COALESCE(SUM(recovered), 0) AS recovered,
		       COALESCE(SUM(active), 0) AS active
		FROM covid_cases
		WHERE country = ANY($1)
		GROUP BY country
		ORDER BY country ASC
	`, pq.Array(countries))
	if err != nil {
		return nil, fmt.Errorf("compare countries: %w", err)
	}
	defer rows.Close()

	return scanAggregates(rows)
}

// Statistics describes the store's contents. Returns ErrNoData when empty.
func (r *PostgresCaseRepository) Statistics(ctx context.Context) (*models.DatasetStatistics, error) {
	var stats models.DatasetStatistics
	var start, end sql.NullString
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(date), MAX(date), COUNT(DISTINCT country) FROM covid_cases
	`).Scan(&stats.TotalRecords, &start, &end, &stats.CountriesCount)
	if err != nil {
		return nil, fmt.Errorf("dataset statistics: %w", err)
	}
	if stats.TotalRecords == 0 {
		return nil, ErrNoData
	}
	stats.DateRange = models.DateRange{Start: start.String, End: end.String}
	stats.Columns = []string{"country", "date", "confirmed", "deaths", "recovered", "active"}
	return &stats, nil
}

func scanAggregates(rows *sql.Rows) ([]models.CountryAggregate, error) {
	var result []models.CountryAggregate
	for rows.Next() {
		var agg models.CountryAggregate
		if err := rows.Scan(&agg.Country, &agg.Confirmed, &agg.Deaths, &agg.Recovered, &agg.Active); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result = append(result, agg)
	}
	return result, rows.Err()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/atinyakov/covidreport/internal/models"
)

// ErrValidation marks input errors on case submissions and report
// parameters. Handlers map it to a 400 response with the wrapped message.
var ErrValidation = errors.New("validation")

// CaseRepository defines the persistence operations needed by the
// ReportService.
type CaseRepository interface {
	// Insert appends one case record.
	Insert(ctx context.Context, rec models.CaseRecord) error
	// DistinctCountries returns all country names, sorted.
	DistinctCountries(ctx context.Context) ([]string, error)
	// RecordsForCountry returns a country's records or
	// repository.ErrCountryNotFound.
	RecordsForCountry(ctx context.Context, country string) ([]models.CaseRecord, error)
	// GlobalSummary sums each metric store-wide, or repository.ErrNoData.
	GlobalSummary(ctx context.Context) (*models.GlobalSummary, error)
	// TopCountries returns per-country sums ordered by metric.
	TopCountries(ctx context.Context, metric models.Metric, limit int) ([]models.CountryAggregate, error)
	// Compare returns per-country sums for the requested set.
	Compare(ctx context.Context, countries []string) ([]models.CountryAggregate, error)
	// Statistics describes the store contents, or repository.ErrNoData.
	Statistics(ctx context.Context) (*models.DatasetStatistics, error)
}

// AddCaseInput is one case submission before validation and normalization.
// Active is a pointer so an absent field can be told apart from zero.
type AddCaseInput struct {
	Country   string
	Date      string
	Confirmed int64
	Deaths    int64
	Recovered int64
	Active    *int64
}

// CompareResult carries the aggregates for the countries that exist plus
// the requested names that have no records. Unknown countries are reported
// here, never as an error.
type CompareResult struct {
	Comparison []models.CountryAggregate `json:"comparison"`
	NotFound   []string                  `json:"not_found"`
}

// ReportService implements aggregation and comparison logic over the case
// store.
type ReportService struct {
	// repo is the underlying persistence repository.
	repo CaseRepository
	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewReportService constructs a ReportService with the provided
// CaseRepository.
func NewReportService(repo CaseRepository) *ReportService {
	return &ReportService{repo: repo, now: time.Now}
}

// AddCase validates and normalizes one submission, then appends it to the
// store. The country is trimmed and title-cased; the date defaults to
// today (UTC) and must be YYYY-MM-DD; counts must be non-negative with
// deaths and recovered each no greater than confirmed. An absent active
// count defaults to confirmed - deaths - recovered, floored at zero; an
// explicit value is kept as-is after the non-negative check.
func (s *ReportService) AddCase(ctx context.Context, in AddCaseInput) (*models.CaseRecord, error) {
	country := normalizeCountry(in.Country)
	if country == "" {
		return nil, fmt.Errorf("%w: country is required", ErrValidation)
	}

	date := in.Date
	if date == "" {
		date = s.now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	for name, v := range map[string]int64{
		"confirmed": in.Confirmed,
		"deaths":    in.Deaths,
		"recovered": in.Recovered,
	} {
		if v < 0 {
			return nil, fmt.Errorf("%w: %s must be non-negative", ErrValidation, name)
		}
	}
	if in.Deaths > in.Confirmed {
		return nil, fmt.Errorf("%w: deaths cannot exceed confirmed", ErrValidation)
	}
	if in.Recovered > in.Confirmed {
		return nil, fmt.Errorf("%w: recovered cannot exceed confirmed", ErrValidation)
	}

	var active int64
	if in.Active != nil {
		if *in.Active < 0 {
			return nil, fmt.Errorf("%w: active must be non-negative", ErrValidation)
		}
		active = *in.Active
	} else {
		active = in.Confirmed - in.Deaths - in.Recovered
		if active < 0 {
			active = 0
		}
	}

	rec := models.CaseRecord{
		Country:   country,
		Date:      date,
		Confirmed: in.Confirmed,
		Deaths:    in.Deaths,
		Recovered: in.Recovered,
		Active:    active,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Countries lists every country present in the store.
func (s *ReportService) Countries(ctx context.Context) ([]string, error) {
	return s.repo.DistinctCountries(ctx)
}

// CountryData returns all records for one country, after the same name
// normalization applied on insertion. Unknown countries surface as
// repository.ErrCountryNotFound.
func (s *ReportService) CountryData(ctx context.Context, country string) ([]models.CaseRecord, error) {
	return s.repo.RecordsForCountry(ctx, normalizeCountry(country))
}

// GlobalSummary sums each metric across all records.
func (s *ReportService) GlobalSummary(ctx context.Context) (*models.GlobalSummary, error) {
	return s.repo.GlobalSummary(ctx)
}

// TopCountries returns per-country aggregates ordered by the chosen
// metric, descending, truncated to limit. The metric must be one of the
// four case-count columns; any positive limit is accepted here, range
// clamping belongs to the API boundary.
func (s *ReportService) TopCountries(ctx context.Context, metric models.Metric, limit int) ([]models.CountryAggregate, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrValidation, metric)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrValidation)
	}
	return s.repo.TopCountries(ctx, metric, limit)
}

// Compare aggregates the requested countries side by side. Names are
// normalized before lookup; names with no records come back in NotFound
// rather than as an error.
func (s *ReportService) Compare(ctx context.Context, countries []string) (*CompareResult, error) {
	normalized := make([]string, 0, len(countries))
	for _, c := range countries {
		if n := normalizeCountry(c); n != "" {
			normalized = append(normalized, n)
		}
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: no countries provided", ErrValidation)
	}

	aggregates, err := s.repo.Compare(ctx, normalized)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(aggregates))
	for _, agg := range aggregates {
		found[agg.Country] = true
	}
	result := &CompareResult{Comparison: aggregates, NotFound: []string{}}
	seen := make(map[string]bool, len(normalized))
	for _, c := range normalized {
		if !found[c] && !seen[c] {
			result.NotFound = append(result.NotFound, c)
			seen[c] = true
		}
	}
	return result, nil
}

// Statistics describes the case store contents.
func (s *ReportService) Statistics(ctx context.Context) (*models.DatasetStatistics, error) {
	return s.repo.Statistics(ctx)
}

// normalizeCountry trims surrounding whitespace and title-cases each word,
// so "  south korea " and "South Korea" land on the same grouping key.
func normalizeCountry(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

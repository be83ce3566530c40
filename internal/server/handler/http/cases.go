package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/covidreport/internal/models"
	"github.com/atinyakov/covidreport/internal/repository"
	"github.com/atinyakov/covidreport/internal/service"
)

// Top-N limits enforced at this boundary; the engine itself is permissive.
const (
	minLimit     = 1
	maxLimit     = 50
	defaultLimit = 10
)

// maxCompareCountries caps one comparison request.
const maxCompareCountries = 10

// ReportService defines the interface for case reporting operations
// required by the HTTP handlers.
type ReportService interface {
	// AddCase validates, normalizes, and appends one case record.
	AddCase(ctx context.Context, in service.AddCaseInput) (*models.CaseRecord, error)
	// Countries lists every country in the store.
	Countries(ctx context.Context) ([]string, error)
	// CountryData returns all records for one country.
	CountryData(ctx context.Context, country string) ([]models.CaseRecord, error)
	// GlobalSummary sums each metric store-wide.
	GlobalSummary(ctx context.Context) (*models.GlobalSummary, error)
	// TopCountries returns per-country sums ordered by metric.
	TopCountries(ctx context.Context, metric models.Metric, limit int) ([]models.CountryAggregate, error)
	// Compare aggregates the requested countries side by side.
	Compare(ctx context.Context, countries []string) (*service.CompareResult, error)
	// Statistics describes the store contents.
	Statistics(ctx context.Context) (*models.DatasetStatistics, error)
}

// ReportHandler handles HTTP requests for case data and aggregations.
type ReportHandler struct {
	// ReportService performs the underlying reporting operations.
	ReportService ReportService
	// Log records internal failures.
	Log *zap.Logger
}

// Health handles GET /api/health.
func (h *ReportHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "COVID-19 API is running",
	})
}

// Countries handles GET /api/countries.
func (h *ReportHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.ReportService.Countries(r.Context())
	if err != nil {
		internalError(w, h.Log, "countries", err)
		return
	}
	if countries == nil {
		countries = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"countries": countries, "count": len(countries)})
}

// Country handles GET /api/country/{name}. Unknown countries return 404,
// unlike compare which reports them in not_found.
func (h *ReportHandler) Country(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	records, err := h.ReportService.CountryData(r.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrCountryNotFound) {
			writeError(w, http.StatusNotFound, "Country not found")
			return
		}
		internalError(w, h.Log, "country data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"country": records[0].Country,
		"data":    records,
		"count":   len(records),
	})
}

// GlobalSummary handles GET /api/global-summary.
func (h *ReportHandler) GlobalSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ReportService.GlobalSummary(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNoData) {
			writeError(w, http.StatusNotFound, "No data available")
			return
		}
		internalError(w, h.Log, "global summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// topCountriesParams parses and clamps the metric and limit query
// parameters shared by the JSON and CSV top-countries endpoints.
func topCountriesParams(r *http.Request) (models.Metric, int, string) {
	metric := models.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = models.MetricConfirmed
	}
	if !metric.Valid() {
		return "", 0, "Invalid metric parameter"
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return "", 0, "Invalid limit parameter"
		}
		limit = parsed
	}
	if limit < minLimit || limit > maxLimit {
		return "", 0, "Limit must be between 1 and 50"
	}
	return metric, limit, ""
}

// TopCountries handles GET /api/top-countries?metric&limit.
func (h *ReportHandler) TopCountries(w http.ResponseWriter, r *http.Request) {
	metric, limit, errMsg := topCountriesParams(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	top, err := h.ReportService.TopCountries(r.Context(), metric, limit)
	if err != nil {
		internalError(w, h.Log, "top countries", err)
		return
	}
	if top == nil {
		top = []models.CountryAggregate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metric":    metric,
		"countries": top,
		"count":     len(top),
	})
}

// ExportTopCountries handles GET /api/export/top-countries?metric&limit,
// returning the ranking as a CSV download.
func (h *ReportHandler) ExportTopCountries(w http.ResponseWriter, r *http.Request) {
	metric, limit, errMsg := topCountriesParams(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	top, err := h.ReportService.TopCountries(r.Context(), metric, limit)
	if err != nil {
		internalError(w, h.Log, "export top countries", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="top_countries.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"country", "confirmed", "deaths", "recovered", "active"})
	for _, agg := range top {
		_ = cw.Write([]string{
			agg.Country,
			strconv.FormatInt(agg.Confirmed, 10),
			strconv.FormatInt(agg.Deaths, 10),
			strconv.FormatInt(agg.Recovered, 10),
			strconv.FormatInt(agg.Active, 10),
		})
	}
	cw.Flush()
}

// compareRequest is the JSON payload for country comparison.
type compareRequest struct {
	Countries []string `json:"countries"`
}

// Compare handles POST /api/compare. Requested countries with no records
// come back in "not_found" rather than failing the request.
func (h *ReportHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Countries) == 0 {
		writeError(w, http.StatusBadRequest, "No countries provided")
		return
	}
	if len(req.Countries) > maxCompareCountries {
		writeError(w, http.StatusBadRequest, "Maximum 10 countries allowed")
		return
	}

	result, err := h.ReportService.Compare(r.Context(), req.Countries)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusBadRequest, "No countries provided")
			return
		}
		internalError(w, h.Log, "compare", err)
		return
	}
	if result.Comparison == nil {
		result.Comparison = []models.CountryAggregate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"comparison": result.Comparison,
		"not_found":  result.NotFound,
		"count":      len(result.Comparison),
	})
}

// addCaseRequest is the JSON payload for case submission. Pointer fields
// tell an absent value apart from an explicit zero.
type addCaseRequest struct {
	Country   string `json:"country"`
	Date      string `json:"date"`
	Confirmed *int64 `json:"confirmed"`
	Deaths    *int64 `json:"deaths"`
	Recovered *int64 `json:"recovered"`
	Active    *int64 `json:"active"`
}

// AddCase handles POST /api/add-case.
func (h *ReportHandler) AddCase(w http.ResponseWriter, r *http.Request) {
	var req addCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, false, "invalid request")
		return
	}
	if req.Country == "" || req.Confirmed == nil || req.Deaths == nil || req.Recovered == nil {
		writeResult(w, http.StatusBadRequest, false, "Missing required fields")
		return
	}

	_, err := h.ReportService.AddCase(r.Context(), service.AddCaseInput{
		Country:   req.Country,
		Date:      req.Date,
		Confirmed: *req.Confirmed,
		Deaths:    *req.Deaths,
		Recovered: *req.Recovered,
		Active:    req.Active,
	})
	switch {
	case err == nil:
		writeResult(w, http.StatusOK, true, "Case added successfully")
	case errors.Is(err, service.ErrValidation):
		writeResult(w, http.StatusBadRequest, false, err.Error())
	default:
		internalError(w, h.Log, "add case", err)
	}
}

// Statistics handles GET /api/statistics.
func (h *ReportHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ReportService.Statistics(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNoData) {
			writeError(w, http.StatusNotFound, "No data available")
			return
		}
		internalError(w, h.Log, "statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

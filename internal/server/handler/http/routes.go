package http

import (
	"net/http"

	"github.com/atinyakov/covidreport/internal/middleware"
	"github.com/atinyakov/covidreport/internal/token"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// reporting API. It applies JSON content-type enforcement and request
// logging, and mounts the public data endpoints alongside the token-gated
// profile and admin groups under /api.
//
// Parameters:
//
//	authHandler   - handler for registration, login, profile, and admin endpoints
//	reportHandler - handler for case data and aggregation endpoints
//	tokens        - session token manager used by the auth middleware
//	logger        - structured logger for request logging middleware
//
// Routes:
//
//	GET  /api/health                          → reportHandler.Health
//	POST /api/register                        → authHandler.Register
//	POST /api/login                           → authHandler.Login
//	GET  /api/countries                       → reportHandler.Countries
//	GET  /api/country/{name}                  → reportHandler.Country
//	GET  /api/global-summary                  → reportHandler.GlobalSummary
//	GET  /api/top-countries                   → reportHandler.TopCountries
//	GET  /api/export/top-countries            → reportHandler.ExportTopCountries
//	POST /api/compare                         → reportHandler.Compare
//	POST /api/add-case                        → reportHandler.AddCase
//	GET  /api/statistics                      → reportHandler.Statistics
//	GET  /api/profile                         → authHandler.Profile        (token)
//	PUT  /api/profile                         → authHandler.UpdateProfile  (token)
//	GET  /api/admin/users                     → authHandler.ListUsers      (token, admin)
//	POST /api/admin/users/{username}/active   → authHandler.SetActive      (token, admin)
//	GET  /api/admin/user-statistics           → authHandler.UserStatistics (token, admin)
func NewRouter(
	authHandler *AuthHandler,
	reportHandler *ReportHandler,
	tokens *token.Manager,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Mount API routes
	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Get("/health", reportHandler.Health)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Get("/countries", reportHandler.Countries)
		r.Get("/country/{name}", reportHandler.Country)
		r.Get("/global-summary", reportHandler.GlobalSummary)
		r.Get("/top-countries", reportHandler.TopCountries)
		r.Get("/export/top-countries", reportHandler.ExportTopCountries)
		r.Post("/compare", reportHandler.Compare)
		r.Post("/add-case", reportHandler.AddCase)
		r.Get("/statistics", reportHandler.Statistics)

		// Protected group: requires a valid session token
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(tokens))

			r.Get("/profile", authHandler.Profile)
			r.Put("/profile", authHandler.UpdateProfile)

			// Admin group: requires the admin role
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Get("/users", authHandler.ListUsers)
				r.Post("/users/{username}/active", authHandler.SetActive)
				r.Get("/user-statistics", authHandler.UserStatistics)
			})
		})
	})

	return r
}

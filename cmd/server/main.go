// Package main initializes and starts the COVID-19 reporting server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/covidreport/internal/config"
	"github.com/atinyakov/covidreport/internal/db"
	"github.com/atinyakov/covidreport/internal/logger"
	"github.com/atinyakov/covidreport/internal/repository"
	"github.com/atinyakov/covidreport/internal/server/handler/http"
	"github.com/atinyakov/covidreport/internal/service"
	"github.com/atinyakov/covidreport/internal/token"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port
	dbName := options.DatabaseDSN

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if options.JWTSecret == "" {
		zapLogger.Fatal("JWT_SECRET must be set")
	}

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(dbName)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Periodically log dataset counters.
	db.StartStatsReporter(context.Background(), postgresDB,
		time.Hour, // interval
		zapLogger,
	)

	// Initialize repositories for credentials and case records.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	caseRepo := repository.NewPostgresCaseRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo)
	reportService := service.NewReportService(caseRepo)

	// Seed the bootstrap admin account. The well-known default password is
	// a development convenience only and must be rotated in production.
	created, err := authService.SeedAdmin(context.Background(), options.AdminPassword)
	if err != nil {
		zapLogger.Fatal("cannot seed admin account", zap.Error(err))
	}
	if created && options.AdminPassword == config.DefaultAdminPassword {
		zapLogger.Error("admin account seeded with the default password; set ADMIN_PASSWORD and rotate it before exposing this server")
	}

	// Session token manager for login and protected routes.
	tokens := token.NewManager(options.JWTSecret, options.TokenTTL)

	// Create HTTP handlers for auth and reporting endpoints.
	authHandler := &http.AuthHandler{AuthService: authService, Tokens: tokens, Log: zapLogger}
	reportHandler := &http.ReportHandler{ReportService: reportService, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, reportHandler, tokens, zapLogger)

	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	// Serve over TLS when a certificate is configured, plain HTTP otherwise.
	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", addr))
		if err := server.ListenAndServeTLS(options.TLSCert, options.TLSKey); err != nil {
			zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
		}
		return
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}

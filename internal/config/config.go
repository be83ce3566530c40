// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config
// file, and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAdminPassword is the well-known bootstrap password used when no
// ADMIN_PASSWORD is configured. Deployments must rotate it immediately;
// startup logs an error when it is in effect.
const DefaultAdminPassword = "admin123"

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// LogLevel sets the logging verbosity ("Debug", "Info", "Warn", "Error").
	LogLevel string

	// JWTSecret signs session tokens. Required for the server to start.
	JWTSecret string

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration

	// AdminPassword is the bootstrap password for the seeded admin account.
	AdminPassword string

	// TLSCert and TLSKey are optional paths to a server certificate and
	// key. When both are set the server listens over HTTPS.
	TLSCert string
	TLSKey  string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.StringVar(&options.LogLevel, "l", "Info", "log level")
	flag.DurationVar(&options.TokenTTL, "token-ttl", 12*time.Hour, "session token lifetime")
	flag.StringVar(&options.TLSCert, "tls-cert", "", "path to TLS certificate (optional)")
	flag.StringVar(&options.TLSKey, "tls-key", "", "path to TLS key (optional)")
}

// Parse parses the command-line flags, config file, and environment
// variables to set configuration values. A .env file in the working
// directory is loaded first if present. It returns a pointer to the
// Options struct containing the parsed configuration values.
func Parse() *Options {
	// Load .env before reading the environment; absence is not an error.
	_ = godotenv.Load()

	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		options.JWTSecret = secret
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		options.AdminPassword = password
	}
	if cert := os.Getenv("TLS_CERT_FILE"); cert != "" {
		options.TLSCert = cert
	}
	if key := os.Getenv("TLS_KEY_FILE"); key != "" {
		options.TLSKey = key
	}

	if options.AdminPassword == "" {
		options.AdminPassword = DefaultAdminPassword
	}

	return options
}

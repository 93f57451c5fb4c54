// Package config provides configuration management for pos-journal sync.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Xero     XeroConfig
	Optomate OptomateConfig
	Storage  StorageConfig
	Sync     SyncConfig
	Debug    bool
}

// XeroConfig represents Xero API configuration.
type XeroConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	TokenURL     string
	APIURL       string
	RefreshToken string // only read by init-token
}

// OptomateConfig represents Optomate OData API configuration.
type OptomateConfig struct {
	APIBase  string
	Username string
	Password string
}

// StorageConfig represents local storage configuration.
type StorageConfig struct {
	DBPath          string
	ArchiveRoot     string
	ArchiveAccounts string
}

// SyncConfig represents settings of a sync run.
type SyncConfig struct {
	ReferenceTables string
	Timezone        string
	APIConcurrency  int
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
	}

	concurrency, err := parseIntEnv("API_CONCURRENCY", 2)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("API_CONCURRENCY must be at least 1, got %d", concurrency)
	}

	config := &Config{
		Xero: XeroConfig{
			ClientID:     os.Getenv("XERO_CLIENT_ID"),
			ClientSecret: os.Getenv("XERO_CLIENT_SECRET"),
			TenantID:     os.Getenv("XERO_TENANT_ID"),
			TokenURL:     getEnvOrDefault("XERO_TOKEN_URL", "https://identity.xero.com/connect/token"),
			APIURL:       strings.TrimRight(getEnvOrDefault("XERO_API_URL", "https://api.xero.com/api.xro/2.0"), "/"),
			RefreshToken: os.Getenv("XERO_REFRESH_TOKEN"),
		},
		Optomate: OptomateConfig{
			APIBase:  strings.TrimRight(os.Getenv("OPTOMATE_API_BASE"), "/"),
			Username: os.Getenv("OPTOMATE_USERNAME"),
			Password: os.Getenv("OPTOMATE_PASSWORD"),
		},
		Storage: StorageConfig{
			DBPath:          getEnvOrDefault("DB_PATH", "./data/pos-journal.db"),
			ArchiveRoot:     os.Getenv("ARCHIVE_ROOT"),
			ArchiveAccounts: os.Getenv("ARCHIVE_ACCOUNTS"),
		},
		Sync: SyncConfig{
			ReferenceTables: os.Getenv("REFERENCE_TABLES"),
			Timezone:        getEnvOrDefault("TRADING_TIMEZONE", "Australia/Sydney"),
			APIConcurrency:  concurrency,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate checks that all required fields are set.
// Each path is a section and key, e.g. []string{"xero", "tenantId"}.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "xero":
			switch path[1] {
			case "clientId":
				value = c.Xero.ClientID
			case "clientSecret":
				value = c.Xero.ClientSecret
			case "tenantId":
				value = c.Xero.TenantID
			case "tokenUrl":
				value = c.Xero.TokenURL
			case "apiUrl":
				value = c.Xero.APIURL
			case "refreshToken":
				value = c.Xero.RefreshToken
			}
		case "optomate":
			switch path[1] {
			case "apiBase":
				value = c.Optomate.APIBase
			case "username":
				value = c.Optomate.Username
			case "password":
				value = c.Optomate.Password
			}
		case "storage":
			switch path[1] {
			case "dbPath":
				value = c.Storage.DBPath
			case "archiveRoot":
				value = c.Storage.ArchiveRoot
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	TrueLayerClientID     string
	TrueLayerClientSecret string
	TrueLayerCode         string
	DBPath                string
	ImportInterval        time.Duration
	ImportURL             string
	ImportFrom            string
	ListenAddr            string
}

// Load reads configuration from environment variables and returns a validated Config.
// HORNBILL_TRUELAYER_CLIENT_ID and HORNBILL_TRUELAYER_CLIENT_SECRET are required.
// HORNBILL_TRUELAYER_CODE is the one-time authorization code, required only for
// first bootstrap. Optional variables with defaults:
// HORNBILL_DB_PATH (hornbill.db), HORNBILL_IMPORT_INTERVAL_SECONDS (3600),
// HORNBILL_IMPORT_URL (http://localhost:3000), HORNBILL_IMPORT_FROM (2025-11-01),
// HORNBILL_LISTEN_ADDR (127.0.0.1:8080).
func Load() (*Config, error) {
	clientID := os.Getenv("HORNBILL_TRUELAYER_CLIENT_ID")
	clientSecret := os.Getenv("HORNBILL_TRUELAYER_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("HORNBILL_TRUELAYER_CLIENT_ID and HORNBILL_TRUELAYER_CLIENT_SECRET must be set")
	}

	interval := 3600 * time.Second
	if v, ok := os.LookupEnv("HORNBILL_IMPORT_INTERVAL_SECONDS"); ok {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("HORNBILL_IMPORT_INTERVAL_SECONDS has invalid value %q", v)
		}
		interval = time.Duration(seconds) * time.Second
	}

	dbPath := "hornbill.db"
	if v, ok := os.LookupEnv("HORNBILL_DB_PATH"); ok {
		dbPath = v
	}

	importURL := "http://localhost:3000"
	if v, ok := os.LookupEnv("HORNBILL_IMPORT_URL"); ok {
		importURL = v
	}

	importFrom := "2025-11-01"
	if v, ok := os.LookupEnv("HORNBILL_IMPORT_FROM"); ok {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return nil, fmt.Errorf("HORNBILL_IMPORT_FROM has invalid date %q: %w", v, err)
		}
		importFrom = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("HORNBILL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	return &Config{
		TrueLayerClientID:     clientID,
		TrueLayerClientSecret: clientSecret,
		TrueLayerCode:         os.Getenv("HORNBILL_TRUELAYER_CODE"),
		DBPath:                dbPath,
		ImportInterval:        interval,
		ImportURL:             importURL,
		ImportFrom:            importFrom,
		ListenAddr:            listenAddr,
	}, nil
}

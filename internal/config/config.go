// Package config provides configuration helpers for go-voxhire commands.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default client configuration.
const (
	DefaultBackendURL    = "http://localhost:8000"
	DefaultDashboardPort = "8090"
)

// Load reads a .env file if present and returns the client configuration.
// Environment variables always win over .env entries.
func Load() Config {
	// Missing .env is fine; env vars are the source of truth.
	_ = godotenv.Load()

	return Config{
		BackendURL:    getenv("VOXHIRE_BACKEND_URL", DefaultBackendURL),
		AuthToken:     os.Getenv("VOXHIRE_AUTH_TOKEN"),
		DashboardPort: getenv("VOXHIRE_DASHBOARD_PORT", DefaultDashboardPort),
		LogLevel:      getenv("VOXHIRE_LOG_LEVEL", "info"),
		InterviewID:   os.Getenv("VOXHIRE_INTERVIEW_ID"),
	}
}

// Config holds client-wide settings sourced from the environment.
type Config struct {
	BackendURL    string
	AuthToken     string
	DashboardPort string
	LogLevel      string
	InterviewID   string
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("config: backend URL required")
	}
	if c.InterviewID == "" {
		return fmt.Errorf("config: interview ID required (set VOXHIRE_INTERVIEW_ID)")
	}
	return nil
}

// InterviewIDRequired returns the interview ID from VOXHIRE_INTERVIEW_ID.
// Exits with usage help if not set.
func InterviewIDRequired() string {
	id := os.Getenv("VOXHIRE_INTERVIEW_ID")
	if id == "" {
		fmt.Fprintln(os.Stderr, "Error: VOXHIRE_INTERVIEW_ID environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: VOXHIRE_INTERVIEW_ID=<uuid> go run ./cmd/interview")
		os.Exit(1)
	}
	return id
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetInt returns an integer env var or the fallback when unset or invalid.
func GetInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

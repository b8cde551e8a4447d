// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken       string
	WebhookSecret     string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	SecurityThreshold int
	SyncPageSize      int
	ListenAddr        string
	DBPath            string
}

// Load reads configuration from environment variables and returns a
// validated Config. A .env file in the working directory is read first
// when present; real environment variables win over it.
//
// Required: AUTOPATCH_GITHUB_TOKEN, AUTOPATCH_GITHUB_WEBHOOK_SECRET,
// AUTOPATCH_OPENAI_API_KEY. Optional with defaults:
// AUTOPATCH_OPENAI_BASE_URL (https://api.openai.com/v1),
// AUTOPATCH_OPENAI_MODEL (gpt-4o-mini), AUTOPATCH_SECURITY_THRESHOLD (80),
// AUTOPATCH_SYNC_PAGE_SIZE (20), AUTOPATCH_LISTEN_ADDR (127.0.0.1:4000),
// AUTOPATCH_DB_PATH (autopatch.db).
func Load() (*Config, error) {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()

	token := os.Getenv("AUTOPATCH_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("AUTOPATCH_GITHUB_TOKEN is required")
	}

	webhookSecret := os.Getenv("AUTOPATCH_GITHUB_WEBHOOK_SECRET")
	if webhookSecret == "" {
		return nil, fmt.Errorf("AUTOPATCH_GITHUB_WEBHOOK_SECRET is required")
	}

	openAIKey := os.Getenv("AUTOPATCH_OPENAI_API_KEY")
	if openAIKey == "" {
		return nil, fmt.Errorf("AUTOPATCH_OPENAI_API_KEY is required")
	}

	baseURL := "https://api.openai.com/v1"
	if v, ok := os.LookupEnv("AUTOPATCH_OPENAI_BASE_URL"); ok && v != "" {
		baseURL = v
	}

	openAIModel := "gpt-4o-mini"
	if v, ok := os.LookupEnv("AUTOPATCH_OPENAI_MODEL"); ok && v != "" {
		openAIModel = v
	}

	threshold := 80
	if v, ok := os.LookupEnv("AUTOPATCH_SECURITY_THRESHOLD"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("AUTOPATCH_SECURITY_THRESHOLD has invalid value %q: %w", v, err)
		}
		if parsed < 0 || parsed > 100 {
			return nil, fmt.Errorf("AUTOPATCH_SECURITY_THRESHOLD must be between 0 and 100, got %d", parsed)
		}
		threshold = parsed
	}

	pageSize := 20
	if v, ok := os.LookupEnv("AUTOPATCH_SYNC_PAGE_SIZE"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("AUTOPATCH_SYNC_PAGE_SIZE has invalid value %q: %w", v, err)
		}
		if parsed < 1 {
			return nil, fmt.Errorf("AUTOPATCH_SYNC_PAGE_SIZE must be positive, got %d", parsed)
		}
		pageSize = parsed
	}

	listenAddr := "127.0.0.1:4000"
	if v, ok := os.LookupEnv("AUTOPATCH_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "autopatch.db"
	if v, ok := os.LookupEnv("AUTOPATCH_DB_PATH"); ok {
		dbPath = v
	}

	return &Config{
		GitHubToken:       token,
		WebhookSecret:     webhookSecret,
		OpenAIAPIKey:      openAIKey,
		OpenAIBaseURL:     baseURL,
		OpenAIModel:       openAIModel,
		SecurityThreshold: threshold,
		SyncPageSize:      pageSize,
		ListenAddr:        listenAddr,
		DBPath:            dbPath,
	}, nil
}

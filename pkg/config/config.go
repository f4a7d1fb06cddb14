// Package config reads process settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/unowned-ai/quire/pkg/utils"
)

const (
	DefaultSyncMode = "FULL"
	DefaultLogLevel = "info"
	DefaultPageSize = 20
	DefaultTokenTTL = 24 * time.Hour
)

type Config struct {
	DBPath            string
	WAL               bool
	SyncMode          string
	LogLevel          string
	PageSize          int
	OwnerPasswordHash string
	TokenSecret       string
	TokenTTL          time.Duration
}

// Load reads the .env files given (".env" when none) if they exist, then builds a Config
// from QUIRE_* variables. Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		DBPath:            os.Getenv("QUIRE_DB"),
		SyncMode:          strings.ToUpper(getEnv("QUIRE_SYNC", DefaultSyncMode)),
		LogLevel:          getEnv("QUIRE_LOG_LEVEL", DefaultLogLevel),
		OwnerPasswordHash: os.Getenv("QUIRE_OWNER_PASSWORD_HASH"),
		TokenSecret:       os.Getenv("QUIRE_TOKEN_SECRET"),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = utils.GetDefaultDBPath()
	}

	var err error
	if cfg.WAL, err = strconv.ParseBool(getEnv("QUIRE_WAL", "true")); err != nil {
		return nil, fmt.Errorf("invalid QUIRE_WAL: %w", err)
	}
	if cfg.PageSize, err = strconv.Atoi(getEnv("QUIRE_PAGE_SIZE", strconv.Itoa(DefaultPageSize))); err != nil {
		return nil, fmt.Errorf("invalid QUIRE_PAGE_SIZE: %w", err)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("invalid QUIRE_PAGE_SIZE: must be positive, got %d", cfg.PageSize)
	}
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("QUIRE_TOKEN_TTL", DefaultTokenTTL.String())); err != nil {
		return nil, fmt.Errorf("invalid QUIRE_TOKEN_TTL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

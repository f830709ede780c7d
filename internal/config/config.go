package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration values loaded from environment
// variables.
type Config struct {
	DatabaseURL     string // empty: fall back to the in-memory store
	HTTPPort        string
	JWTSecret       string
	TokenExpiration time.Duration
	EncryptionKey   []byte // optional; 32 raw bytes for AES-256 when set
	SlackWebhookURL string // optional hand-off notifications
	AllowedOrigins  []string

	// Seed agent created at boot when no agent with that email exists.
	SeedAgentEmail    string
	SeedAgentPassword string
	SeedAgentName     string
}

// LoadConfig loads configuration from environment variables. It looks for
// a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using environment variables only")
	}

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", "default-super-secret-key"), // CHANGE THIS IN PRODUCTION!
		SlackWebhookURL:   os.Getenv("SLACK_WEBHOOK_URL"),
		SeedAgentEmail:    os.Getenv("SEED_AGENT_EMAIL"),
		SeedAgentPassword: os.Getenv("SEED_AGENT_PASSWORD"),
		SeedAgentName:     getEnv("SEED_AGENT_NAME", "Events Team"),
	}

	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	tokenExpStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	tokenExpHours, err := strconv.Atoi(tokenExpStr)
	if err != nil {
		log.Warn().Str("value", tokenExpStr).Msg("invalid JWT_EXPIRATION_HOURS, using default 24h")
		tokenExpHours = 24
	}
	cfg.TokenExpiration = time.Hour * time.Duration(tokenExpHours)

	// The encryption key is optional (leads store plain digits without it)
	// but must be well-formed when present: 64 hex characters for 32 bytes.
	if keyHex := os.Getenv("ENCRYPTION_KEY"); keyHex != "" {
		keyBytes, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ENCRYPTION_KEY from hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes (64 hex characters), got %d bytes", len(keyBytes))
		}
		cfg.EncryptionKey = keyBytes
	}

	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory store (data will not survive restarts)")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

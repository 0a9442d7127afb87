package config

import (
	"fmt"
	"strings"
	"time"

	sharedauth "github.com/tightbudget/gamification-service/shared/auth"
	"github.com/tightbudget/gamification-service/shared/envconfig"
)

// Config encapsulates the runtime configuration for the gamification service.
type Config struct {
	Port         string `validate:"required,numeric"`
	GCPProjectID string
	DataStore    DataStore `validate:"oneof=memory firestore"`
	Timezone     string    `validate:"required"`
	Location     *time.Location
	Auth         AuthConfig
	Firestore    FirestoreConfig
	Redis        RedisConfig
	Leaderboard  LeaderboardConfig
	Storage      StorageConfig
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps progress in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores progress in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     sharedauth.Mode `validate:"oneof=clerk noop"`
	JWKSURL  string          `validate:"omitempty,url"`
	Audience string
	Issuer   string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	Database     string
	EmulatorHost string
}

// RedisConfig enables the leaderboard cache and cross-instance celebration fan-out.
type RedisConfig struct {
	URL string `validate:"omitempty,url"`
}

// LeaderboardConfig tunes leaderboard queries.
type LeaderboardConfig struct {
	CacheTTL time.Duration `validate:"gte=0"`
	MaxLimit int           `validate:"gte=1,lte=500"`
}

// StorageConfig contains Cloud Storage settings for leaderboard snapshots.
type StorageConfig struct {
	Bucket string
}

// Load reads .env (when present) and environment variables into Config with validation.
func Load() (Config, error) {
	if err := envconfig.LoadDotEnv(); err != nil {
		return Config{}, err
	}

	cacheTTL, err := envconfig.GetDuration("LEADERBOARD_CACHE_TTL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	maxLimit, err := envconfig.GetInt("LEADERBOARD_MAX_LIMIT", 100)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:    DataStore(strings.ToLower(envconfig.Get("DATASTORE", string(DataStoreMemory)))),
		Timezone:     envconfig.Get("TIMEZONE", "Africa/Johannesburg"),
		Auth: AuthConfig{
			Mode:     sharedauth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(sharedauth.ModeNoop)))),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:   envconfig.Get("CLERK_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			Database:     envconfig.Get("FIRESTORE_DATABASE", ""),
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
		},
		Redis: RedisConfig{
			URL: envconfig.Get("REDIS_URL", ""),
		},
		Leaderboard: LeaderboardConfig{
			CacheTTL: cacheTTL,
			MaxLimit: maxLimit,
		},
		Storage: StorageConfig{
			Bucket: envconfig.Get("SNAPSHOT_BUCKET", ""),
		},
	}

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.DataStore == DataStoreFirestore && cfg.GCPProjectID == "" {
		return fmt.Errorf("gcp project id required when datastore=firestore")
	}

	if cfg.Auth.Mode == sharedauth.ModeClerk && cfg.Auth.JWKSURL == "" {
		return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
	}

	return nil
}

package config

import (
	"strings"
	"testing"
	"time"

	sharedauth "github.com/tightbudget/gamification-service/shared/auth"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":                  "",
		"DATASTORE":             "",
		"AUTH_MODE":             "",
		"TIMEZONE":              "",
		"LEADERBOARD_CACHE_TTL": "",
		"LEADERBOARD_MAX_LIMIT": "",
		"REDIS_URL":             "",
		"SNAPSHOT_BUCKET":       "",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.DataStore != DataStoreMemory || cfg.Auth.Mode != sharedauth.ModeNoop {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Leaderboard.CacheTTL != 30*time.Second || cfg.Leaderboard.MaxLimit != 100 {
		t.Fatalf("unexpected leaderboard defaults: %+v", cfg.Leaderboard)
	}
	if cfg.Location == nil || cfg.Location.String() != "Africa/Johannesburg" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown datastore", map[string]string{"DATASTORE": "postgres"}, "DataStore"},
		{"firestore without project", map[string]string{"DATASTORE": "firestore", "GCP_PROJECT_ID": ""}, "gcp project id"},
		{"clerk without jwks", map[string]string{"AUTH_MODE": "clerk", "CLERK_JWKS_URL": ""}, "CLERK_JWKS_URL"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"bad ttl", map[string]string{"LEADERBOARD_CACHE_TTL": "soon"}, "LEADERBOARD_CACHE_TTL"},
		{"limit too large", map[string]string{"LEADERBOARD_MAX_LIMIT": "5000"}, "MaxLimit"},
		{"bad redis url", map[string]string{"REDIS_URL": "not a url"}, "URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_Firestore(t *testing.T) {
	setEnv(t, map[string]string{
		"DATASTORE":          "firestore",
		"GCP_PROJECT_ID":     "tightbudget-dev",
		"FIRESTORE_DATABASE": "gamification",
		"TIMEZONE":           "UTC",
		"AUTH_MODE":          "clerk",
		"CLERK_JWKS_URL":     "https://clerk.example.com/.well-known/jwks.json",
		"SNAPSHOT_BUCKET":    "tb-snapshots",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Firestore.Database != "gamification" || cfg.Storage.Bucket != "tb-snapshots" || cfg.Location != time.UTC {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

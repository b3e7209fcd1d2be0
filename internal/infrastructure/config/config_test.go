package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "0123456789abcdef0123",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" || !cfg.IsDevelopment() {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("expected 1h token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.Store.Driver != DriverMongo || cfg.Store.MaxOpenConns != 10 || cfg.Store.AcquireTimeout != 5*time.Second {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Login.MaxAttempts != 5 || cfg.Login.Window != 15*time.Minute {
		t.Fatalf("unexpected login defaults: %+v", cfg.Login)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis defaults: %+v", cfg.Redis)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":    "0123456789abcdef0123",
		"STORE_DRIVER":  "sqlite",
		"SQLITE_PATH":   "/tmp/x.db",
		"TOKEN_TTL":     "15m",
		"REDIS_ENABLED": "false",
		"AUDIT_WORKERS": "0",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.SQLite.Path != "/tmp/x.db" {
		t.Fatalf("unexpected store config: %+v %+v", cfg.Store, cfg.SQLite)
	}
	if cfg.TokenTTL != 15*time.Minute || cfg.Redis.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Audit.Workers != 1 {
		t.Fatalf("expected workers clamped to 1, got %d", cfg.Audit.Workers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"short secret":   {"JWT_SECRET": "short"},
		"bad driver":     {"JWT_SECRET": "0123456789abcdef0123", "STORE_DRIVER": "postgres"},
		"bad ttl":        {"JWT_SECRET": "0123456789abcdef0123", "TOKEN_TTL": "-1m"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.HasPrefix(err.Error(), "config:") {
				t.Fatalf("unexpected error format: %v", err)
			}
		})
	}
}

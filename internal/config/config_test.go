package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("PAYMENT_CURRENCY", "")
	t.Setenv("FLW_REDIRECT_URL", "")
	t.Setenv("BASE_URL", "https://rent.example.com/")

	cfg := Load()

	if cfg.Server.Port != "3000" {
		t.Errorf("expected default port 3000, got %s", cfg.Server.Port)
	}
	if cfg.Payment.Currency != "NGN" {
		t.Errorf("expected default currency NGN, got %s", cfg.Payment.Currency)
	}
	if got := cfg.CallbackURL(); got != "https://rent.example.com/api/payment/callback" {
		t.Errorf("unexpected callback url %q", got)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PORT", "")
	t.Setenv("FLW_REDIRECT_URL", "https://pay.example.com/done")
	t.Setenv("RENTAL_LOCK_TTL", "3s")
	t.Setenv("RENTAL_RELEASE_INTERVAL", "0s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	if cfg.Server.Port != "9090" {
		t.Errorf("expected SERVER_PORT fallback, got %s", cfg.Server.Port)
	}
	if got := cfg.CallbackURL(); got != "https://pay.example.com/done" {
		t.Errorf("expected explicit redirect url, got %q", got)
	}
	if cfg.Rental.LockTTL != 3*time.Second {
		t.Errorf("expected lock ttl 3s, got %s", cfg.Rental.LockTTL)
	}
	if cfg.Rental.ReleaseInterval != 0 {
		t.Errorf("expected release sweeper disabled, got %s", cfg.Rental.ReleaseInterval)
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("expected invalid REDIS_DB to fall back to 0, got %d", cfg.Redis.DB)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "cars", SSLMode: "disable"}
	if got := c.DSN(); got != "host=db port=5432 user=u password=p dbname=cars sslmode=disable" {
		t.Errorf("unexpected dsn %q", got)
	}

	c.URL = "postgres://u:p@db/cars"
	if got := c.DSN(); got != "postgres://u:p@db/cars" {
		t.Errorf("expected URL to win, got %q", got)
	}
}

func TestGetListEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	got := getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"})
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Errorf("unexpected origins %v", got)
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	if got := getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}); len(got) != 1 || got[0] != "*" {
		t.Errorf("expected default origins, got %v", got)
	}
}

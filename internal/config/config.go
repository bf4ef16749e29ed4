package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Rental   RentalConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	BaseURL        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL configuration.
// URL takes precedence over the individual fields when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the connection string for lib/pq.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User +
		" password=" + c.Password + " dbname=" + c.DBName + " sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
}

// PaymentConfig holds Flutterwave settings.
type PaymentConfig struct {
	BaseURL     string
	SecretKey   string
	SecretHash  string // expected value of the webhook verif-hash header
	RedirectURL string
	Currency    string
	Timeout     time.Duration
}

// RentalConfig holds booking settings.
type RentalConfig struct {
	LockTTL         time.Duration
	ReleaseInterval time.Duration // 0 disables the release sweeper
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	CarsTTL time.Duration // 0 disables the car listing cache
}

// CallbackURL returns the redirect target handed to the payment gateway.
func (c *Config) CallbackURL() string {
	if c.Payment.RedirectURL != "" {
		return c.Payment.RedirectURL
	}
	return strings.TrimSuffix(c.Server.BaseURL, "/") + "/api/payment/callback"
}

// Load loads configuration from a .env file, if present, and environment variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", getEnv("SERVER_PORT", "3000")),
			BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "car_rental"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "car-rental-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Payment: PaymentConfig{
			BaseURL:     getEnv("FLW_BASE_URL", "https://api.flutterwave.com/v3"),
			SecretKey:   getEnv("FLW_SECRET_KEY", ""),
			SecretHash:  getEnv("FLW_SECRET_HASH", ""),
			RedirectURL: getEnv("FLW_REDIRECT_URL", ""),
			Currency:    getEnv("PAYMENT_CURRENCY", "NGN"),
			Timeout:     getDurationEnv("PAYMENT_TIMEOUT", 15*time.Second),
		},
		Rental: RentalConfig{
			LockTTL:         getDurationEnv("RENTAL_LOCK_TTL", 10*time.Second),
			ReleaseInterval: getDurationEnv("RENTAL_RELEASE_INTERVAL", time.Hour),
		},
		Cache: CacheConfig{
			CarsTTL: getDurationEnv("CARS_CACHE_TTL", 30*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv reads a comma-separated list, dropping empty entries.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

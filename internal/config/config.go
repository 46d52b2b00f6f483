// Package config centralizes application configuration loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Providers ProvidersConfig
	Search    SearchConfig
}

type ServerConfig struct {
	Port    string
	BaseURL string
}

type DatabaseConfig struct {
	Path string
}

type SessionConfig struct {
	SigningKey         string
	TokenTTL           time.Duration
	StateEncryptionKey string
	StateHMACKey       string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
}

func (p ProviderConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type ProvidersConfig struct {
	GitHub ProviderConfig
	Google ProviderConfig
}

type SearchConfig struct {
	BackendURL string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{
		Port:    getEnv("PORT", "3000"),
		BaseURL: getEnv("BASE_URL", "http://localhost:3000"),
	}

	database := DatabaseConfig{
		Path: getEnv("DATABASE_PATH", "docgate.db"),
	}

	session, err := buildSessionConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimit, err := buildRateLimitConfig()
	if err != nil {
		return Config{}, err
	}

	redis, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	providers := ProvidersConfig{
		GitHub: ProviderConfig{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		},
		Google: ProviderConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		},
	}

	search := SearchConfig{
		BackendURL: getEnv("SEARCH_BACKEND_URL", "http://localhost:8000"),
	}

	return Config{
		Server:    server,
		Database:  database,
		Session:   session,
		RateLimit: rateLimit,
		Redis:     redis,
		Providers: providers,
		Search:    search,
	}, nil
}

func buildSessionConfig() (SessionConfig, error) {
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if strings.TrimSpace(signingKey) == "" {
		return SessionConfig{}, fmt.Errorf("JWT_SIGNING_KEY is required")
	}

	ttlHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "168"))
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid TOKEN_TTL_HOURS: %w", err)
	}

	encryptionKey := os.Getenv("STATE_ENCRYPTION_KEY")
	if len(encryptionKey) != 32 {
		return SessionConfig{}, fmt.Errorf("STATE_ENCRYPTION_KEY must be 32 bytes")
	}

	hmacKey := os.Getenv("STATE_HMAC_KEY")
	if strings.TrimSpace(hmacKey) == "" {
		return SessionConfig{}, fmt.Errorf("STATE_HMAC_KEY is required")
	}

	return SessionConfig{
		SigningKey:         signingKey,
		TokenTTL:           time.Duration(ttlHours) * time.Hour,
		StateEncryptionKey: encryptionKey,
		StateHMACKey:       hmacKey,
	}, nil
}

func buildRateLimitConfig() (RateLimitConfig, error) {
	maxRequests, err := strconv.Atoi(getEnv("RATE_LIMIT_MAX_REQUESTS", "5"))
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_MAX_REQUESTS: %w", err)
	}

	windowSeconds, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW_SECONDS: %w", err)
	}

	return RateLimitConfig{
		MaxRequests: maxRequests,
		Window:      time.Duration(windowSeconds) * time.Second,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

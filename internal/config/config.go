package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateBudget caps requests per identity for one endpoint class.
type RateBudget struct {
	Requests int
	Window   time.Duration
}

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	SecretKey            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	VerifyTokenTTL       time.Duration
	LockoutThreshold     int
	LockoutDuration      time.Duration
	StoreTimeout         time.Duration
	AdminEmail           string
	AdminPassword        string
	ServiceName          string
	ThrottleRPM          int
	LoginRate            RateBudget
	RegisterRate         RateBudget
	RefreshRate          RateBudget
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return Config{}, fmt.Errorf("SECRET_KEY is required")
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		SecretKey:            secret,
		AccessTokenTTL:       getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		VerifyTokenTTL:       getDuration("VERIFY_TOKEN_TTL", 24*time.Hour),
		LockoutThreshold:     getInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:      getDuration("LOCKOUT_DURATION", 15*time.Minute),
		StoreTimeout:         getDuration("STORE_TIMEOUT", 3*time.Second),
		AdminEmail:           strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		ServiceName:          getEnv("SERVICE_NAME", "secure-auth-service"),
		ThrottleRPM:          getInt("THROTTLE_RPM", 600),
		LoginRate:            getRate("RATE_LIMIT_LOGIN", RateBudget{Requests: 5, Window: time.Minute}),
		RegisterRate:         getRate("RATE_LIMIT_REGISTER", RateBudget{Requests: 3, Window: time.Minute}),
		RefreshRate:          getRate("RATE_LIMIT_REFRESH", RateBudget{Requests: 10, Window: time.Minute}),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if len(cfg.SecretKey) < 32 {
		return Config{}, fmt.Errorf("SECRET_KEY must be at least 32 bytes")
	}
	if cfg.LockoutThreshold < 1 {
		cfg.LockoutThreshold = 5
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

// getRate parses "N/window" values such as "5/1m" or "100/1h".
func getRate(key string, def RateBudget) RateBudget {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parts := strings.SplitN(v, "/", 2)
	if len(parts) != 2 {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || n < 1 {
		return def
	}
	window, err := time.ParseDuration(strings.TrimSpace(parts[1]))
	if err != nil || window <= 0 {
		return def
	}
	return RateBudget{Requests: n, Window: window}
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}

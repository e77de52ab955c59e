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
	Port     string
	Env      string
	LogLevel string
	LogFile  string
	Timezone string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	GCPProjectID string
	GCPLocation  string
	VertexModel  string
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration

	FirebaseProjectID string
	AuthDevFallback   bool
	AuthJWTSecret     string

	SessionTTL        time.Duration
	SessionMaxEntries int

	Photos PhotoConfig

	CORSAllowedOrigins []string
}

type PhotoConfig struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

func (p PhotoConfig) Enabled() bool { return p.Endpoint != "" }

// Load reads .env (if present) and then the process environment, which wins.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     firstNonEmpty(env("API_PORT"), env("PORT"), "3001"),
		Env:      firstNonEmpty(env("APP_ENV"), "local"),
		LogLevel: firstNonEmpty(env("LOG_LEVEL"), "info"),
		LogFile:  env("LOG_FILE"),
		Timezone: env("TIMEZONE"),

		DBHost:     env("DB_HOST"),
		DBPort:     intOr("DB_PORT", 5432),
		DBUser:     env("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     env("DB_NAME"),

		GCPProjectID: env("GCP_PROJECT_ID"),
		GCPLocation:  firstNonEmpty(env("GCP_LOCATION"), "us-central1"),
		VertexModel:  firstNonEmpty(env("VERTEX_MODEL"), "gemini-2.5-pro"),
		GeminiAPIKey: firstNonEmpty(env("GEMINI_API_KEY"), env("VITE_GEMINI_API_KEY")),
		GeminiModel:  firstNonEmpty(env("GEMINI_MODEL"), "gemini-2.0-flash"),
		AITimeout:    durationOr("AI_TIMEOUT", 0),

		FirebaseProjectID: firstNonEmpty(env("FIREBASE_PROJECT_ID"), env("VITE_FIREBASE_PROJECT_ID")),
		AuthDevFallback:   boolOr("AUTH_DEV_FALLBACK", true),
		AuthJWTSecret:     env("AUTH_JWT_SECRET"),

		SessionTTL:        durationOr("SESSION_TTL", 15*time.Minute),
		SessionMaxEntries: intOr("SESSION_MAX_ENTRIES", 256),

		Photos: PhotoConfig{
			Endpoint:      env("PHOTO_S3_ENDPOINT"),
			Region:        firstNonEmpty(env("PHOTO_S3_REGION"), "us-east-1"),
			AccessKey:     firstNonEmpty(env("PHOTO_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
			SecretKey:     firstNonEmpty(env("PHOTO_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
			Bucket:        firstNonEmpty(env("PHOTO_S3_BUCKET"), "plantpal-photos"),
			UseSSL:        boolOr("PHOTO_S3_USE_SSL", false),
			PublicBaseURL: env("PHOTO_S3_PUBLIC_URL"),
		},

		CORSAllowedOrigins: splitList(firstNonEmpty(env("CORS_ALLOWED_ORIGINS"), "*")),
	}
}

// UsePostgres reports whether a database is configured; without one the
// service keeps everything in memory.
func (c *Config) UsePostgres() bool { return c.DBHost != "" }

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// DevTokensEnabled reports whether POST /api/dev/token may mint tokens.
// Never in production, where anyone could impersonate any user.
func (c *Config) DevTokensEnabled() bool {
	return c.AuthJWTSecret != "" && c.Env != "production"
}

func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Location resolves TIMEZONE; due dates are computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intOr(key string, def int) int {
	n, err := strconv.Atoi(env(key))
	if err != nil {
		return def
	}
	return n
}

func boolOr(key string, def bool) bool {
	b, err := strconv.ParseBool(env(key))
	if err != nil {
		return def
	}
	return b
}

// durationOr accepts Go durations ("30s") and bare seconds ("30").
func durationOr(key string, def time.Duration) time.Duration {
	raw := env(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Config struct {
	Port            string
	DBURL           string
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	NATSURL      string
	NATSCred     string
	NATSUser     string
	NATSPassword string

	StoreBackend string
	GCPProject   string

	LogLevel string
	LogFile  string

	SendRatePerMin int
	AuthRatePerMin int
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// Load reads a .env file, when present, into the process environment and
// then parses it.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(osEnv{})
}

// FromEnv parses the configuration from env.
func FromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:            "8080",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		StoreBackend:    BackendPostgres,
		LogLevel:        "info",
		SendRatePerMin:  30,
		AuthRatePerMin:  10,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", raw)
		}
		cfg.Port = raw
	}

	cfg.JWTSecret = env.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTIssuer = env.Getenv("JWT_ISS")

	if raw := env.Getenv("STORE_BACKEND"); raw != "" {
		cfg.StoreBackend = strings.ToLower(raw)
	}

	cfg.DBURL = env.Getenv("DB_URL")
	cfg.NATSURL = env.Getenv("NATS_URL")
	cfg.NATSCred = env.Getenv("NATS_CRED")
	cfg.NATSUser = env.Getenv("NATS_USER")
	cfg.NATSPassword = env.Getenv("NATS_PASSWORD")
	cfg.GCPProject = env.Getenv("GCP_PROJECT")

	// Accounts and refresh tokens live in Postgres whatever the store.
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendPostgres:
	case BackendFirestore:
		if cfg.GCPProject == "" {
			return Config{}, fmt.Errorf("GCP_PROJECT is required for the firestore backend")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	cfg.LogFile = env.Getenv("LOG_FILE")

	var err error
	if cfg.SendRatePerMin, err = intVar(env, "SEND_RATE_PER_MIN", cfg.SendRatePerMin); err != nil {
		return Config{}, err
	}
	if cfg.AuthRatePerMin, err = intVar(env, "AUTH_RATE_PER_MIN", cfg.AuthRatePerMin); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func intVar(env Env, key string, def int) (int, error) {
	raw := env.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

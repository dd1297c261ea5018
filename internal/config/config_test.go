package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func base() mapEnv {
	return mapEnv{"JWT_SECRET": "secret", "DB_URL": "postgres://localhost/huddle"}
}

func with(kv ...string) mapEnv {
	env := base()
	for i := 0; i+1 < len(kv); i += 2 {
		env[kv[i]] = kv[i+1]
	}
	return env
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(base())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.SendRatePerMin)
	assert.Equal(t, 10, cfg.AuthRatePerMin)
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     mapEnv
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{name: "missing_secret", env: mapEnv{"DB_URL": "x"}, wantErr: true},
		{name: "missing_db_url", env: mapEnv{"JWT_SECRET": "x"}, wantErr: true},
		{name: "bad_port", env: with("PORT", "99999"), wantErr: true},
		{name: "bad_backend", env: with("STORE_BACKEND", "redis"), wantErr: true},
		{name: "firestore_without_project", env: with("STORE_BACKEND", "firestore"), wantErr: true},
		{name: "negative_rate", env: with("SEND_RATE_PER_MIN", "-1"), wantErr: true},
		{
			name: "overrides",
			env: with(
				"PORT", "3000",
				"STORE_BACKEND", "Firestore",
				"GCP_PROJECT", "huddle-dev",
				"LOG_LEVEL", "DEBUG",
				"SEND_RATE_PER_MIN", "0",
				"NATS_URL", "nats://localhost:4222",
				"JWT_ISS", "huddle",
			),
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "3000", cfg.Port)
				assert.Equal(t, BackendFirestore, cfg.StoreBackend)
				assert.Equal(t, "huddle-dev", cfg.GCPProject)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Zero(t, cfg.SendRatePerMin)
				assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
				assert.Equal(t, "huddle", cfg.JWTIssuer)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := FromEnv(tc.env)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

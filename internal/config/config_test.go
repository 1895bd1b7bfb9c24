package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("NEO4J_URI", "neo4j://localhost:7687")
	t.Setenv("NEO4J_PASSWORD", "password")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "neo4j", cfg.Username)
	assert.Equal(t, "northwind", cfg.Database)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.Encrypted)
	assert.False(t, cfg.ReadOnly)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Duration(0), cfg.ProjectionMaxAge)
	assert.True(t, cfg.EngineBreakerEnabled)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("NEO4J_DATABASE", "supplychain")
	t.Setenv("NEO4J_ENCRYPTED", "true")
	t.Setenv("NEO4J_READ_ONLY", "1")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("PROJECTION_MAX_AGE", "15m")
	t.Setenv("PROJECTION_CONFIG_DIR", "/etc/projections")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://example.com ,")
	t.Setenv("ENGINE_BREAKER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "supplychain", cfg.Database)
	assert.True(t, cfg.Encrypted)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 15*time.Minute, cfg.ProjectionMaxAge)
	assert.Equal(t, "/etc/projections", cfg.ProjectionConfigDir)
	assert.Equal(t, []string{"http://localhost:5173", "https://example.com"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.EngineBreakerEnabled)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing uri",
			env:  map[string]string{"NEO4J_URI": "", "NEO4J_PASSWORD": "pw"},
			want: "NEO4J_URI (required)",
		},
		{
			name: "missing password",
			env:  map[string]string{"NEO4J_URI": "neo4j://localhost:7687", "NEO4J_PASSWORD": ""},
			want: "NEO4J_PASSWORD (required)",
		},
		{
			name: "bad port",
			env:  map[string]string{"NEO4J_URI": "neo4j://localhost:7687", "NEO4J_PASSWORD": "pw", "PORT": "http"},
			want: "invalid PORT",
		},
		{
			name: "port out of range",
			env:  map[string]string{"NEO4J_URI": "neo4j://localhost:7687", "NEO4J_PASSWORD": "pw", "PORT": "70000"},
			want: "PORT (max)",
		},
		{
			name: "bad duration",
			env:  map[string]string{"NEO4J_URI": "neo4j://localhost:7687", "NEO4J_PASSWORD": "pw", "PROJECTION_MAX_AGE": "soon"},
			want: "invalid PROJECTION_MAX_AGE",
		},
		{
			name: "unknown log level",
			env:  map[string]string{"NEO4J_URI": "neo4j://localhost:7687", "NEO4J_PASSWORD": "pw", "LOG_LEVEL": "verbose"},
			want: "LOG_LEVEL (oneof)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDriverURI(t *testing.T) {
	tests := []struct {
		name      string
		uri       string
		encrypted bool
		trustAll  bool
		want      string
	}{
		{name: "plain", uri: "neo4j://localhost:7687", want: "neo4j://localhost:7687"},
		{name: "encrypted neo4j", uri: "neo4j://localhost:7687", encrypted: true, want: "neo4j+s://localhost:7687"},
		{name: "encrypted bolt", uri: "bolt://db:7687", encrypted: true, want: "bolt+s://db:7687"},
		{name: "already secure", uri: "neo4j+s://demo.neo4jlabs.com", encrypted: true, want: "neo4j+s://demo.neo4jlabs.com"},
		{name: "self signed", uri: "neo4j://localhost:7687", encrypted: true, trustAll: true, want: "neo4j+ssc://localhost:7687"},
		{name: "trust all without encryption", uri: "bolt://db:7687", trustAll: true, want: "bolt://db:7687"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{URI: tt.uri, Encrypted: tt.encrypted, TrustAllCertificates: tt.trustAll}
			assert.Equal(t, tt.want, cfg.DriverURI())
		})
	}
}

func TestLoadUsernameFallback(t *testing.T) {
	t.Run("legacy NEO4J_USER", func(t *testing.T) {
		setRequired(t)
		t.Setenv("NEO4J_USER", "supplychain")
		t.Setenv("NEO4J_TRUST_ALL_CERTIFICATES", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "supplychain", cfg.Username)
		assert.True(t, cfg.TrustAllCertificates)
	})

	t.Run("NEO4J_USERNAME wins", func(t *testing.T) {
		setRequired(t)
		t.Setenv("NEO4J_USER", "legacy")
		t.Setenv("NEO4J_USERNAME", "reader")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "reader", cfg.Username)
	})
}

// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the runtime configuration.
type Config struct {
	// Neo4j connection
	URI       string `validate:"required,uri"`
	Username  string `validate:"required"`
	Password  string `validate:"required"`
	Database  string `validate:"required"`
	Encrypted bool

	// TrustAllCertificates skips certificate verification on encrypted
	// connections (self-signed servers).
	TrustAllCertificates bool

	// HTTP
	Port               int `validate:"min=1,max=65535"`
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration `validate:"min=0"`

	// ReadOnly hides MCP tools that mutate engine state.
	ReadOnly bool

	// Logging
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`

	// Projections
	ProjectionMaxAge    time.Duration `validate:"min=0"`
	ProjectionConfigDir string

	// Telemetry
	AnalyticsEndpoint    string `validate:"omitempty,url"`
	EngineBreakerEnabled bool
}

var validate = validator.New()

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	port, err := getEnvInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	maxAge, err := getEnvDuration("PROJECTION_MAX_AGE", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		URI:       os.Getenv("NEO4J_URI"),
		Username:  getEnv("NEO4J_USERNAME", getEnv("NEO4J_USER", "neo4j")),
		Password:  os.Getenv("NEO4J_PASSWORD"),
		Database:  getEnv("NEO4J_DATABASE", "northwind"),
		Encrypted: getEnvBool("NEO4J_ENCRYPTED", false),

		TrustAllCertificates: getEnvBool("NEO4J_TRUST_ALL_CERTIFICATES", false),

		Port:               port,
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RequestTimeout:     requestTimeout,

		ReadOnly: getEnvBool("NEO4J_READ_ONLY", false),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		ProjectionMaxAge:    maxAge,
		ProjectionConfigDir: os.Getenv("PROJECTION_CONFIG_DIR"),

		AnalyticsEndpoint:    os.Getenv("ANALYTICS_ENDPOINT"),
		EngineBreakerEnabled: getEnvBool("ENGINE_BREAKER_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values are present and well formed.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", envName(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// DriverURI returns URI, upgrading a plain neo4j or bolt scheme to its
// TLS variant when Encrypted is set: +s verifies the server certificate,
// +ssc accepts any when TrustAllCertificates is set.
func (c *Config) DriverURI() string {
	if !c.Encrypted {
		return c.URI
	}
	suffix := "+s"
	if c.TrustAllCertificates {
		suffix = "+ssc"
	}
	for _, scheme := range []string{"neo4j", "bolt"} {
		if strings.HasPrefix(c.URI, scheme+"://") {
			return scheme + suffix + strings.TrimPrefix(c.URI, scheme)
		}
	}
	return c.URI
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var envNames = map[string]string{
	"URI":               "NEO4J_URI",
	"Username":          "NEO4J_USERNAME",
	"Password":          "NEO4J_PASSWORD",
	"Database":          "NEO4J_DATABASE",
	"Port":              "PORT",
	"RequestTimeout":    "REQUEST_TIMEOUT",
	"LogLevel":          "LOG_LEVEL",
	"LogFormat":         "LOG_FORMAT",
	"ProjectionMaxAge":  "PROJECTION_MAX_AGE",
	"AnalyticsEndpoint": "ANALYTICS_ENDPOINT",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return field
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

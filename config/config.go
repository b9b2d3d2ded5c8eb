package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jntagengwa/pathway/internal/shared"
	"github.com/jntagengwa/pathway/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// AuthConfig holds the entry guard and claims mapping configuration
type AuthConfig struct {
	// DevMode enables the debug identity. Rejected in production.
	DevMode        bool
	DebugToken     string
	ClaimNamespace string
	IdentityIssuer string
	TenantHeader   string
	OrgHeader      string
	JWKS           JWKSConfig
}

// JWKSConfig holds signature verification settings. An empty URL means
// tokens are decoded without verification.
type JWKSConfig struct {
	URL          string
	Issuer       string
	Audience     string
	CacheTTL     time.Duration
	Timeout      time.Duration
	KeyCacheSize int
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"required,oneof=debug info warn error"`
	LogFormat string `validate:"required,oneof=json console"`
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Auth: AuthConfig{
			DevMode:        getEnvAsBool("AUTH_DEV_MODE", false),
			DebugToken:     getEnv("AUTH_DEBUG_TOKEN", ""),
			ClaimNamespace: getEnv("AUTH_CLAIM_NAMESPACE", "https://pathway.app/"),
			IdentityIssuer: getEnv("AUTH_IDENTITY_ISSUER", "auth0.com"),
			TenantHeader:   getEnv("AUTH_TENANT_HEADER", "X-Tenant-Id"),
			OrgHeader:      getEnv("AUTH_ORG_HEADER", "X-Org-Id"),
			JWKS: JWKSConfig{
				URL:          getEnv("AUTH_JWKS_URL", ""),
				Issuer:       getEnv("AUTH_ISSUER", ""),
				Audience:     getEnv("AUTH_AUDIENCE", ""),
				CacheTTL:     getEnvAsDuration("AUTH_JWKS_CACHE_TTL", time.Hour),
				Timeout:      getEnvAsDuration("AUTH_JWKS_TIMEOUT", 10*time.Second),
				KeyCacheSize: getEnvAsInt("AUTH_JWKS_KEY_CACHE_SIZE", 32),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set. Failures
// are validation domain errors.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.DevMode {
		return invalid("AUTH_DEV_MODE must be disabled in production", "AUTH_DEV_MODE")
	}

	if c.Auth.JWKS.URL == "" && (c.Auth.JWKS.Issuer != "" || c.Auth.JWKS.Audience != "") {
		return invalid("AUTH_ISSUER and AUTH_AUDIENCE require AUTH_JWKS_URL", "AUTH_JWKS_URL")
	}

	if c.Auth.TenantHeader == "" || c.Auth.OrgHeader == "" {
		return invalid("tenant and org header names are required", "AUTH_TENANT_HEADER")
	}

	if err := utils.ValidateStruct(&c.Observability); err != nil {
		return shared.NewDomainError(shared.ErrorTypeValidation, "invalid observability config", err).
			WithDetail("fields", utils.GetValidationFields(err))
	}

	return nil
}

func invalid(message, setting string) error {
	return shared.NewDomainError(shared.ErrorTypeValidation, message, nil).WithDetail("setting", setting)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// VerifiesSignatures reports whether tokens are checked against a JWKS.
func (c *AuthConfig) VerifiesSignatures() bool {
	return c.JWKS.URL != ""
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jntagengwa/pathway/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Auth: config.AuthConfig{
			ClaimNamespace: "https://pathway.app/",
			IdentityIssuer: "auth0.com",
			TenantHeader:   "X-Tenant-Id",
			OrgHeader:      "X-Org-Id",
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}

func TestNewDependencies(t *testing.T) {
	t.Run("unverified decoding by default", func(t *testing.T) {
		ctx := context.Background()
		deps, err := NewDependencies(ctx, testConfig(t), zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, deps)

		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.Logger)
		assert.NotNil(t, deps.AuditLog)
		assert.NotNil(t, deps.Guard)
		assert.Nil(t, deps.Verifier)
		assert.Equal(t, AuthModeUnverified, deps.AuthMode())

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("jwks verification when url is set", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"keys":[]}`))
		}))
		defer srv.Close()

		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Auth.JWKS.URL = srv.URL
		cfg.Auth.JWKS.CacheTTL = time.Hour

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, deps.Verifier)
		assert.Equal(t, AuthModeVerified, deps.AuthMode())

		assert.NoError(t, deps.Close(ctx))
	})

	t.Run("dev mode", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Auth.DevMode = true
		cfg.Auth.DebugToken = "letmein"

		deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, AuthModeDev, deps.AuthMode())

		ac, err := deps.Guard.Authenticate(ctx, "Bearer letmein")
		require.NoError(t, err)
		assert.Equal(t, "debug-tenant", ac.Tenant.TenantID)
	})

	t.Run("custom claim namespace reaches the mapper", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.ClaimNamespace = "https://claims.example/"

		deps, err := NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)

		// The tenant claim is read under the configured namespace.
		ac, err := deps.Guard.Authenticate(context.Background(),
			"Bearer eyJhbGciOiJub25lIn0.eyJzdWIiOiJ1MSIsImh0dHBzOi8vY2xhaW1zLmV4YW1wbGUvdGVuYW50Ijp7InRlbmFudElkIjoidDEifX0.")
		require.NoError(t, err)
		assert.Equal(t, "t1", ac.Tenant.TenantID)
	})
}

func TestDependencies_AuthMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keys":[]}`))
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		devMode bool
		jwksURL string
		want    string
	}{
		{"unverified", false, "", AuthModeUnverified},
		{"verified", false, srv.URL, AuthModeVerified},
		{"dev", true, "", AuthModeDev},
		{"dev with verifier", true, srv.URL, AuthModeDevVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t)
			cfg.Auth.DevMode = tt.devMode
			cfg.Auth.JWKS.URL = tt.jwksURL

			deps, err := NewDependencies(ctx, cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			defer deps.Close(ctx)

			assert.Equal(t, tt.want, deps.AuthMode())
		})
	}
}

func TestNewDependencies_DevModeOutsideDevelopment(t *testing.T) {
	tests := []struct {
		environment string
		wantWarning bool
	}{
		{"development", false},
		{"test", true},
		{"staging", true},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			cfg := testConfig(t)
			cfg.Environment = tt.environment
			cfg.Auth.DevMode = true

			_, err := NewDependencies(context.Background(), cfg, zap.New(core))
			require.NoError(t, err)

			found := logs.FilterMessage("auth dev mode enabled outside the development environment").Len()
			assert.Equal(t, tt.wantWarning, found == 1)
		})
	}
}

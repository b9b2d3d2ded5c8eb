package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jntagengwa/pathway/auth"
	"github.com/jntagengwa/pathway/config"
	"github.com/jntagengwa/pathway/internal/observability"
	"github.com/jntagengwa/pathway/internal/shared"
)

// Auth modes reported by readiness and status endpoints.
const (
	AuthModeDev         = "dev"
	AuthModeDevVerified = "dev+verified"
	AuthModeVerified    = "verified"
	AuthModeUnverified  = "unverified"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// AuditLog tags entries with the caller's ids.
	AuditLog observability.Logger

	// Auth
	Guard    *auth.Guard
	Verifier *auth.JWKSVerifier // nil unless AUTH_JWKS_URL is set
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		AuditLog: observability.NewContextLogger(logger),
	}

	if err := deps.initAuth(cfg); err != nil {
		return nil, shared.WrapInternal("failed to initialize auth", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("auth_mode", deps.AuthMode()))
	return deps, nil
}

// initAuth builds the claims source, mapper and guard.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	var source auth.ClaimsSource
	if cfg.Auth.VerifiesSignatures() {
		verifier, err := auth.NewJWKSVerifier(auth.JWKSConfig{
			URL:             cfg.Auth.JWKS.URL,
			Issuer:          cfg.Auth.JWKS.Issuer,
			Audience:        cfg.Auth.JWKS.Audience,
			RefreshInterval: cfg.Auth.JWKS.CacheTTL,
			FetchTimeout:    cfg.Auth.JWKS.Timeout,
			KeyCacheSize:    cfg.Auth.JWKS.KeyCacheSize,
		})
		if err != nil {
			return fmt.Errorf("failed to create jwks verifier: %w", err)
		}
		d.Verifier = verifier
		source = verifier
		d.Logger.Info("token signatures verified against jwks",
			zap.String("jwks_url", cfg.Auth.JWKS.URL))
	} else {
		source = auth.NewUnverifiedDecoder()
		d.Logger.Warn("AUTH_JWKS_URL not set, token signatures are not verified")
	}

	if cfg.Auth.DevMode {
		d.Logger.Warn("auth dev mode enabled, requests without credentials use the debug identity",
			zap.Bool("debug_token_set", cfg.Auth.DebugToken != ""))
		if !cfg.IsDevelopment() {
			d.Logger.Warn("auth dev mode enabled outside the development environment",
				zap.String("environment", cfg.Environment))
		}
	} else if cfg.Auth.DebugToken != "" {
		d.Logger.Warn("AUTH_DEBUG_TOKEN is ignored while dev mode is off")
	}

	mapper := auth.NewClaimsMapper(auth.MapperConfig{
		Namespace:      cfg.Auth.ClaimNamespace,
		IdentityIssuer: cfg.Auth.IdentityIssuer,
	})

	d.Guard = auth.NewGuard(source, mapper, auth.GuardConfig{
		DevMode:      cfg.Auth.DevMode,
		DebugToken:   cfg.Auth.DebugToken,
		TenantHeader: cfg.Auth.TenantHeader,
		OrgHeader:    cfg.Auth.OrgHeader,
	}, d.Logger)

	d.Logger.Info("auth guard initialized")
	return nil
}

// AuthMode reports how inbound credentials are trusted.
func (d *Dependencies) AuthMode() string {
	devMode := d.Config != nil && d.Config.Auth.DevMode
	switch {
	case devMode && d.Verifier != nil:
		return AuthModeDevVerified
	case devMode:
		return AuthModeDev
	case d.Verifier != nil:
		return AuthModeVerified
	default:
		return AuthModeUnverified
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.Verifier != nil {
		d.Verifier.Close()
		d.Logger.Info("jwks refresh stopped")
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jntagengwa/pathway/utils"
)

const (
	// DefaultTenantHeader carries the tenant id to downstream services.
	DefaultTenantHeader = "X-Tenant-Id"
	// DefaultOrgHeader carries the org id to downstream services.
	DefaultOrgHeader = "X-Org-Id"
)

// Fixed identity used in dev mode.
const (
	DebugUserID   = "debug-user"
	DebugOrgID    = "debug-org"
	DebugTenantID = "debug-tenant"
)

// GuardConfig controls the guard's relaxations and side-channel headers.
type GuardConfig struct {
	// DevMode enables the debug identity when no Authorization header is
	// sent or when DebugToken is presented. It must be off in production.
	DevMode bool
	// DebugToken is the bearer value that selects the debug identity in dev
	// mode. Empty disables the bypass.
	DebugToken   string
	TenantHeader string
	OrgHeader    string
}

// Guard turns the inbound bearer credential into an AuthContext and installs
// it on the request's Holder, opening the scope when no outer middleware did.
type Guard struct {
	source ClaimsSource
	mapper *ClaimsMapper
	cfg    GuardConfig
	logger *zap.Logger
}

// NewGuard creates a new Guard
func NewGuard(source ClaimsSource, mapper *ClaimsMapper, cfg GuardConfig, logger *zap.Logger) *Guard {
	if cfg.TenantHeader == "" {
		cfg.TenantHeader = DefaultTenantHeader
	}
	if cfg.OrgHeader == "" {
		cfg.OrgHeader = DefaultOrgHeader
	}
	if mapper == nil {
		mapper = defaultMapper
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		source: source,
		mapper: mapper,
		cfg:    cfg,
		logger: logger,
	}
}

// Middleware authenticates the request before next runs. Every failure
// stops the request with a 401. A request that sent no credential is only
// challenged; a rejected credential is reported as invalid_token.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			g.logger.Warn("authentication failed",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			if errors.Is(err, ErrMissingCredential) {
				_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
				return
			}
			_ = utils.WriteInvalidToken(w, "Missing or invalid authorization")
			return
		}

		ctx, holder := Scope(r.Context())
		holder.Set(ac)

		r.Header.Set(g.cfg.TenantHeader, ac.Tenant.TenantID)
		r.Header.Set(g.cfg.OrgHeader, ac.Org.OrgID)

		g.logger.Debug("authentication successful",
			zap.String("request_id", chimw.GetReqID(ctx)),
			zap.String("user_id", ac.User.UserID),
			zap.String("org_id", ac.Org.OrgID),
			zap.String("tenant_id", ac.Tenant.TenantID),
			zap.String("auth_provider", string(ac.User.AuthProvider)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate resolves an Authorization header value to an AuthContext.
func (g *Guard) Authenticate(ctx context.Context, header string) (*AuthContext, error) {
	if header == "" {
		if g.cfg.DevMode {
			return DebugIdentity(), nil
		}
		return nil, ErrMissingCredential
	}

	token, ok := bearerToken(header)
	if !ok {
		return nil, ErrMalformedCredential
	}

	if g.cfg.DevMode && g.cfg.DebugToken != "" && token == g.cfg.DebugToken {
		return DebugIdentity(), nil
	}

	claims, err := g.source.Claims(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.mapper.Map(claims)
}

// PropagateHeaders copies the request's tenant and org ids onto an outbound
// request to a downstream service. It is a no-op without a context.
func (g *Guard) PropagateHeaders(ctx context.Context, out *http.Request) {
	ac, ok := FromContext(ctx)
	if !ok {
		return
	}
	out.Header.Set(g.cfg.TenantHeader, ac.Tenant.TenantID)
	out.Header.Set(g.cfg.OrgHeader, ac.Org.OrgID)
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// DebugIdentity returns the fixed identity used for local bring-up. Each
// call returns a new value.
func DebugIdentity() *AuthContext {
	return &AuthContext{
		User: UserIdentity{
			UserID:       DebugUserID,
			Email:        "debug@pathway.local",
			GivenName:    "Debug",
			FamilyName:   "User",
			AuthProvider: ProviderDebug,
		},
		Org: OrgContext{
			OrgID:    DebugOrgID,
			Slug:     "debug-org",
			Name:     "Debug Org",
			PlanTier: "debug",
		},
		Tenant: TenantContext{
			TenantID: DebugTenantID,
			OrgID:    DebugOrgID,
			Slug:     "debug-tenant",
			Timezone: "Europe/London",
		},
		Roles: RoleSet{
			Org:    []OrgRole{OrgRoleOwner},
			Tenant: []TenantRole{TenantRoleAdmin},
		},
		Permissions: []string{},
		RawClaims:   Claims{},
	}
}

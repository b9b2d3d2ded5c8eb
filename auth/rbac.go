package auth

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jntagengwa/pathway/utils"
)

// RequireOrgRole allows the request when the caller holds any of roles.
// It must run after Guard.Middleware.
func (g *Guard) RequireOrgRole(roles ...OrgRole) func(http.Handler) http.Handler {
	return g.gate("org_role", func(ac *AuthContext) bool {
		return ac.HasOrgRole(roles...)
	})
}

// RequireTenantRole allows the request when the caller holds any of roles.
func (g *Guard) RequireTenantRole(roles ...TenantRole) func(http.Handler) http.Handler {
	return g.gate("tenant_role", func(ac *AuthContext) bool {
		return ac.HasTenantRole(roles...)
	})
}

// RequirePermission allows the request when the caller was granted permission.
func (g *Guard) RequirePermission(permission string) func(http.Handler) http.Handler {
	return g.gate("permission", func(ac *AuthContext) bool {
		return ac.HasPermission(permission)
	})
}

func (g *Guard) gate(kind string, allowed func(*AuthContext) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := FromRequest(r)
			if !ok {
				g.logger.Error("auth context not found in request",
					zap.String("request_id", chimw.GetReqID(r.Context())),
					zap.String("path", r.URL.Path))
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !allowed(ac) {
				g.logger.Warn("insufficient permissions",
					zap.String("request_id", chimw.GetReqID(r.Context())),
					zap.String("check", kind),
					zap.String("user_id", ac.User.UserID),
					zap.String("tenant_id", ac.Tenant.TenantID))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

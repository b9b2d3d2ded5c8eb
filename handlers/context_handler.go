package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jntagengwa/pathway/app"
	"github.com/jntagengwa/pathway/auth"
	"github.com/jntagengwa/pathway/internal/shared"
	"github.com/jntagengwa/pathway/utils"
)

// MeResponse is the caller's full view of their auth context.
type MeResponse struct {
	User        auth.UserIdentity  `json:"user"`
	Org         auth.OrgContext    `json:"org"`
	Tenant      auth.TenantContext `json:"tenant"`
	Roles       auth.RoleSet       `json:"roles"`
	Permissions []string           `json:"permissions"`
}

// FieldResponse carries a single selected field.
type FieldResponse struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// MeHandler handles GET /api/v1/me
func MeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := auth.CurrentUser(ctx)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		org, err := auth.CurrentOrg(ctx)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		tenant, err := auth.CurrentTenant(ctx)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		holder := auth.HolderFromContext(ctx)
		_ = utils.WriteOK(w, MeResponse{
			User:        user,
			Org:         org,
			Tenant:      tenant,
			Roles:       holder.Roles(),
			Permissions: holder.Permissions(),
		})
	}
}

// TenantHandler handles GET /api/v1/me/tenant
func TenantHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := auth.CurrentTenant(r.Context())
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, tenant)
	}
}

// fieldRequest is the path input of the field endpoints.
type fieldRequest struct {
	Field string `validate:"required,alpha,max=32"`
}

// TenantFieldHandler handles GET /api/v1/me/tenant/{field}
func TenantFieldHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field := chi.URLParam(r, "field")
		if err := utils.ValidateStruct(fieldRequest{Field: field}); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		value, err := auth.CurrentTenantField(r.Context(), field)
		if errors.Is(err, auth.ErrUnknownField) {
			// The name came from the path, so this is the caller's mistake.
			err = shared.NewDomainError(shared.ErrorTypeNotFound, "Unknown tenant field", err).
				WithDetail("field", field)
		}
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteOK(w, FieldResponse{Field: field, Value: value})
	}
}

// AuditHandler handles GET /api/v1/context/audit
func AuditHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		view, err := auth.HolderFromContext(ctx).Audit()
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		deps.AuditLog.Info(ctx, "audit context read",
			zap.Any("org_roles", view.Roles.Org),
			zap.Any("tenant_roles", view.Roles.Tenant))
		_ = utils.WriteOK(w, view)
	}
}

// PermissionsHandler handles GET /api/v1/context/permissions. It uses the
// soft accessors, so it answers with empty lists rather than failing.
func PermissionsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holder := auth.HolderFromContext(r.Context())
		_ = utils.WriteOK(w, map[string]interface{}{
			"roles":       holder.Roles(),
			"permissions": holder.Permissions(),
		})
	}
}

// AdminPingHandler handles GET /api/v1/admin/ping
func AdminPingHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := auth.CurrentOrgField(r.Context(), "orgId")
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, map[string]string{
			"status": "ok",
			"orgId":  orgID,
		})
	}
}

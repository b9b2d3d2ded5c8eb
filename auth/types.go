package auth

import (
	"slices"
	"time"
)

// AuthProvider identifies where a user identity was issued.
type AuthProvider string

const (
	// ProviderAuth0 marks identities issued by the external identity provider.
	ProviderAuth0 AuthProvider = "auth0"
	// ProviderDebug marks identities issued locally for bring-up and tests.
	ProviderDebug AuthProvider = "debug"
)

// OrgRole is an organisation-level role slug.
type OrgRole string

const (
	OrgRoleOwner            OrgRole = "org:owner"
	OrgRoleAdmin            OrgRole = "org:admin"
	OrgRoleSafeguardingLead OrgRole = "org:safeguarding_lead"
	OrgRoleBillingManager   OrgRole = "org:billing_manager"
	OrgRoleSupport          OrgRole = "org:support"
)

// TenantRole is a site-level role slug.
type TenantRole string

const (
	TenantRoleAdmin       TenantRole = "tenant:admin"
	TenantRoleCoordinator TenantRole = "tenant:coordinator"
	TenantRoleTeacher     TenantRole = "tenant:teacher"
	TenantRoleStaff       TenantRole = "tenant:staff"
	TenantRoleParent      TenantRole = "tenant:parent"
)

var (
	knownOrgRoles = map[OrgRole]struct{}{
		OrgRoleOwner:            {},
		OrgRoleAdmin:            {},
		OrgRoleSafeguardingLead: {},
		OrgRoleBillingManager:   {},
		OrgRoleSupport:          {},
	}
	knownTenantRoles = map[TenantRole]struct{}{
		TenantRoleAdmin:       {},
		TenantRoleCoordinator: {},
		TenantRoleTeacher:     {},
		TenantRoleStaff:       {},
		TenantRoleParent:      {},
	}
)

// UserIdentity is the caller's identity as asserted by the token.
type UserIdentity struct {
	UserID       string       `json:"userId" mapstructure:"userId" validate:"required"`
	Email        string       `json:"email,omitempty" mapstructure:"email"`
	GivenName    string       `json:"givenName,omitempty" mapstructure:"givenName"`
	FamilyName   string       `json:"familyName,omitempty" mapstructure:"familyName"`
	PictureURL   string       `json:"pictureUrl,omitempty" mapstructure:"pictureUrl"`
	AuthProvider AuthProvider `json:"authProvider" mapstructure:"-"`
}

// OrgContext is the top-level billing and ownership entity.
type OrgContext struct {
	OrgID      string `json:"orgId" mapstructure:"orgId" validate:"required"`
	Auth0OrgID string `json:"auth0OrgId,omitempty" mapstructure:"auth0OrgId"`
	Slug       string `json:"slug,omitempty" mapstructure:"slug"`
	Name       string `json:"name,omitempty" mapstructure:"name"`
	PlanTier   string `json:"planTier,omitempty" mapstructure:"planTier"`
}

// TenantContext is a single site under an org. Every tenant-scoped query
// filters on TenantID.
type TenantContext struct {
	TenantID   string `json:"tenantId" mapstructure:"tenantId" validate:"required"`
	OrgID      string `json:"orgId" mapstructure:"orgId" validate:"required"`
	Slug       string `json:"slug,omitempty" mapstructure:"slug"`
	Timezone   string `json:"timezone,omitempty" mapstructure:"timezone"`
	ExternalID string `json:"externalId,omitempty" mapstructure:"externalId"`
}

// RoleSet holds the caller's org and tenant roles.
type RoleSet struct {
	Org    []OrgRole    `json:"org"`
	Tenant []TenantRole `json:"tenant"`
}

// EmptyRoleSet returns a role set with non-nil empty slices.
func EmptyRoleSet() RoleSet {
	return RoleSet{Org: []OrgRole{}, Tenant: []TenantRole{}}
}

// clone returns a copy that shares no backing arrays with r. Nil slices
// come back empty.
func (r RoleSet) clone() RoleSet {
	out := EmptyRoleSet()
	out.Org = append(out.Org, r.Org...)
	out.Tenant = append(out.Tenant, r.Tenant...)
	return out
}

// AuthContext is the trusted, in-process view of who is calling and for
// which org and tenant. It is built once per request and never mutated.
type AuthContext struct {
	User        UserIdentity  `json:"user"`
	Org         OrgContext    `json:"org"`
	Tenant      TenantContext `json:"tenant"`
	Roles       RoleSet       `json:"roles"`
	Permissions []string      `json:"permissions"`
	RawClaims   Claims        `json:"-"`
	IssuedAt    *time.Time    `json:"issuedAt,omitempty"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
}

// AuditView is the reduced projection written to audit logs.
type AuditView struct {
	User   UserIdentity  `json:"user"`
	Org    OrgContext    `json:"org"`
	Tenant TenantContext `json:"tenant"`
	Roles  RoleSet       `json:"roles"`
}

// HasOrgRole reports whether the caller holds any of the given org roles.
func (a *AuthContext) HasOrgRole(roles ...OrgRole) bool {
	for _, r := range roles {
		if slices.Contains(a.Roles.Org, r) {
			return true
		}
	}
	return false
}

// HasTenantRole reports whether the caller holds any of the given tenant roles.
func (a *AuthContext) HasTenantRole(roles ...TenantRole) bool {
	for _, r := range roles {
		if slices.Contains(a.Roles.Tenant, r) {
			return true
		}
	}
	return false
}

// HasPermission reports whether the caller was granted the capability.
func (a *AuthContext) HasPermission(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}

func (a *AuthContext) audit() AuditView {
	return AuditView{
		User:   a.User,
		Org:    a.Org,
		Tenant: a.Tenant,
		Roles:  a.Roles.clone(),
	}
}

// Field returns the named field using its JSON name.
func (u UserIdentity) Field(name string) (string, bool) {
	switch name {
	case "userId":
		return u.UserID, true
	case "email":
		return u.Email, true
	case "givenName":
		return u.GivenName, true
	case "familyName":
		return u.FamilyName, true
	case "pictureUrl":
		return u.PictureURL, true
	case "authProvider":
		return string(u.AuthProvider), true
	}
	return "", false
}

// Field returns the named field using its JSON name.
func (o OrgContext) Field(name string) (string, bool) {
	switch name {
	case "orgId":
		return o.OrgID, true
	case "auth0OrgId":
		return o.Auth0OrgID, true
	case "slug":
		return o.Slug, true
	case "name":
		return o.Name, true
	case "planTier":
		return o.PlanTier, true
	}
	return "", false
}

// Field returns the named field using its JSON name.
func (t TenantContext) Field(name string) (string, bool) {
	switch name {
	case "tenantId":
		return t.TenantID, true
	case "orgId":
		return t.OrgID, true
	case "slug":
		return t.Slug, true
	case "timezone":
		return t.Timezone, true
	case "externalId":
		return t.ExternalID, true
	}
	return "", false
}

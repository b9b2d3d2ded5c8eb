package auth

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"

	"github.com/jntagengwa/pathway/utils"
)

// Claims is a decoded bearer token payload.
type Claims map[string]any

// Registered and legacy top-level claim names.
const (
	ClaimSubject   = "sub"
	ClaimIssuer    = "iss"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
	ClaimOrgID     = "org_id"
)

// Namespaced claim names, prefixed with the mapper's namespace.
const (
	ClaimUser        = "user"
	ClaimOrg         = "org"
	ClaimTenant      = "tenant"
	ClaimOrgRoles    = "org_roles"
	ClaimTenantRoles = "tenant_roles"
	ClaimPermissions = "permissions"
)

const (
	// DefaultClaimNamespace prefixes the custom claims issued by the login flow.
	DefaultClaimNamespace = "https://pathway.app/"

	// DefaultIdentityIssuer is matched against "iss" to tell real identities
	// from local debug ones.
	DefaultIdentityIssuer = "auth0.com"
)

// MapperConfig configures a ClaimsMapper. Zero values fall back to the defaults.
type MapperConfig struct {
	Namespace      string
	IdentityIssuer string
}

// ClaimsMapper turns a raw claim bag into an AuthContext. It holds no
// per-request state and is safe for concurrent use.
type ClaimsMapper struct {
	namespace      string
	identityIssuer string
}

// NewClaimsMapper creates a ClaimsMapper
func NewClaimsMapper(cfg MapperConfig) *ClaimsMapper {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultClaimNamespace
	}
	if cfg.IdentityIssuer == "" {
		cfg.IdentityIssuer = DefaultIdentityIssuer
	}
	return &ClaimsMapper{
		namespace:      cfg.Namespace,
		identityIssuer: cfg.IdentityIssuer,
	}
}

var defaultMapper = NewClaimsMapper(MapperConfig{})

// MapClaims maps claims using the default namespace and issuer marker.
func MapClaims(claims Claims) (*AuthContext, error) {
	return defaultMapper.Map(claims)
}

// Key returns the fully namespaced claim name.
func (m *ClaimsMapper) Key(name string) string {
	return m.namespace + name
}

// Map builds an AuthContext from claims. A missing subject or tenant fails
// the whole mapping; roles and permissions are parsed tolerantly.
func (m *ClaimsMapper) Map(claims Claims) (*AuthContext, error) {
	registered := jwt.MapClaims(claims)

	sub, err := registered.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrMissingSubject
	}

	tenantRaw, ok := subObject(claims[m.Key(ClaimTenant)])
	if !ok {
		return nil, ErrMissingTenantClaim
	}
	var tenant TenantContext
	if err := decodeClaim(tenantRaw, &tenant); err != nil {
		return nil, ErrInvalidClaims.Wrap(fmt.Errorf("tenant: %w", err))
	}
	if tenant.TenantID == "" {
		return nil, ErrMissingTenantClaim
	}

	var org OrgContext
	if raw, ok := subObject(claims[m.Key(ClaimOrg)]); ok {
		if err := decodeClaim(raw, &org); err != nil {
			return nil, ErrInvalidClaims.Wrap(fmt.Errorf("org: %w", err))
		}
	}

	var user UserIdentity
	if raw, ok := subObject(claims[m.Key(ClaimUser)]); ok {
		if err := decodeClaim(raw, &user); err != nil {
			return nil, ErrInvalidClaims.Wrap(fmt.Errorf("user: %w", err))
		}
	}
	if user.UserID == "" {
		user.UserID = sub
	}
	issuer, _ := registered.GetIssuer()
	user.AuthProvider = m.detectProvider(issuer)

	// The resolved id is written to both sides, overriding a tenant claim
	// that named another org.
	orgID := firstNonEmpty(org.OrgID, tenant.OrgID, stringClaim(claims, ClaimOrgID), tenant.TenantID)
	org.OrgID = orgID
	tenant.OrgID = orgID

	ac := &AuthContext{
		User:   user,
		Org:    org,
		Tenant: tenant,
		Roles: RoleSet{
			Org:    parseOrgRoles(claims[m.Key(ClaimOrgRoles)]),
			Tenant: parseTenantRoles(claims[m.Key(ClaimTenantRoles)]),
		},
		Permissions: parsePermissions(claims[m.Key(ClaimPermissions)]),
		RawClaims:   maps.Clone(claims),
		IssuedAt:    numericDate(registered.GetIssuedAt),
		ExpiresAt:   numericDate(registered.GetExpirationTime),
	}

	if err := utils.ValidateStruct(ac); err != nil {
		return nil, ErrInvalidClaims.Wrap(err)
	}

	return ac, nil
}

func (m *ClaimsMapper) detectProvider(issuer string) AuthProvider {
	if issuer != "" && strings.Contains(issuer, m.identityIssuer) {
		return ProviderAuth0
	}
	return ProviderDebug
}

// decodeClaim decodes a claim sub-object into out. Scalars are coerced so a
// numeric id still lands in a string field.
func decodeClaim(raw map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func subObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case Claims:
		return v, true
	}
	return nil, false
}

func parseOrgRoles(raw any) []OrgRole {
	roles := []OrgRole{}
	for _, s := range stringItems(raw) {
		if _, ok := knownOrgRoles[OrgRole(s)]; ok {
			roles = append(roles, OrgRole(s))
		}
	}
	return roles
}

func parseTenantRoles(raw any) []TenantRole {
	roles := []TenantRole{}
	for _, s := range stringItems(raw) {
		if _, ok := knownTenantRoles[TenantRole(s)]; ok {
			roles = append(roles, TenantRole(s))
		}
	}
	return roles
}

// parsePermissions accepts any list of non-empty strings. Anything else
// yields no permissions.
func parsePermissions(raw any) []string {
	return append([]string{}, stringItems(raw)...)
}

// stringItems returns the non-empty string elements of a JSON array.
func stringItems(raw any) []string {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringClaim(claims Claims, key string) string {
	v, _ := claims[key].(string)
	return v
}

func numericDate(get func() (*jwt.NumericDate, error)) *time.Time {
	d, err := get()
	if err != nil || d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

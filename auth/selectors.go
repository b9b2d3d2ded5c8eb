package auth

import (
	"context"
	"fmt"
)

// The selectors below are the integration point for handler code. They read
// the context the guard installed and fail with ErrGuardNotRun when it is
// missing, so handlers never null-check.

func installed(ctx context.Context) (*AuthContext, error) {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil, ErrGuardNotRun
	}
	return ac, nil
}

// CurrentUser returns the caller's identity.
func CurrentUser(ctx context.Context) (UserIdentity, error) {
	ac, err := installed(ctx)
	if err != nil {
		return UserIdentity{}, err
	}
	return ac.User, nil
}

// CurrentOrg returns the caller's org.
func CurrentOrg(ctx context.Context) (OrgContext, error) {
	ac, err := installed(ctx)
	if err != nil {
		return OrgContext{}, err
	}
	return ac.Org, nil
}

// CurrentTenant returns the caller's tenant.
func CurrentTenant(ctx context.Context) (TenantContext, error) {
	ac, err := installed(ctx)
	if err != nil {
		return TenantContext{}, err
	}
	return ac.Tenant, nil
}

// CurrentUserField returns one user field by its JSON name, e.g. "email".
func CurrentUserField(ctx context.Context, field string) (string, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return selectField("user", field, user.Field)
}

// CurrentOrgField returns one org field by its JSON name, e.g. "orgId".
func CurrentOrgField(ctx context.Context, field string) (string, error) {
	org, err := CurrentOrg(ctx)
	if err != nil {
		return "", err
	}
	return selectField("org", field, org.Field)
}

// CurrentTenantField returns one tenant field by its JSON name, e.g. "tenantId".
func CurrentTenantField(ctx context.Context, field string) (string, error) {
	tenant, err := CurrentTenant(ctx)
	if err != nil {
		return "", err
	}
	return selectField("tenant", field, tenant.Field)
}

func selectField(scope, field string, lookup func(string) (string, bool)) (string, error) {
	v, ok := lookup(field)
	if !ok {
		return "", ErrUnknownField.Wrap(fmt.Errorf("%s.%s", scope, field)).WithDetail("field", field)
	}
	return v, nil
}

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jntagengwa/pathway/internal/shared"
)

func guardedContext(ac *AuthContext) context.Context {
	h := NewHolder()
	h.Set(ac)
	return WithHolder(context.Background(), h)
}

func TestSelectors_WithContext(t *testing.T) {
	ac := testContext("ten-42", "org-7")
	ac.Tenant.Slug = "north"
	ctx := guardedContext(ac)

	t.Run("single field", func(t *testing.T) {
		id, err := CurrentTenantField(ctx, "tenantId")
		require.NoError(t, err)
		assert.Equal(t, "ten-42", id)

		orgID, err := CurrentOrgField(ctx, "orgId")
		require.NoError(t, err)
		assert.Equal(t, "org-7", orgID)

		email, err := CurrentUserField(ctx, "email")
		require.NoError(t, err)
		assert.Equal(t, "ten-42@example.org", email)

		provider, err := CurrentUserField(ctx, "authProvider")
		require.NoError(t, err)
		assert.Equal(t, "auth0", provider)
	})

	t.Run("whole sub-object", func(t *testing.T) {
		tenant, err := CurrentTenant(ctx)
		require.NoError(t, err)
		assert.Equal(t, ac.Tenant, tenant)

		org, err := CurrentOrg(ctx)
		require.NoError(t, err)
		assert.Equal(t, ac.Org, org)

		user, err := CurrentUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, ac.User, user)
	})

	t.Run("empty field value is not an error", func(t *testing.T) {
		ext, err := CurrentTenantField(ctx, "externalId")
		require.NoError(t, err)
		assert.Equal(t, "", ext)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := CurrentTenantField(ctx, "tenant_id")
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.True(t, shared.IsInternalError(err))
		assert.Equal(t, "tenant_id", shared.GetErrorDetails(err)["field"])
		assert.Contains(t, err.Error(), "tenant.tenant_id")
	})
}

func TestSelectors_WithoutGuard(t *testing.T) {
	selectors := map[string]func(context.Context) error{
		"CurrentUser": func(ctx context.Context) error {
			_, err := CurrentUser(ctx)
			return err
		},
		"CurrentOrg": func(ctx context.Context) error {
			_, err := CurrentOrg(ctx)
			return err
		},
		"CurrentTenant": func(ctx context.Context) error {
			_, err := CurrentTenant(ctx)
			return err
		},
		"CurrentUserField": func(ctx context.Context) error {
			_, err := CurrentUserField(ctx, "email")
			return err
		},
		"CurrentOrgField": func(ctx context.Context) error {
			_, err := CurrentOrgField(ctx, "orgId")
			return err
		},
		"CurrentTenantField": func(ctx context.Context) error {
			_, err := CurrentTenantField(ctx, "tenantId")
			return err
		},
	}

	contexts := map[string]context.Context{
		"no holder":    context.Background(),
		"empty holder": WithHolder(context.Background(), NewHolder()),
	}

	for name, sel := range selectors {
		for ctxName, ctx := range contexts {
			t.Run(name+"/"+ctxName, func(t *testing.T) {
				err := sel(ctx)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrGuardNotRun)
				assert.Contains(t, err.Error(), "auth.Guard")
			})
		}
	}
}

func TestSelectors_FieldOrderIndependent(t *testing.T) {
	ctx := guardedContext(testContext("t1", "o1"))

	// Unknown field check happens after the context lookup, so a missing
	// guard is reported even for a bad field name.
	_, err := CurrentOrgField(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrGuardNotRun)

	_, err = CurrentOrgField(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownField)
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jntagengwa/pathway/internal/shared"
)

const (
	testIssuer   = "https://pathway.eu.auth0.com/"
	testAudience = "https://api.pathway.app"
)

// jwksServer serves a mutable key set and counts fetches.
type jwksServer struct {
	*httptest.Server
	body    atomic.Value
	fetches atomic.Int32
}

func newJWKSServer(t *testing.T, keys map[string]*rsa.PrivateKey) *jwksServer {
	t.Helper()
	s := &jwksServer{}
	s.publish(t, keys)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(s.body.Load().([]byte))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) publish(t *testing.T, keys map[string]*rsa.PrivateKey) {
	t.Helper()
	set := jwk.NewSet()
	for kid, priv := range keys {
		key, err := jwk.FromRaw(&priv.PublicKey)
		require.NoError(t, err)
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
		require.NoError(t, set.AddKey(key))
	}
	body, err := json.Marshal(set)
	require.NoError(t, err)
	s.body.Store(body)
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func signedToken(t *testing.T, priv *rsa.PrivateKey, kid string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	if kid != "" {
		token.Header["kid"] = kid
	}
	s, err := token.SignedString(priv)
	require.NoError(t, err)
	return s
}

func verifiedClaims() Claims {
	c := baseClaims()
	c["iss"] = testIssuer
	c["aud"] = testAudience
	c["iat"] = time.Now().Add(-time.Minute).Unix()
	c["exp"] = time.Now().Add(time.Hour).Unix()
	return c
}

func newTestVerifier(t *testing.T, url string) *JWKSVerifier {
	t.Helper()
	v, err := NewJWKSVerifier(JWKSConfig{URL: url, Issuer: testIssuer, Audience: testAudience})
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestNewJWKSVerifier_RequiresURL(t *testing.T) {
	v, err := NewJWKSVerifier(JWKSConfig{})
	assert.Nil(t, v)
	assert.Error(t, err)
}

func TestJWKSVerifier_Claims(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PrivateKey{"key-1": priv})
	v := newTestVerifier(t, srv.URL)
	ctx := context.Background()

	t.Run("valid token maps to a context", func(t *testing.T) {
		claims, err := v.Claims(ctx, signedToken(t, priv, "key-1", verifiedClaims()))
		require.NoError(t, err)

		ac, err := MapClaims(claims)
		require.NoError(t, err)
		assert.Equal(t, "t1", ac.Tenant.TenantID)
		assert.Equal(t, ProviderAuth0, ac.User.AuthProvider)
		require.NotNil(t, ac.ExpiresAt)
	})

	t.Run("parsed keys are cached", func(t *testing.T) {
		before := srv.fetches.Load()
		for i := 0; i < 3; i++ {
			_, err := v.Claims(ctx, signedToken(t, priv, "key-1", verifiedClaims()))
			require.NoError(t, err)
		}
		assert.Equal(t, before, srv.fetches.Load())
	})
}

func TestJWKSVerifier_Rejects(t *testing.T) {
	priv := newRSAKey(t)
	other := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PrivateKey{"key-1": priv})
	v := newTestVerifier(t, srv.URL)

	expired := verifiedClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	noExp := verifiedClaims()
	delete(noExp, "exp")

	wrongIssuer := verifiedClaims()
	wrongIssuer["iss"] = "https://evil.example/"

	wrongAudience := verifiedClaims()
	wrongAudience["aud"] = "https://other.api"

	hs256 := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(verifiedClaims()))
	hs256.Header["kid"] = "key-1"
	hsToken, err := hs256.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"unknown kid", signedToken(t, priv, "key-2", verifiedClaims())},
		{"missing kid", signedToken(t, priv, "", verifiedClaims())},
		{"signed by another key", signedToken(t, other, "key-1", verifiedClaims())},
		{"expired", signedToken(t, priv, "key-1", expired)},
		{"no expiry", signedToken(t, priv, "key-1", noExp)},
		{"wrong issuer", signedToken(t, priv, "key-1", wrongIssuer)},
		{"wrong audience", signedToken(t, priv, "key-1", wrongAudience)},
		{"hmac algorithm", hsToken},
		{"garbage", "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Claims(context.Background(), tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestJWKSVerifier_KeyRotation(t *testing.T) {
	oldKey := newRSAKey(t)
	newKey := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PrivateKey{"old": oldKey})
	v := newTestVerifier(t, srv.URL)
	ctx := context.Background()

	oldToken := signedToken(t, oldKey, "old", verifiedClaims())
	_, err := v.Claims(ctx, oldToken)
	require.NoError(t, err)

	srv.publish(t, map[string]*rsa.PrivateKey{"new": newKey})

	t.Run("new kid triggers a refetch", func(t *testing.T) {
		_, err := v.Claims(ctx, signedToken(t, newKey, "new", verifiedClaims()))
		assert.NoError(t, err)
	})

	t.Run("removed kid is rejected after refetch", func(t *testing.T) {
		_, err := v.Claims(ctx, oldToken)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unknown kids do not refetch within the interval", func(t *testing.T) {
		before := srv.fetches.Load()
		for i := 0; i < 3; i++ {
			_, err := v.Claims(ctx, signedToken(t, newKey, "missing", verifiedClaims()))
			assert.ErrorIs(t, err, ErrInvalidSignature)
		}
		assert.Equal(t, before, srv.fetches.Load())
	})
}

func TestJWKSVerifier_RevokedKeyAfterRefresh(t *testing.T) {
	oldKey := newRSAKey(t)
	newKey := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PrivateKey{"old": oldKey, "new": newKey})
	v := newTestVerifier(t, srv.URL)
	ctx := context.Background()

	oldToken := signedToken(t, oldKey, "old", verifiedClaims())
	_, err := v.Claims(ctx, oldToken)
	require.NoError(t, err)

	srv.publish(t, map[string]*rsa.PrivateKey{"new": newKey})
	_, err = v.cache.Refresh(ctx, srv.URL)
	require.NoError(t, err)

	_, err = v.Claims(ctx, oldToken)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = v.Claims(ctx, signedToken(t, newKey, "new", verifiedClaims()))
	assert.NoError(t, err)
}

func TestJWKSVerifier_InvalidateCache(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PrivateKey{"key-1": priv})
	v := newTestVerifier(t, srv.URL)
	ctx := context.Background()

	_, err := v.Claims(ctx, signedToken(t, priv, "key-1", verifiedClaims()))
	require.NoError(t, err)

	before := srv.fetches.Load()
	require.NoError(t, v.InvalidateCache(ctx))
	assert.Equal(t, before+1, srv.fetches.Load())
	assert.Zero(t, v.keys.Len())
}

func TestGuard_WithJWKSVerifier(t *testing.T) {
	priv := newRSAKey(t)
	srv := newJWKSServer(t, map[string]*rsa.PrivateKey{"key-1": priv})
	g := NewGuard(newTestVerifier(t, srv.URL), nil, GuardConfig{}, nil)

	ac, err := g.Authenticate(context.Background(), "Bearer "+signedToken(t, priv, "key-1", verifiedClaims()))
	require.NoError(t, err)
	assert.Equal(t, "o1", ac.Org.OrgID)

	// An unsigned token that the decoder would accept is refused here.
	_, err = g.Authenticate(context.Background(), "Bearer "+unsignedToken(t, verifiedClaims()))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestJWKSVerifier_Check(t *testing.T) {
	srv := newJWKSServer(t, map[string]*rsa.PrivateKey{"key-1": newRSAKey(t)})
	v := newTestVerifier(t, srv.URL)
	assert.NoError(t, v.Check(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	broken := newTestVerifier(t, down.URL)
	err := broken.Check(context.Background())
	require.Error(t, err)
	assert.True(t, shared.IsExternalError(err))
}

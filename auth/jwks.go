package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/jntagengwa/pathway/internal/shared"
)

// JWKSConfig holds configuration for JWKSVerifier
type JWKSConfig struct {
	URL             string
	Issuer          string // expected "iss" (empty = don't verify)
	Audience        string // expected "aud" (empty = don't verify)
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	KeyCacheSize    int
	// MissRefreshInterval bounds how often an unknown kid may force a
	// refetch of the key set.
	MissRefreshInterval time.Duration
}

// JWKSVerifier verifies RS256 tokens against a remote JSON Web Key Set
// before handing their claims to the mapper.
type JWKSVerifier struct {
	url    string
	parser *jwt.Parser
	cache  *jwk.Cache
	// keys maps a key object of the current set to its parsed form. A
	// refetched set yields new key objects, so removed keys stop matching.
	keys   *lru.Cache[jwk.Key, any]
	cancel context.CancelFunc

	missInterval time.Duration
	mu           sync.Mutex
	lastMiss     time.Time
	sf           singleflight.Group
}

// NewJWKSVerifier registers the key set URL and returns a verifier. Close
// stops the background refresh.
func NewJWKSVerifier(cfg JWKSConfig) (*JWKSVerifier, error) {
	if cfg.URL == "" {
		return nil, errors.New("jwks url is required")
	}
	if cfg.RefreshInterval < 15*time.Minute {
		cfg.RefreshInterval = 15 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.KeyCacheSize <= 0 {
		cfg.KeyCacheSize = 32
	}
	if cfg.MissRefreshInterval <= 0 {
		cfg.MissRefreshInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	cache := jwk.NewCache(ctx)
	err := cache.Register(cfg.URL,
		jwk.WithMinRefreshInterval(cfg.RefreshInterval),
		jwk.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("register jwks url: %w", err)
	}

	keys, err := lru.New[jwk.Key, any](cfg.KeyCacheSize)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create key cache: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWKSVerifier{
		url:    cfg.URL,
		parser: jwt.NewParser(opts...),
		cache:        cache,
		keys:         keys,
		cancel:       cancel,
		missInterval: cfg.MissRefreshInterval,
	}, nil
}

// Claims verifies the token signature and registered claims, then returns
// the payload.
func (v *JWKSVerifier) Claims(ctx context.Context, token string) (Claims, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}
		return v.publicKey(ctx, kid)
	})
	if err != nil {
		return nil, ErrInvalidSignature.Wrap(err)
	}
	return Claims(claims), nil
}

// publicKey resolves kid against the current key set, refetching it once
// when the kid is unknown.
func (v *JWKSVerifier) publicKey(ctx context.Context, kid string) (any, error) {
	set, err := v.cache.Get(ctx, v.url)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	key, found := set.LookupKeyID(kid)
	if !found {
		if set, err = v.refreshOnMiss(ctx); err != nil {
			return nil, err
		}
		if key, found = set.LookupKeyID(kid); !found {
			return nil, fmt.Errorf("key %s not found in jwks", kid)
		}
	}

	if raw, ok := v.keys.Get(key); ok {
		return raw, nil
	}
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("decode jwk %s: %w", kid, err)
	}
	v.keys.Add(key, raw)
	return raw, nil
}

// refreshOnMiss refetches the key set at most once per missInterval.
// Concurrent misses share one fetch.
func (v *JWKSVerifier) refreshOnMiss(ctx context.Context) (jwk.Set, error) {
	res, err, _ := v.sf.Do(v.url, func() (any, error) {
		v.mu.Lock()
		if time.Since(v.lastMiss) < v.missInterval {
			v.mu.Unlock()
			return v.cache.Get(ctx, v.url)
		}
		v.lastMiss = time.Now()
		v.mu.Unlock()
		return v.cache.Refresh(ctx, v.url)
	})
	if err != nil {
		return nil, fmt.Errorf("refresh jwks: %w", err)
	}
	return res.(jwk.Set), nil
}

// InvalidateCache drops parsed keys and forces the key set to be refetched.
func (v *JWKSVerifier) InvalidateCache(ctx context.Context) error {
	v.keys.Purge()
	if _, err := v.cache.Refresh(ctx, v.url); err != nil {
		return shared.WrapExternal("refresh jwks", err)
	}
	return nil
}

// Check reports whether the key set can be fetched.
func (v *JWKSVerifier) Check(ctx context.Context) error {
	if _, err := v.cache.Get(ctx, v.url); err != nil {
		return shared.WrapExternal("fetch jwks", err)
	}
	return nil
}

// Close stops the background key set refresh.
func (v *JWKSVerifier) Close() {
	v.cancel()
}

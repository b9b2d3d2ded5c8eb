package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsSource turns a bearer token into a claim bag.
type ClaimsSource interface {
	Claims(ctx context.Context, token string) (Claims, error)
}

var errNotClaimsObject = errors.New("token payload is not a JSON object")

// UnverifiedDecoder reads the payload segment of a compact JWT without
// checking its signature. It is only safe behind an upstream that has
// already authenticated the token; use JWKSVerifier otherwise.
type UnverifiedDecoder struct {
	parser *jwt.Parser
}

// NewUnverifiedDecoder creates an UnverifiedDecoder
func NewUnverifiedDecoder() *UnverifiedDecoder {
	return &UnverifiedDecoder{
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
	}
}

// Claims decodes the token payload. The header and signature segments are
// not inspected. Any split, base64url or JSON failure returns
// ErrMalformedCredential.
func (d *UnverifiedDecoder) Claims(_ context.Context, token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedCredential.Wrap(jwt.ErrTokenMalformed)
	}

	payload, err := d.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, ErrMalformedCredential.Wrap(err)
	}

	var claims jwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrMalformedCredential.Wrap(err)
	}
	if claims == nil {
		return nil, ErrMalformedCredential.Wrap(errNotClaimsObject)
	}
	return Claims(claims), nil
}

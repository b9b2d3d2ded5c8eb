package auth

import "github.com/jntagengwa/pathway/internal/shared"

var (
	// ErrMissingCredential is returned when no Authorization header is sent
	// and dev mode is off.
	ErrMissingCredential = shared.NewDomainError(shared.ErrorTypeUnauthorized, "missing bearer credential", nil)

	// ErrMalformedCredential covers a wrong scheme, an empty token, or a
	// payload that does not decode to a JSON object.
	ErrMalformedCredential = shared.NewDomainError(shared.ErrorTypeUnauthorized, "malformed bearer credential", nil)

	// ErrInvalidSignature is returned by verifying claim sources.
	ErrInvalidSignature = shared.NewDomainError(shared.ErrorTypeUnauthorized, "token signature could not be verified", nil)

	// ErrMissingSubject is returned when the claims carry no subject.
	ErrMissingSubject = shared.NewDomainError(shared.ErrorTypeUnauthorized, "missing subject claim", nil)

	// ErrMissingTenantClaim is returned when the tenant claim or its tenantId is absent.
	ErrMissingTenantClaim = shared.NewDomainError(shared.ErrorTypeUnauthorized, "missing tenant claim", nil)

	// ErrInvalidClaims is returned when a claim sub-object has the wrong shape.
	ErrInvalidClaims = shared.NewDomainError(shared.ErrorTypeUnauthorized, "invalid claims", nil)

	// ErrContextNotInitialised is returned by Holder.Require before the guard ran.
	ErrContextNotInitialised = shared.NewDomainError(shared.ErrorTypeUnauthorized, "auth context not initialised", nil)

	// ErrGuardNotRun is returned by the field selectors when no context was
	// installed on the request.
	ErrGuardNotRun = shared.NewDomainError(shared.ErrorTypeUnauthorized, "auth context not found: auth.Guard must run before this handler", nil)

	// ErrUnknownField is a programming error: the selector was asked for a
	// field its sub-object does not have.
	ErrUnknownField = shared.NewDomainError(shared.ErrorTypeInternal, "unknown auth context field", nil)
)

package auth

import (
	"context"
	"net/http"
	"slices"
	"sync"
)

// Holder carries the AuthContext for exactly one inbound request. The guard
// creates a new Holder per request and stores it on the request context;
// nothing in this package keeps one at process scope.
type Holder struct {
	mu     sync.RWMutex
	ac     *AuthContext
	parent *Holder
}

// NewHolder returns an empty holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Derive returns a holder for a nested scope. It reads through to h until
// Set is called on it, and Clear restores h's view.
func (h *Holder) Derive() *Holder {
	return &Holder{parent: h}
}

// Set installs the context for this scope.
func (h *Holder) Set(ac *AuthContext) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ac = ac
}

// Clear removes the context installed on this scope.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ac = nil
}

// Get returns the installed context, or nil.
func (h *Holder) Get() *AuthContext {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	ac := h.ac
	h.mu.RUnlock()
	if ac != nil {
		return ac
	}
	return h.parent.Get()
}

// Require returns the installed context or ErrContextNotInitialised.
func (h *Holder) Require() (*AuthContext, error) {
	ac := h.Get()
	if ac == nil {
		return nil, ErrContextNotInitialised
	}
	return ac, nil
}

// CurrentUserID returns the caller's user id, or "" when unauthenticated.
func (h *Holder) CurrentUserID() string {
	if ac := h.Get(); ac != nil {
		return ac.User.UserID
	}
	return ""
}

// CurrentOrgID returns the caller's org id, or "" when unauthenticated.
func (h *Holder) CurrentOrgID() string {
	if ac := h.Get(); ac != nil {
		return ac.Org.OrgID
	}
	return ""
}

// CurrentTenantID returns the caller's tenant id, or "" when unauthenticated.
func (h *Holder) CurrentTenantID() string {
	if ac := h.Get(); ac != nil {
		return ac.Tenant.TenantID
	}
	return ""
}

// Roles returns a copy of the caller's roles. It never returns nil slices.
func (h *Holder) Roles() RoleSet {
	ac := h.Get()
	if ac == nil {
		return EmptyRoleSet()
	}
	return ac.Roles.clone()
}

// Permissions returns a copy of the caller's permissions, or an empty list.
func (h *Holder) Permissions() []string {
	if ac := h.Get(); ac != nil && ac.Permissions != nil {
		return slices.Clone(ac.Permissions)
	}
	return []string{}
}

// Audit returns the actor projection for audit records. An audit record
// without an actor is a bug, so this fails when no context is installed.
func (h *Holder) Audit() (AuditView, error) {
	ac, err := h.Require()
	if err != nil {
		return AuditView{}, err
	}
	return ac.audit(), nil
}

type holderContextKey struct{}

// WithHolder stores the holder on ctx.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderContextKey{}, h)
}

// HolderFromContext returns the request's holder. When none was installed it
// returns a fresh empty holder so the soft accessors still answer safely.
func HolderFromContext(ctx context.Context) *Holder {
	if h, ok := ctx.Value(holderContextKey{}).(*Holder); ok && h != nil {
		return h
	}
	return NewHolder()
}

// Scope returns ctx with a request-scoped holder installed. An outer
// middleware may open the scope first so it can read the context after the
// guard has run; the holder already on ctx is then reused.
func Scope(ctx context.Context) (context.Context, *Holder) {
	if h, ok := ctx.Value(holderContextKey{}).(*Holder); ok && h != nil {
		return ctx, h
	}
	h := NewHolder()
	return WithHolder(ctx, h), h
}

// FromContext returns the AuthContext installed on ctx, if any.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	h, ok := ctx.Value(holderContextKey{}).(*Holder)
	if !ok {
		return nil, false
	}
	ac := h.Get()
	return ac, ac != nil
}

// FromRequest is FromContext for code that only has the *http.Request.
func FromRequest(r *http.Request) (*AuthContext, bool) {
	return FromContext(r.Context())
}

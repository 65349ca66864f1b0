package auth

import (
	"context"

	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
)

type ctxKey string

const (
	principalKey ctxKey = "auth.principal"
	adminKey     ctxKey = "auth.admin"
)

// WithPrincipal stores the authenticated caller identity on the context.
func WithPrincipal(ctx context.Context, principal string, admin bool) context.Context {
	ctx = context.WithValue(ctx, principalKey, principal)
	return context.WithValue(ctx, adminKey, admin)
}

// Principal returns the authenticated caller, if any.
func Principal(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey).(string)
	return p, ok && p != ""
}

// IsAdmin reports whether the caller authenticated with the admin flag.
func IsAdmin(ctx context.Context) bool {
	admin, ok := ctx.Value(adminKey).(bool)
	return ok && admin
}

// Authorizer checks that the caller may act as a given principal.
// Services require authorization before any balance-moving operation.
type Authorizer interface {
	// RequireAuthorized fails unless the caller is principal or admin.
	RequireAuthorized(ctx context.Context, principal string) error

	// RequireAdmin fails unless the caller carries the admin flag.
	RequireAdmin(ctx context.Context) error
}

type claimsAuthorizer struct{}

// NewAuthorizer returns an Authorizer backed by the context claims the
// JWT middleware installs.
func NewAuthorizer() Authorizer {
	return claimsAuthorizer{}
}

func (claimsAuthorizer) RequireAuthorized(ctx context.Context, principal string) error {
	caller, ok := Principal(ctx)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if caller == principal || IsAdmin(ctx) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller may not act as principal")
}

func (claimsAuthorizer) RequireAdmin(ctx context.Context) error {
	if _, ok := Principal(ctx); !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !IsAdmin(ctx) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "admin privileges required")
	}
	return nil
}

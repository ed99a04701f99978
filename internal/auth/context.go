package auth

import (
	"context"
	"errors"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID      string
	TenantID    string
	SubTenantID string
	Role        string
	// ActorType is USER or API_KEY; empty means USER.
	ActorType string
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

func UserID(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.UserID != "" {
		return id.UserID, nil
	}
	return "", errors.New("user_id not in context")
}

func TenantID(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.TenantID != "" {
		return id.TenantID, nil
	}
	return "", errors.New("tenant_id not in context")
}

// SubTenantID returns "" when the caller is not scoped to a sub-tenant.
func SubTenantID(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.SubTenantID
}

func Role(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.Role != "" {
		return id.Role, nil
	}
	return "", errors.New("role not in context")
}

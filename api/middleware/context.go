package middleware

import (
	"context"

	"github.com/pwvale/panel-backend/pkg/enums"
)

type contextKey string

const (
	ctxAccountID   contextKey = "account_id"
	ctxAccountName contextKey = "account_name"
	ctxRole        contextKey = "actor_role"
)

func AccountIDFromContext(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxAccountID).(uint64); ok {
		return v
	}
	return 0
}

func AccountNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccountName).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.AccountRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.AccountRole); ok {
		return v
	}
	return ""
}

// WithAccount seeds the request context with the authenticated identity.
// Exposed for handler tests.
func WithAccount(ctx context.Context, accountID uint64, name string, role enums.AccountRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccountID, accountID)
	ctx = context.WithValue(ctx, ctxAccountName, name)
	return context.WithValue(ctx, ctxRole, role)
}

package account

import (
	"context"
)

var accountCtxKey = &contextKey{"account"}

type contextKey struct {
	name string
}

// WithContext sets the Account in the given context
func WithContext(ctx context.Context, acc *Account) context.Context {
	return context.WithValue(ctx, accountCtxKey, acc)
}

// FromContext finds the account stored by the session middleware
func FromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok && raw != nil
}

// HasRole reports whether the account in ctx holds at least minRole
func HasRole(ctx context.Context, minRole UserRole) bool {
	acc, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return acc.Role.IsAtLeast(minRole)
}

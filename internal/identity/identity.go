package identity

import (
	"context"

	"github.com/geocoder89/skillswap/internal/domain/user"
)

// Principal is the authenticated caller, resolved once per request.
type Principal struct {
	UserID string
	Email  string
	Role   user.Role
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)

	return p, ok && p.UserID != ""
}

package middleware

import (
	"context"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/authgate"
)

type ctxKey int

const principalKey ctxKey = iota

func InjectPrincipal(ctx context.Context, p authgate.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (authgate.Principal, bool) {
	p, ok := ctx.Value(principalKey).(authgate.Principal)
	return p, ok
}

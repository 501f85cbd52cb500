package auth

import "context"

type ctxKey string

const (
	ctxIdentity ctxKey = "identity"
	ctxToken    ctxKey = "token"
)

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

// WithToken stores the caller's raw bearer token so upstream calls are made
// on the cashier's behalf.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxToken, token)
}

func TokenFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxToken).(string); ok {
		return s
	}
	return ""
}

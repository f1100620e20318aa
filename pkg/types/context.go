package types

import "context"

type claimsContextKey struct{}

// ContextWithClaims attaches the authenticated principal to a request context
func ContextWithClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the authenticated principal from a request context
func ClaimsFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*UserClaims)
	return claims, ok
}

type clientIPContextKey struct{}

// ContextWithClientIP attaches the caller's remote address for audit trails
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext extracts the caller's remote address, if recorded
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

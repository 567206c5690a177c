package authz

import (
	"context"
	"net/http"
)

type contextKey string

const runClaimsKey contextKey = "run_claims"

// WithRunClaims stores the verified run scope on the context.
func WithRunClaims(ctx context.Context, claims RunClaims) context.Context {
	return context.WithValue(ctx, runClaimsKey, claims)
}

// RunClaimsFromRequest returns the run scope attached by the middleware.
func RunClaimsFromRequest(r *http.Request) (RunClaims, bool) {
	claims, ok := r.Context().Value(runClaimsKey).(RunClaims)
	if !ok || claims.RunID == "" {
		return RunClaims{}, false
	}
	return claims, true
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"data_quest/internal/common"
	"data_quest/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

// Caller is the identity a request runs as, taken from its bearer token.
type Caller struct {
	ID   string
	Role string
}

type callerKey struct{}

var errNoToken = errors.New("authorization token required")

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom reports false outside RequireCaller.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok && c.ID != ""
}

// RequireCaller answers 401 unless jwtauth.Verifier accepted a token with
// both a user id and a role claim.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := callerFromToken(r.Context())
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func callerFromToken(ctx context.Context) (Caller, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	switch {
	case errors.Is(err, jwtauth.ErrNoTokenFound):
		return Caller{}, errNoToken
	case err != nil:
		return Caller{}, fmt.Errorf("invalid token: %w", err)
	case token == nil:
		return Caller{}, errNoToken
	}

	id, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return Caller{}, fmt.Errorf("invalid token claims: %w", err)
	}
	role, err := security.GetUserRoleFromClaims(claims)
	if err != nil {
		return Caller{}, fmt.Errorf("invalid token claims: %w", err)
	}
	return Caller{ID: id, Role: role}, nil
}

// RequireRole answers 403 to callers without role. Mount it after RequireCaller.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, ok := CallerFrom(r.Context()); !ok || c.Role != role {
				common.RespondWithError(w, http.StatusForbidden, role+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

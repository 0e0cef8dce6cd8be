package middleware

import (
	"context"

	"github.com/vatavaran/vatavaran-backend/internal/authz"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
)

type principalKey struct{}

// principal is what Auth learns about the caller.
type principal struct {
	actor     authz.Actor
	sessionID string
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (principal, bool) {
	if ctx == nil {
		return principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// WithActor injects an authenticated actor without a session, for tests and
// internal callers.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return withPrincipal(ctx, principal{actor: actor})
}

// ActorFromContext returns the authenticated actor. ok is false on requests
// that did not pass Auth or carry an unusable identity.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	p, ok := principalFrom(ctx)
	if !ok || !p.actor.Role.IsValid() {
		return authz.Actor{}, false
	}
	return p.actor, true
}

// StaffIDFromContext is "" for anonymous requests.
func StaffIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.ID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.Role {
	actor, _ := ActorFromContext(ctx)
	return actor.Role
}

// SessionIDFromContext returns the jti of the access token that authenticated the request.
func SessionIDFromContext(ctx context.Context) string {
	p, _ := principalFrom(ctx)
	return p.sessionID
}

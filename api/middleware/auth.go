package middleware

import (
	"net/http"
	"strings"

	"github.com/vatavaran/vatavaran-backend/api/responses"
	"github.com/vatavaran/vatavaran-backend/internal/authz"
	pkgAuth "github.com/vatavaran/vatavaran-backend/pkg/auth"
	"github.com/vatavaran/vatavaran-backend/pkg/auth/session"
	"github.com/vatavaran/vatavaran-backend/pkg/config"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
)

const bearerScheme = "bearer"

// BearerToken reads the Authorization header. The "Bearer" scheme is optional
// and matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, bearerScheme) {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return raw, nil
}

// Auth admits requests that carry a valid access token whose session is still
// live in Redis. A nil checker skips the session lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := withPrincipal(r.Context(), p)
			if logg != nil {
				ctx = logg.WithUserID(ctx, p.actor.ID.String())
				ctx = logg.WithActorRole(ctx, p.actor.Role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (principal, error) {
	token, err := BearerToken(r)
	if err != nil {
		return principal{}, err
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if sessions != nil {
		live, err := sessions.HasSession(r.Context(), claims.ID)
		if err != nil {
			return principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or revoked")
		}
	}
	return principal{
		actor:     authz.Actor{ID: claims.StaffID, Role: claims.Role},
		sessionID: claims.ID,
	}, nil
}

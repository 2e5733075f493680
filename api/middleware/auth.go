package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/bookstore-backend/api/responses"
	pkgAuth "github.com/angelmondragon/bookstore-backend/pkg/auth"
	"github.com/angelmondragon/bookstore-backend/pkg/auth/session"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
	"github.com/google/uuid"
)

// UserChecker confirms the session's user still exists.
type UserChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Auth authenticates the session cookie (or a bearer token carrying the same
// signed value), resolves the server-side session and seeds the request
// context with the user and session ids.
func Auth(cfg config.SessionConfig, sessions session.Resolver, users UserChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cfg.CookieName)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session"))
				return
			}

			if sessions != nil {
				userID, err := sessions.Resolve(r.Context(), claims.SessionID())
				if err != nil {
					if errors.Is(err, session.ErrSessionNotFound) {
						responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
						return
					}
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if userID != claims.UserID {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session mismatch"))
					return
				}
			}

			if users != nil {
				ok, err := users.Exists(r.Context(), claims.UserID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session user"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user no longer exists"))
					return
				}
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithSessionID(ctx, claims.SessionID())
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			if v := strings.TrimSpace(cookie.Value); v != "" {
				return v
			}
		}
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Authenticator resolves a bearer token to the principal behind an active
// session. Revoked or expired sessions must return an error.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (requestcontext.Actor, domain.SessionID, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// actor and session id for downstream services.
func RequireAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error":             "unauthorized",
					"error_description": "Missing or invalid Authorization header",
				})
				return
			}

			actor, sessionID, err := authenticator.Authenticate(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - session rejected",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithActor(ctx, actor)
			ctx = requestcontext.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

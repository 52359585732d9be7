package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"contentflow/internal/auth"
	"contentflow/internal/domain"
	"contentflow/internal/httputil"
)

// Auth requires a valid bearer token on every route except the public
// ones. A nil verifier disables the check.
func Auth(verifier auth.Verifier, logger *slog.Logger, public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path, public) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				var authErr *domain.UnauthorizedError
				msg := "invalid token"
				if errors.As(err, &authErr) {
					msg = authErr.Message
				}
				logger.Debug("request rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, msg)
				return
			}

			next.ServeHTTP(w, httputil.WithSubject(r, claims.Subject))
		})
	}
}

func isPublic(path string, public []string) bool {
	for _, p := range public {
		if path == p {
			return true
		}
	}
	return false
}

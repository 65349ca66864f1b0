package middleware

import (
	"net/http"
	"strings"

	"github.com/meridianpay/subvault/api/responses"
	pkgauth "github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/config"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// calling principal.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := pkgauth.WithPrincipal(r.Context(), claims.Principal, claims.Admin)
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, claims.Principal)
				if claims.Admin {
					ctx = logg.WithField(ctx, "admin", true)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

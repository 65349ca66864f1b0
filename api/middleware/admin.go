package middleware

import (
	"net/http"

	"github.com/meridianpay/subvault/api/responses"
	pkgauth "github.com/meridianpay/subvault/pkg/auth"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

// RequireAdmin gates a route on the admin claim of the access token.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pkgauth.IsAdmin(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

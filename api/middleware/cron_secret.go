package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/orbsphere/orbzy-backend/api/responses"
	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
)

// CronSecret guards the public sweep trigger with a shared bearer secret.
// An empty secret leaves the route open, which is only sensible when the
// route is not exposed.
func CronSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		expected := []byte(secret)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(bearerToken(r))
			if subtle.ConstantTimeCompare(provided, expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid cron secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

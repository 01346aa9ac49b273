package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/orbsphere/orbzy-backend/api/responses"
	pkgerrors "github.com/orbsphere/orbzy-backend/pkg/errors"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
	pkgredis "github.com/orbsphere/orbzy-backend/pkg/redis"
)

// UserRateLimitPolicy caps how often one user may hit an action across all
// API instances.
type UserRateLimitPolicy struct {
	name   string
	limit  int
	window time.Duration
}

func NewUserRateLimitPolicy(name string, limit int, window time.Duration) UserRateLimitPolicy {
	return UserRateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		limit:  limit,
		window: window,
	}
}

func (p UserRateLimitPolicy) enabled() bool {
	return p.limit > 0 && p.window > 0 && p.name != ""
}

func (p UserRateLimitPolicy) scope(userID string) string {
	return p.name + ":user:" + userID
}

// UserRateLimit counts requests per authenticated user in a Redis fixed
// window. It must run after Auth.
func UserRateLimit(policy UserRateLimitPolicy, limiter pkgredis.FixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := UserIDFromContext(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope(userID), int64(policy.limit), policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"scope":          "user",
						"policy":         policy.name,
						"attempts":       count,
						"limit":          policy.limit,
						"window_seconds": int(policy.window.Seconds()),
					})
					logg.Warn(logCtx, "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many escalation requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

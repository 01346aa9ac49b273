package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orbsphere/orbzy-backend/api/controllers"
	bookingcontrollers "github.com/orbsphere/orbzy-backend/api/controllers/bookings"
	"github.com/orbsphere/orbzy-backend/api/middleware"
	"github.com/orbsphere/orbzy-backend/internal/bookings"
	"github.com/orbsphere/orbzy-backend/pkg/config"
	"github.com/orbsphere/orbzy-backend/pkg/enums"
	"github.com/orbsphere/orbzy-backend/pkg/logger"
	"github.com/orbsphere/orbzy-backend/pkg/metrics"
	pkgredis "github.com/orbsphere/orbzy-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Nil Redis
// collaborators disable idempotency and per-user limits.
type Dependencies struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         controllers.Pinger
	RedisPinger      controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	RateLimiter      pkgredis.FixedWindowLimiter
	Gatherer         prometheus.Gatherer
	Bookings         bookings.Service
	Escalator        bookingcontrollers.Escalator
	Sweeper          controllers.OverdueSweeper
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst), logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DBPinger, deps.RedisPinger, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.CronSecret(cfg.Escalation.CronSecret, logg))
		sweep := controllers.EscalateBookings(deps.Sweeper, logg)
		r.Get("/escalate-bookings", sweep)
		r.Post("/escalate-bookings", sweep)
	})

	escalatePolicy := middleware.NewUserRateLimitPolicy(
		"escalate",
		cfg.RateLimit.EscalateLimit,
		cfg.RateLimit.EscalateWindow,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, cfg.Redis.IdempotencyTTL, logg))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", bookingcontrollers.Create(deps.Bookings, logg))
			r.Get("/", bookingcontrollers.List(deps.Bookings, logg))
			r.Route("/{bookingId}", func(r chi.Router) {
				r.Get("/", bookingcontrollers.Detail(deps.Bookings, logg))
				r.Post("/cancel", bookingcontrollers.Cancel(deps.Bookings, logg))
				r.With(middleware.UserRateLimit(escalatePolicy, deps.RateLimiter, logg)).
					Post("/escalate", bookingcontrollers.Escalate(deps.Escalator, logg))
			})
		})

		r.Route("/provider", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleProvider))
			r.Post("/bookings/{bookingId}/confirm", bookingcontrollers.ProviderConfirm(deps.Bookings, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Post("/bookings/{bookingId}/confirm", bookingcontrollers.AdminConfirm(deps.Bookings, logg))
		})
	})

	return r
}

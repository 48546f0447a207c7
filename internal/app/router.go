package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shoiron/shoiron/internal/auth"
	"github.com/shoiron/shoiron/internal/authors"
	"github.com/shoiron/shoiron/internal/employees"
	"github.com/shoiron/shoiron/internal/mailer"
	"github.com/shoiron/shoiron/internal/observability"
	"github.com/shoiron/shoiron/internal/poems"
	"github.com/shoiron/shoiron/internal/ratelimit"
	"github.com/shoiron/shoiron/internal/rbac"
	"github.com/shoiron/shoiron/internal/reactions"
	"github.com/shoiron/shoiron/internal/roles"
	"github.com/shoiron/shoiron/internal/search"
	"github.com/shoiron/shoiron/internal/shared"
	"github.com/shoiron/shoiron/jobs"
)

// RouterConfig aggregates the dependencies of the HTTP surface.
type RouterConfig struct {
	Logger   *slog.Logger
	Config   *Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Sessions *shared.SessionManager
	CSRF     *shared.CSRFManager
	Metrics  *observability.Metrics
	Mailer   mailer.Sender
	Jobs     *jobs.Handler
}

// NewRouter builds the portal router: the public API under /api and the
// admin dashboard under /api/dashboard.
func NewRouter(cfg RouterConfig) chi.Router {
	validate := validator.New()

	guard := rbac.Middleware{Service: rbac.NewService(cfg.Pool), Logger: cfg.Logger}

	limiter := ratelimit.NewLimiter(cfg.Redis, cfg.Logger)
	reactionsRule := ratelimit.Rule{Scope: ratelimit.ScopeReactions, Limit: cfg.Config.ThrottleReactionsPerMin, Window: time.Minute}
	viewsRule := ratelimit.Rule{Scope: ratelimit.ScopeViews, Limit: cfg.Config.ThrottleViewsPerMin, Window: time.Minute}
	searchRule := ratelimit.Rule{Scope: ratelimit.ScopeSearch, Limit: cfg.Config.ThrottleSearchPerMin, Window: time.Minute}

	authService := auth.NewService(auth.NewPGRepository(cfg.Pool), cfg.Mailer, cfg.Config.TempPasswordTTL, cfg.Logger)
	authHandler := auth.NewHandler(authService, cfg.Sessions, cfg.CSRF, validate, cfg.Logger)

	employeesHandler := employees.NewHandler(employees.NewService(cfg.Pool, cfg.Logger), validate, cfg.Logger)
	rolesHandler := roles.NewHandler(roles.NewService(cfg.Pool, cfg.Logger), validate, cfg.Logger)

	poemsService := poems.NewService(cfg.Pool, cfg.Redis, cfg.Logger)
	poemsHandler := poems.NewHandler(poemsService, cfg.Logger)
	poemsAdmin := poems.NewAdminHandler(poemsService, validate, cfg.Logger)

	authorsService := authors.NewService(cfg.Pool, cfg.Logger)
	authorsHandler := authors.NewHandler(authorsService, cfg.Logger)
	authorsAdmin := authors.NewAdminHandler(authorsService, validate, cfg.Logger)

	reactionsHandler := reactions.NewHandler(reactions.NewService(cfg.Pool, cfg.Logger), validate, cfg.Logger)
	searchHandler := search.NewHandler(search.NewService(cfg.Pool), cfg.Logger)

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         cfg.Logger,
		Config:         cfg.Config,
		SessionManager: cfg.Sessions,
		CSRFManager:    cfg.CSRF,
		Metrics:        cfg.Metrics,
	}) {
		r.Use(mw)
	}

	r.Route("/api", func(r chi.Router) {
		poemsHandler.MountRoutes(r, limiter.Throttle(viewsRule, ratelimit.ByIdentityAndParam("id")))
		authorsHandler.MountRoutes(r, poemsHandler.ListByAuthor)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Throttle(reactionsRule, nil))
			reactionsHandler.MountRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(limiter.Throttle(searchRule, nil))
			searchHandler.MountRoutes(r)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(CSRFMiddleware(cfg.CSRF, cfg.Logger))
			r.Use(guard.WithAccess)
			authHandler.MountRoutes(r, guard)
			employeesHandler.MountRoutes(r, guard)
			rolesHandler.MountRoutes(r, guard)
			authorsAdmin.MountRoutes(r, guard, poemsAdmin.ListForAuthor, poemsAdmin.CreateForAuthor)
			poemsAdmin.MountRoutes(r, guard)
			if cfg.Jobs != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(guard.RequireAnyRead)
					cfg.Jobs.MountRoutes(r)
				})
			}
		})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	return r
}

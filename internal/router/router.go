package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/handlers"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/middleware"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
)

type Options struct {
	ServiceName     string
	SignInPerMinute int
	RequestTimeout  time.Duration
}

func NewRouter(
	authH *handlers.AuthHandler,
	postH *handlers.PostHandler,
	pageH *handlers.PageHandler,
	liveH http.Handler,
	auth middleware.Authenticator,
	opts Options,
) http.Handler {

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(observability.MetricsMiddleware(opts.ServiceName))
	r.Use(middleware.Recovery())

	r.Get("/health/live", observability.HealthLiveHandler)

	// Long-lived; no request timeout.
	r.With(middleware.RequireSession(auth)).Get("/ws/dashboard", liveH.ServeHTTP)

	r.Group(func(p chi.Router) {
		p.Use(middleware.Timeout(opts.RequestTimeout))

		p.Get("/", pageH.Landing)

		p.With(middleware.RateLimit(opts.SignInPerMinute, time.Minute)).
			Post("/api/v1/auth/signin", authH.SignIn)

		p.Group(func(a chi.Router) {
			a.Use(middleware.RequireSession(auth))

			a.Post("/api/v1/auth/signout", authH.SignOut)

			postsPath := "/api/v1/posts"
			a.Post(postsPath, postH.Create)
			a.Patch(postsPath+"/{id}", postH.Update)
			a.Delete(postsPath+"/{id}", postH.Delete)
		})

		p.With(middleware.RedirectWithoutSession(auth, "/")).Get("/dashboard", pageH.Dashboard)

		p.Get("/{username}", pageH.Profile)
	})

	return otelhttp.NewHandler(r, opts.ServiceName)
}

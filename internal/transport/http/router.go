package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/textcircle/backend/internal/transport/middleware"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Groups    *GroupHandler
	Admin     *AdminHandler
	Webhook   *WebhookHandler
	JWTSecret string
	Logger    *slog.Logger
}

// NewRouter assembles the service's route tree. The webhook and auth routes
// are public; the user registry, groups and pool administration sit behind
// the access token.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", deps.Auth.RegisterRoutes)
		api.Route("/sms", deps.Webhook.RegisterRoutes)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.Logger))
			protected.Route("/users", deps.Users.RegisterRoutes)
			protected.Route("/groups", deps.Groups.RegisterRoutes)
			protected.Route("/admin", deps.Admin.RegisterRoutes)
		})
	})

	return r
}

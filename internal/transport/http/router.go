package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"socialmaps/internal/handler"
	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
	"socialmaps/internal/metrics"
	authmw "socialmaps/internal/transport/http/middleware"
)

const healthTimeout = 2 * time.Second

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	UserHandler         *handler.UserHandler
	FollowHandler       *handler.FollowHandler
	NotificationHandler *handler.NotificationHandler
	MediaHandler        *handler.MediaHandler
	PlacesHandler       *handler.PlacesHandler
	// WebhookHandler is nil when no signing secret is configured; the route is then not mounted.
	WebhookHandler *handler.WebhookHandler

	// FollowRequestLimiter guards POST /users/{id}/follow-request. Optional.
	FollowRequestLimiter *authmw.RateLimiter

	MetricsHandler http.Handler
	Metrics        metrics.Recorder
	Logger         *zap.Logger
	// HealthCheck backs /health. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
	JWTSecret   string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = logger.Named("http")
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := cfg.HealthCheck(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	if cfg.WebhookHandler != nil {
		r.Post("/webhooks/identity", cfg.WebhookHandler.Handle)
	}

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Route("/me", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.Me)
			r.Patch("/", cfg.UserHandler.UpdateMe)
			r.Put("/avatar", cfg.UserHandler.UpdateAvatar)
			r.Put("/push-token", cfg.UserHandler.SetPushToken)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", cfg.UserHandler.Search)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.UserHandler.GetProfile)
				r.Get("/follow-data", cfg.FollowHandler.FollowData)
				r.Get("/followers", cfg.FollowHandler.GetFollowers)
				r.Get("/following", cfg.FollowHandler.GetFollowing)
				r.Delete("/follow", cfg.FollowHandler.Unfollow)
				r.Get("/images", cfg.MediaHandler.UserImages)

				r.Route("/follow-request", func(r chi.Router) {
					if cfg.FollowRequestLimiter != nil {
						r.With(cfg.FollowRequestLimiter.Middleware).Post("/", cfg.NotificationHandler.SendFollowRequest)
					} else {
						r.Post("/", cfg.NotificationHandler.SendFollowRequest)
					}
					r.Get("/", cfg.NotificationHandler.PendingRequest)
					r.Delete("/", cfg.NotificationHandler.CancelRequest)
				})
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Post("/requests/{id}/accept", cfg.NotificationHandler.Accept)
			r.Post("/requests/{id}/reject", cfg.NotificationHandler.Reject)
		})

		r.Post("/posts", cfg.MediaHandler.CreatePost)

		r.Route("/places", func(r chi.Router) {
			r.Get("/nearby", cfg.PlacesHandler.Nearby)
			r.Get("/geocode", cfg.PlacesHandler.Geocode)
			r.Get("/directions", cfg.PlacesHandler.Directions)
			r.Get("/photo", cfg.PlacesHandler.Photo)
			r.Post("/estimates", cfg.PlacesHandler.Estimates)
		})
	})

	return r
}

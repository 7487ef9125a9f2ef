package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialmaps/internal/cache"
	"socialmaps/internal/config"
	"socialmaps/internal/database"
	"socialmaps/internal/handler"
	"socialmaps/internal/logger"
	"socialmaps/internal/maps"
	"socialmaps/internal/metrics"
	"socialmaps/internal/queue"
	"socialmaps/internal/redis"
	"socialmaps/internal/repository"
	"socialmaps/internal/service"
	"socialmaps/internal/storage"
	authmw "socialmaps/internal/transport/http/middleware"
	"socialmaps/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// Options toggles the optional parts of the serve process.
type Options struct {
	// WithWorker runs the push worker in-process when Redis is configured.
	WithWorker bool
}

// Run serves the API until ctx is cancelled, then drains in-flight requests.
// Redis, object storage and the webhook are optional and degrade with a warning.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	log := logger.Named("server")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	var (
		publisher   queue.Publisher
		placesCache cache.PlacesCache
		pushWorkers *worker.Manager
	)
	if cfg.RedisURL != "" {
		rc, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rc.Close()

		publisher = queue.NewPublisher(rc.Client)
		placesCache = cache.NewPlacesCache(rc.Client)

		if opts.WithWorker {
			pushWorkers, err = worker.StartPush(ctx, cfg, rc.Client, repository.NewUserRepository(db), rec)
			if err != nil {
				return err
			}
			defer pushWorkers.Stop()
		}
	} else {
		log.Warn("REDIS_URL not set: places cache, event stream and push notifications are disabled")
	}

	var store storage.ObjectStore
	if cfg.StorageEnabled() {
		s3Store, err := storage.NewS3Store(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to init object storage: %w", err)
		}
		store = s3Store
	} else {
		log.Warn("object storage not configured: uploads and image listing are disabled")
	}

	var webhook *handler.WebhookHandler
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tx := repository.NewTxManager(db)

	mediaService := service.NewMediaService(store)
	userService := service.NewUserService(userRepo, followRepo, notifRepo, mediaService)
	followService := service.NewFollowService(followRepo, userRepo, tx, publisher, rec)
	notificationService := service.NewNotificationService(notifRepo, userRepo, followService, tx, publisher, rec)
	placesService := service.NewPlacesService(maps.NewClient(cfg.MapsBaseURL, cfg.MapsAPIKey), placesCache)

	if cfg.WebhookSecret != "" {
		webhook, err = handler.NewWebhookHandler(userService, cfg.WebhookSecret)
		if err != nil {
			return fmt.Errorf("invalid WEBHOOK_SECRET: %w", err)
		}
	} else {
		log.Warn("WEBHOOK_SECRET not set: identity webhook is disabled")
	}

	followLimiter := authmw.NewPerMinuteLimiter("follow_request", cfg.FollowRequestRatePerMin)
	defer followLimiter.Stop()

	router := NewRouter(RouterConfig{
		UserHandler:          handler.NewUserHandler(userService),
		FollowHandler:        handler.NewFollowHandler(followService),
		NotificationHandler:  handler.NewNotificationHandler(notificationService),
		MediaHandler:         handler.NewMediaHandler(mediaService),
		PlacesHandler:        handler.NewPlacesHandler(placesService),
		WebhookHandler:       webhook,
		FollowRequestLimiter: followLimiter,
		MetricsHandler:       metrics.Handler(reg),
		Metrics:              rec,
		Logger:               logger.Named("http"),
		HealthCheck:          db.PingContext,
		JWTSecret:            cfg.AuthJWTSecret,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package worker

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socialmaps/internal/config"
	"socialmaps/internal/database"
	"socialmaps/internal/logger"
	"socialmaps/internal/metrics"
	"socialmaps/internal/queue"
	"socialmaps/internal/redis"
	"socialmaps/internal/repository"
	"socialmaps/internal/service"
)

// StartPush wires the push pipeline (stream consumer, Expo client, handler) and starts it.
// The caller owns Stop.
func StartPush(ctx context.Context, cfg *config.Config, client *goredis.Client, users RecipientLoader, rec metrics.Recorder) (*Manager, error) {
	handler := NewHandler(users, service.NewExpoPushClient(cfg.ExpoPushURL), rec)
	mcfg := DefaultManagerConfig()
	if cfg.WorkerInstance != "" {
		mcfg.Instance = cfg.WorkerInstance
	}
	manager := NewManager(queue.NewConsumer(client), handler, mcfg)
	if err := manager.Start(ctx); err != nil {
		return nil, fmt.Errorf("start push workers: %w", err)
	}
	return manager, nil
}

// Run is the standalone worker process: it consumes the notification stream until ctx ends.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.Named("worker")

	if cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required to run the push worker")
	}

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	rc, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rc.Close()

	manager, err := StartPush(ctx, cfg, rc.Client, repository.NewUserRepository(db), metrics.Nop{})
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down push worker", zap.Error(context.Cause(ctx)))
	manager.Stop()
	return nil
}

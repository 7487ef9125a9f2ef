package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"socialmaps/internal/config"
	"socialmaps/internal/database"
	"socialmaps/internal/logger"
	"socialmaps/internal/transport/http"
	"socialmaps/internal/worker"
)

func main() {
	os.Exit(run(os.Args))
}

// run returns the process exit code so deferred cleanup (signal stop, log sync) runs before exit.
func run(args []string) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.Setup(cfg.LogLevel)
	defer func() { _ = logger.L.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "socialmaps",
		Usage: "social map API server",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "with-worker",
						Usage: "also run the push notification worker in this process",
						Value: true,
					},
				},
				Action: func(c *cli.Context) error {
					return http.Run(c.Context, cfg, http.Options{WithWorker: c.Bool("with-worker")})
				},
			},
			{
				Name:  "worker",
				Usage: "run only the push notification worker",
				Action: func(c *cli.Context) error {
					return worker.Run(c.Context, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back database migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply all pending migrations",
						Action: func(*cli.Context) error {
							if err := database.RunMigrations(cfg.DSN()); err != nil {
								return err
							}
							logger.L.Info("migrations applied")
							return nil
						},
					},
					{
						Name:      "down",
						Usage:     "roll back migrations",
						ArgsUsage: "[steps]",
						Action: func(c *cli.Context) error {
							steps := 1
							if c.Args().Present() {
								n, err := strconv.Atoi(c.Args().First())
								if err != nil {
									return fmt.Errorf("steps must be a number: %w", err)
								}
								steps = n
							}
							if err := database.RollbackMigrations(cfg.DSN(), steps); err != nil {
								return err
							}
							logger.L.Info("migrations rolled back", zap.Int("steps", steps))
							return nil
						},
					},
				},
			},
		},
	}

	if err := app.RunContext(ctx, args); err != nil {
		logger.L.Error("command failed", zap.Error(err))
		return 1
	}
	return 0
}

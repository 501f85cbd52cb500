package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/journal"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/session"
)

const sessionSweepInterval = time.Minute

func main() {
	app := &cli.App{
		Name:  "pos-terminal",
		Usage: "point-of-sale terminal backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Value:   ".env",
				Usage:   "optional dotenv file loaded before POS_* variables",
				EnvVars: []string{"POS_ENV_FILE"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API", Action: serve},
			{Name: "migrate", Usage: "apply database migrations and exit", Action: migrate},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("pos-terminal")
	}
}

func setup(c *cli.Context) (config.Config, logrus.FieldLogger, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func migrate(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	return db.RunMigrations(cfg.DatabaseDSN, logger)
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return errors.Wrap(err, "db connect")
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return errors.Wrap(err, "db migrate")
		}
	}

	sqlDB := db.OpenSQL(pool)
	defer sqlDB.Close()
	receipts := journal.NewRepository(sqlDB)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	// --- upstream POS API ---
	api := clients.NewClient("pos-api", cfg.APIBaseURL, clients.Options{
		Timeout: cfg.UpstreamTimeout,
		Retries: cfg.UpstreamRetries,
	})
	orders := clients.NewOrderClient(api)
	products := catalog.NewCache(clients.NewCatalogClient(api), rdb, cfg.CatalogCacheTTL, logger)

	// --- AMQP ---
	var publisher events.Publisher = events.NopPublisher{}
	conn, err := events.Dial(cfg.RabbitMQURL)
	if err != nil {
		return errors.Wrap(err, "rabbitmq dial")
	}
	defer conn.Close()

	if cfg.PublishEvents {
		pub, err := events.NewRabbitPublisher(conn, sequence.NewRepository(pool), events.PublisherOptions{})
		if err != nil {
			return errors.Wrap(err, "start publisher")
		}
		defer pub.Close()
		publisher = pub
	}

	consumer := events.NewCatalogChangedConsumer(pool, dedup.NewRepository(pool), products, logger)
	if err := consumer.Start(ctx, conn); err != nil {
		return errors.Wrap(err, "start consumer")
	}

	// --- sessions ---
	var cartOpts []cart.Option
	if cfg.EnforceStock {
		cartOpts = append(cartOpts, cart.WithStockBound())
	}
	sessions := session.NewRegistry(cfg.SessionIdleTimeout, logger, cartOpts...)
	go sessions.Run(ctx, sessionSweepInterval)

	// --- HTTP ---
	h := httpapi.NewHandler(httpapi.Deps{
		Sessions: sessions,
		Catalog:  products,
		Checkout: checkout.NewService(orders, receipts, publisher, cfg.TerminalID, logger),
		Register: clients.NewRegisterClient(api),
		Receipts: receipts,
		Settings: clients.NewSettingsClient(api),
		Health: func(ctx context.Context) []clients.HealthResult {
			return []clients.HealthResult{
				clients.CheckHealth(ctx, clients.HealthProbe{Name: "pos-api", Client: api, Path: "/health"}),
			}
		},
	}, logger)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(h, httpapi.RouterOptions{
			Tokens:      auth.NewValidator(cfg.JWTSecret),
			CORSOrigins: cfg.CORSAllowOrigins,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.WithError(runErr).Error("http server failed")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}

	logger.Info("shutdown complete")
	return runErr
}

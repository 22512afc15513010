package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/umpyre-code/beancounter/internal/cache"
	"github.com/umpyre-code/beancounter/internal/config"
	"github.com/umpyre-code/beancounter/internal/connect"
	"github.com/umpyre-code/beancounter/internal/escrow"
	"github.com/umpyre-code/beancounter/internal/ledger"
	"github.com/umpyre-code/beancounter/internal/logger"
	"github.com/umpyre-code/beancounter/internal/provider"
	"github.com/umpyre-code/beancounter/internal/ral"
	"github.com/umpyre-code/beancounter/internal/rpc"
	"github.com/umpyre-code/beancounter/internal/store"
)

func main() {
	// A missing .env is fine in production where config comes from the
	// real environment; godotenv.Load only helps local development.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "beancounter",
		Usage: "BeanCounter ledger and payments core",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the RPC server",
				Flags:  serverFlags,
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Flags:  []cli.Flag{databaseFlag},
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var databaseFlag = &cli.StringFlag{
	Name:    "database",
	Usage:   "Database connection string (sqlite://path/to/db.sqlite or postgresql://...)",
	Value:   "sqlite://./data/beancounter.db",
	EnvVars: []string{"BEANCOUNTER_DATABASE"},
}

var serverFlags = []cli.Flag{
	databaseFlag,
	&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"BEANCOUNTER_HOST"}},
	&cli.IntFlag{Name: "port", Value: 8080, EnvVars: []string{"BEANCOUNTER_PORT"}},
	&cli.StringFlag{Name: "redis-url", EnvVars: []string{"BEANCOUNTER_REDIS_URL"}},
	&cli.StringFlag{Name: "oauth-client-id", EnvVars: []string{"BEANCOUNTER_OAUTH_CLIENT_ID"}},
	&cli.StringFlag{Name: "oauth-client-secret", EnvVars: []string{"BEANCOUNTER_OAUTH_CLIENT_SECRET"}},
	&cli.StringFlag{Name: "oauth-redirect-url", EnvVars: []string{"BEANCOUNTER_OAUTH_REDIRECT_URL"}},
	&cli.StringFlag{Name: "oauth-auth-url", Value: "https://connect.stripe.com/oauth/authorize", EnvVars: []string{"BEANCOUNTER_OAUTH_AUTH_URL"}},
	&cli.StringFlag{Name: "oauth-token-url", Value: "https://connect.stripe.com/oauth/token", EnvVars: []string{"BEANCOUNTER_OAUTH_TOKEN_URL"}},
	&cli.Float64Flag{Name: "fee-rate", Value: ledger.DefaultFeeRate, EnvVars: []string{"BEANCOUNTER_FEE_RATE"}},
	&cli.IntFlag{Name: "ral-window", Value: ral.DefaultWindow, EnvVars: []string{"BEANCOUNTER_RAL_WINDOW"}},
	&cli.IntFlag{Name: "ral-min-samples", Value: ral.DefaultMinSamples, EnvVars: []string{"BEANCOUNTER_RAL_MIN_SAMPLES"}},
	&cli.StringFlag{Name: "stripe-api-key", EnvVars: []string{"BEANCOUNTER_STRIPE_API_KEY"}},
	&cli.StringFlag{Name: "log-env", Value: "development", EnvVars: []string{"BEANCOUNTER_ENV"}},
}

func configFromFlags(c *cli.Context) config.Config {
	return config.Config{
		Host:              c.String("host"),
		Port:              c.Int("port"),
		DatabaseURL:       c.String("database"),
		RedisURL:          c.String("redis-url"),
		LogEnv:            c.String("log-env"),
		OAuthClientID:     c.String("oauth-client-id"),
		OAuthClientSecret: c.String("oauth-client-secret"),
		OAuthRedirectURL:  c.String("oauth-redirect-url"),
		OAuthAuthURL:      c.String("oauth-auth-url"),
		OAuthTokenURL:     c.String("oauth-token-url"),
		FeeRate:           c.Float64("fee-rate"),
		RALWindow:         c.Int("ral-window"),
		RALMinSamples:     c.Int("ral-min-samples"),
		StripeAPIKey:      c.String("stripe-api-key"),
	}
}

func runServer(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutdown signal received, cleaning up...")
		cancel()
	}()

	cfg := configFromFlags(c)

	os.Setenv("BEANCOUNTER_ENV", cfg.LogEnv)
	ctx, zapLogger := logger.PrepareLogger(ctx)
	defer logger.Sync(ctx)

	driver, dsn, err := config.ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	s, err := store.Open(driver, dsn, zapLogger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	var idem *cache.IdempotencyCache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		idem = cache.New(redis.NewClient(opt))
	}

	l := ledger.New(s, cfg.FeeRate)
	r := ral.New(s, cfg.RALWindow, cfg.RALMinSamples)
	e := escrow.New(s, l, r, idem)

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		Endpoint:     oauth2.Endpoint{AuthURL: cfg.OAuthAuthURL, TokenURL: cfg.OAuthTokenURL},
	}
	transferer := provider.NewStripeConnectTransferer(cfg.StripeAPIKey)
	conn := connect.New(s, l, transferer, oauthCfg)

	charger := provider.NewStripeCardCharger(cfg.StripeAPIKey)
	svc := rpc.NewService(s, l, e, conn, charger)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      rpc.NewRouter(svc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zapLogger.Info("beancounter server starting",
		zap.String("addr", cfg.Addr()),
		zap.String("database_driver", driver),
	)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf(ctx, "server error: %v", err)
		}
	}()

	<-ctx.Done()

	zapLogger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown error", zap.Error(err))
	}

	zapLogger.Info("server stopped")
	return nil
}

func runMigrate(c *cli.Context) error {
	ctx := context.Background()
	ctx, zapLogger := logger.PrepareLogger(ctx)
	defer logger.Sync(ctx)

	driver, dsn, err := config.ParseDatabaseURL(c.String("database"))
	if err != nil {
		return err
	}

	s, err := store.Open(driver, dsn, zapLogger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	zapLogger.Info("running database migrations", zap.String("driver", driver))
	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	zapLogger.Info("migrations completed")
	return nil
}

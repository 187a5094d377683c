package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hotel-booking/internal/api/http"
	"github.com/spec-kit/hotel-booking/internal/api/http/handlers"
	"github.com/spec-kit/hotel-booking/internal/auth"
	"github.com/spec-kit/hotel-booking/internal/config"
	"github.com/spec-kit/hotel-booking/internal/domain"
	"github.com/spec-kit/hotel-booking/internal/events"
	"github.com/spec-kit/hotel-booking/internal/observability"
	"github.com/spec-kit/hotel-booking/internal/persistence"
	"github.com/spec-kit/hotel-booking/internal/repository"
	"github.com/spec-kit/hotel-booking/internal/repository/repofake"
	"github.com/spec-kit/hotel-booking/internal/service"
	"github.com/spec-kit/hotel-booking/internal/worker"
)

func serveCmd() *cobra.Command {
	var devUsers []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			return serve(cmd.Context(), cfg, logger, devUsers)
		},
	}

	cmd.Flags().StringArrayVar(&devUsers, "dev-user", nil,
		"Seed the in-memory store with email:password[:role] (only without POSTGRES_DSN)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, devUsers []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	var userRepo repository.UserRepository
	if pg.Configured() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
	} else {
		fake := repofake.NewFakeUserRepo()
		if err := seedDevUsers(ctx, fake, hasher, devUsers); err != nil {
			return err
		}
		userRepo = fake
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	deps := service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     hasher,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}
	if cfg.OAuth.Enabled() {
		provider, refresher, err := newOAuth(ctx, cfg.OAuth, redis, logger)
		if err != nil {
			logger.Warn("external login disabled", zap.Error(err))
		} else {
			deps.Provider = provider
			deps.Refresher = refresher
		}
	}
	authService := service.NewAuthService(*cfg, deps)

	accessor := auth.NewSessionAccessor(authService, auth.CookieSettings{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:     handlers.NewAuthHandler(authService, accessor, cfg.Auth.CookieSecure, logger),
		Account:  handlers.NewAccountHandler(authService),
		Accessor: accessor,
		Gatherer: registry,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(logger):
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

// newOAuth discovers the OIDC issuer and builds the provider and refresher.
func newOAuth(ctx context.Context, cfg config.OAuthConfig, redis *persistence.Redis, logger *zap.Logger) (*auth.OAuthProvider, *auth.RefreshManager, error) {
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.IssuerURL, cfg.ClientID)
	if err != nil {
		return nil, nil, err
	}

	opts := []auth.RefreshOption{auth.WithRefreshLogger(logger)}
	if redis.Configured() && cfg.RefreshCacheTTL() > 0 {
		opts = append(opts, auth.WithRefreshCache(auth.NewRedisRefreshCache(redis.Client, ""), cfg.RefreshCacheTTL()))
	}
	return auth.NewOAuthProvider("oidc", cfg, verifier), auth.NewRefreshManager(cfg, opts...), nil
}

func seedDevUsers(ctx context.Context, repo repository.UserRepository, hasher auth.PasswordHasher, entries []string) error {
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("invalid --dev-user %q: want email:password[:role]", entry)
		}
		role := domain.RoleUser
		if len(parts) == 3 {
			role = domain.Role(parts[2])
		}
		if !role.Valid() {
			return fmt.Errorf("invalid --dev-user %q: unknown role %q", entry, role)
		}

		hash, err := hasher.Hash(parts[1])
		if err != nil {
			return err
		}
		email := domain.NormalizeEmail(parts[0])
		if err := repo.Create(ctx, &domain.User{
			Name:         strings.SplitN(email, "@", 2)[0],
			Email:        email,
			PasswordHash: hash,
			Role:         role,
		}); err != nil {
			return fmt.Errorf("seed %s: %w", email, err)
		}
	}
	return nil
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}

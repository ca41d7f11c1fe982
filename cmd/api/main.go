package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/user-service/internal/api/http"
	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/cache"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/persistence"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/service"
	"github.com/spec-kit/user-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		backend    cache.Backend
		redisProbe handlers.Pinger
	)
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		backend = cache.NewMemoryBackend()
	default:
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		backend = cache.NewRedisBackend(redis.Handle())
		redisProbe = redis
	}

	cacheOpts := []cache.Option{cache.WithLogger(logger), cache.WithMetrics(metrics)}
	userCache := cache.NewCoordinator(
		cache.NewAggregateCache[domain.User](backend, "user", cfg.Cache.TTL(), cacheOpts...), logger, metrics)
	cardCache := cache.NewCoordinator(
		cache.NewAggregateCache[domain.PaymentCard](backend, "card", cfg.Cache.TTL(), cacheOpts...), logger, metrics)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartCacheInvalidationWorker(dispatcher, cardCache, logger)
	worker.StartAuditLogWorker(dispatcher, logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	cardRepo := repository.NewCardRepository(pool)

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		UserCache:  userCache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	cardService := service.NewCardService(service.CardDependencies{
		CardRepo:   cardRepo,
		UserRepo:   userRepo,
		CardCache:  cardCache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	authenticator, err := buildAuthenticator(cfg, logger, metrics)
	if err != nil {
		logger.Fatal("failed to init authentication", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisProbe),
		Users:         handlers.NewUsersHandler(userService, cardService),
		Cards:         handlers.NewCardsHandler(cardService),
		Authenticator: authenticator,
		Metrics:       metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

// buildAuthenticator selects the identity strategy named by configuration.
func buildAuthenticator(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*auth.RequestAuthenticator, error) {
	key, err := cfg.Auth.SigningKey()
	if err != nil {
		return nil, err
	}
	validator := auth.NewTokenValidator(auth.NewClaimsCodec(key), logger)

	var resolver auth.IdentityResolver
	switch cfg.Identity.Mode {
	case config.IdentityModeRemote:
		client := &http.Client{Timeout: cfg.Identity.Timeout()}
		resolver = auth.NewRemoteResolver(cfg.Identity.AuthorityURL, cfg.Identity.Timeout(), client, logger, metrics)
	default:
		resolver = auth.NewLocalResolver(validator, metrics)
	}
	if cfg.Identity.CacheEnabled {
		resolver = auth.NewCachingResolver(resolver, validator, cfg.Identity.CacheSize, cfg.Identity.CacheTTL())
	}

	logger.Info("identity resolution configured",
		zap.String("mode", cfg.Identity.Mode),
		zap.Bool("cache", cfg.Identity.CacheEnabled),
	)
	return auth.NewRequestAuthenticator(validator, resolver, logger), nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

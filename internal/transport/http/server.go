package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/cache"
	"doska-client/internal/config"
	"doska-client/internal/form"
	"doska-client/internal/handler"
	"doska-client/internal/session"
	"doska-client/internal/worker"
)

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	// 2. Backend API client
	client := backend.NewClient(cfg.BackendBaseURL, cfg.RequestTimeout, logger)

	// 3. Session cookie store
	store := session.NewCookieStore([]byte(cfg.SessionSecret))

	// 4. Category cache: Redis when configured, in-process otherwise
	var categories cache.Categories
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(context.Background(), cfg.RedisURL, client.Categories, cfg.CategoryCacheTTL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisCache.Close()
		categories = redisCache
	} else {
		categories = cache.NewMemory(client.Categories, cfg.CategoryCacheTTL)
	}

	// 5. Form registry and idle reaper
	forms := form.NewRegistry(logger)
	reaper := worker.NewReaper(forms, cfg.ReapInterval, cfg.FormIdleTTL, logger)
	reaper.Start()
	defer reaper.Stop()

	// 6. Handlers
	router := NewRouter(RouterConfig{
		AuthHandler:     handler.NewAuthHandler(client, logger),
		ListingHandler:  handler.NewListingHandler(client, forms, logger),
		CategoryHandler: handler.NewCategoryHandler(categories, logger),
		AdminHandler:    handler.NewAdminHandler(client, logger),
		SessionStore:    store,
		Backend:         client,
		Logger:          logger,
	})

	// 7. Serve until interrupted
	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.ServerPort))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

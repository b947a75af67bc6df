package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"paydue/internal/auth"
	"paydue/internal/backend"
	"paydue/internal/cache"
	"paydue/internal/cli"
	"paydue/internal/core"
	apphttp "paydue/internal/http"
	"paydue/internal/log"
	"paydue/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.Create(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	sessions := auth.NewSessions()
	authn, err := auth.New(cfg, result.Repo, sessions, logger.WithComponent(log.ComponentAuth))
	if err != nil {
		logger.Error("Failed to initialize auth", log.FieldError, err)
		os.Exit(1)
	}
	localAuth, _ := authn.(*auth.Local)

	collectionCache := cache.NewLRUCache[[]core.Payment](cfg.CacheMaxSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(collectionCache)
	cacheManager.StartCleanup(cfg.CacheTTL)

	var publisher services.SyncPublisher
	if result.AMQP != nil {
		publisher = result.AMQP
	}
	service := services.NewPaymentService(result.Repo, publisher, collectionCache)

	// Sign-out drops the owner's cached collection so the next sign-in
	// reads fresh from the store.
	sessionEvents, unsubscribe := sessions.Subscribe()
	defer unsubscribe()
	go service.WatchSessions(context.Background(), sessionEvents)

	srv := apphttp.NewServer(":"+cfg.Port, service, authn, localAuth)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting paydue server",
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"auth_backend", cfg.AuthBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

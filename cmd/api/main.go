// Command api runs the Franklink backend as a long-lived HTTP server.
//
//	@title						Franklink API
//	@version					1.0
//	@description				Connection graph, live graph layout and account endpoints.
//	@contact.name				Franklink
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"franklink-backend/internal/config"
	"franklink-backend/internal/di"
	"franklink-backend/internal/infrastructure/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// The watcher starts after the container so it can use its logger; until
	// then, and outside development, the startup snapshot is served.
	var watcher atomic.Pointer[config.Watcher]
	source := func() *config.Config {
		if w := watcher.Load(); w != nil {
			return w.Current()
		}
		return cfg
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg, source)
	if err != nil {
		return err
	}
	defer cleanup()
	logger := container.Logger

	dir := os.Getenv("CONFIG_DIR")
	if dir == "" {
		dir = "config"
	}
	if cfg.IsDevelopment() && config.Exists(dir) {
		w, err := config.NewWatcher(config.NewLoader(dir, cfg.Environment), cfg, logger.Named("config"))
		if err != nil {
			logger.Warn("config hot reload disabled", zap.Error(err))
		} else {
			defer w.Stop()
			w.OnChange(func(next *config.Config) {
				level, err := observability.ParseLevel(next.Logging.Level)
				if err != nil {
					logger.Warn("ignoring log level from reloaded config", zap.Error(err))
					return
				}
				container.Logging.Level.SetLevel(level)
			})
			watcher.Store(w)
			logger.Info("config hot reload enabled", zap.String("dir", dir))
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      container.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go evictIdleSessions(ctx, container, source, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", string(cfg.Environment)),
			zap.String("store", cfg.Store.Driver),
			zap.Strings("config_sources", cfg.LoadedFrom),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	return nil
}

// evictIdleSessions tears down layouts of users who stopped interacting.
func evictIdleSessions(ctx context.Context, container *di.Container, source di.ConfigSource, logger *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := container.Sessions.Evict(source().Server.SessionIdleTimeout); n > 0 {
				logger.Info("evicted idle sessions", zap.Int("count", n), zap.Int("active", container.Sessions.Len()))
			}
		}
	}
}

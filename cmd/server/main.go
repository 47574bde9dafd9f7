package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/api"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/checker"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/config"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/platform"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/report"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/storage"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/store"
	"github.com/R-Akshay-Kumar/coding-tracker/internal/worker"
)

func main() {
	code := 0
	if err := run(); err != nil {
		logger.NewNamedLogger("server").Errorw("server stopped", "error", err)
		code = 1
	}
	logger.Sync()
	os.Exit(code)
}

func run() error {
	log := logger.NewNamedLogger("server")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reports, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()
	log.Infow("report store ready", "driver", cfg.Store.Driver)

	processor := checker.NewProcessor(newVerifiers(cfg.Platforms), cfg.Jobs.PacingDelay)

	var archive checker.Archiver
	if cfg.Archive.Bucket != "" {
		s3, err := storage.NewS3Storage(cfg.Archive)
		if err != nil {
			return fmt.Errorf("failed to initialize archive storage: %w", err)
		}
		archive = s3
		log.Infow("archiving reports", "bucket", cfg.Archive.Bucket)
	}

	svc := checker.NewService(reports, processor, archive)
	orch := worker.New(cfg.Jobs.MaxConcurrent, cfg.Jobs.Retention)

	router := gin.New()
	router.Use(gin.Recovery(), api.LoggingMiddleware())
	api.RegisterRoutes(router, api.NewHandler(orch, svc), cfg.Server.APIKey)
	if cfg.Server.APIKey == "" {
		log.Warn("API_KEY is not set, endpoints are unauthenticated")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(server, orch.Shutdown, quit, cfg.Server.ShutdownTimeout)
}

// serve runs srv until a signal arrives on quit or the listener fails, then
// shuts the server down and drains jobs within timeout. A listener failure is
// returned after the drain.
func serve(srv *http.Server, drain func(context.Context) error, quit <-chan os.Signal, timeout time.Duration) error {
	log := logger.NewNamedLogger("server")

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var err error
	select {
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	case err = <-serveErr:
		log.Errorw("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
		log.Errorw("server forced to shutdown", "error", shutdownErr)
	}
	if drainErr := drain(ctx); drainErr != nil {
		log.Errorw("jobs cancelled before completion", "error", drainErr)
	}
	log.Info("server exited")
	return err
}

func openStore(cfg config.StoreConfig) (report.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := store.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store.New(pool), pool.Close, nil
	case "redis":
		rs, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return report.NewMemoryStore(), func() {}, nil
	}
}

func newVerifiers(cfg config.PlatformsConfig) map[platform.Platform]platform.Verifier {
	client := func(baseURL string) platform.ClientConfig {
		return platform.ClientConfig{BaseURL: baseURL, Timeout: cfg.RequestTimeout}
	}
	return map[platform.Platform]platform.Verifier{
		platform.Codeforces: platform.NewCodeforcesVerifier(client(cfg.CodeforcesURL), cfg.CodeforcesSubmission),
		platform.LeetCode:   platform.NewLeetCodeVerifier(client(cfg.LeetCodeURL)),
		platform.CodeChef:   platform.NewCodeChefVerifier(client(cfg.CodeChefURL)),
	}
}

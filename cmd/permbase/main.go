package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/permbase/permbase/internal/app"
	"github.com/permbase/permbase/internal/observability"
	"github.com/permbase/permbase/internal/platform/cache"
	"github.com/permbase/permbase/internal/platform/db"
	"github.com/permbase/permbase/internal/rbac"
	"github.com/permbase/permbase/internal/roles"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	store := rbac.NewRepository(pool)
	permCache := rbac.NewCache(redisClient, cfg.PermissionCachePrefix, cfg.PermissionTTL).WithMetrics(metrics)
	matcher := rbac.NewMatcher(store, permCache)
	hooks := rbac.NewHooks(store, permCache, logger)

	roleRepo := roles.NewRepository(pool)
	roleService := roles.NewService(roleRepo, hooks)

	guard := rbac.Middleware{
		Matcher: matcher,
		Resolve: roleFromHeader,
		Logger:  logger,
	}

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		RolesHandler: roles.NewHandler(logger, roleService),
		RBACHandler:  rbac.NewHandler(logger, matcher, hooks, store, store),
		Guard:        guard,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}

// roleFromHeader trusts the authenticating proxy to stamp the caller's
// role. Swap for a session or token resolver when embedding elsewhere.
func roleFromHeader(r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-Permbase-Role")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

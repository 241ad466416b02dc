package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/crewtrack/crewtrack/internal/app/migrate"
	httpx "github.com/crewtrack/crewtrack/internal/http"
	"github.com/crewtrack/crewtrack/internal/repository/postgres"
	"github.com/crewtrack/crewtrack/internal/service/auth"
	"github.com/crewtrack/crewtrack/internal/service/member"
	"github.com/crewtrack/crewtrack/internal/service/task"
	"github.com/crewtrack/crewtrack/internal/ws"
	"github.com/crewtrack/crewtrack/pkg/config"
	"github.com/crewtrack/crewtrack/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Error("JWT_SECRET is not set, refusing to start")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	taskHub := ws.NewHub()

	authSvc := auth.New(repo, log, cfg)
	memberSvc := member.New(repo, log)
	taskSvc := task.New(repo, memberSvc, taskHub, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, memberSvc, taskSvc, limiter, cfg.AllowedOrigin, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

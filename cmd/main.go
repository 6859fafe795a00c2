package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/safrareport/auth-service/config"
	"github.com/safrareport/auth-service/db"
	"github.com/safrareport/auth-service/internal/auth/handler"
	"github.com/safrareport/auth-service/internal/auth/jobs"
	"github.com/safrareport/auth-service/internal/auth/repository/postgres"
	"github.com/safrareport/auth-service/internal/auth/repository/rediscache"
	"github.com/safrareport/auth-service/internal/auth/security"
	"github.com/safrareport/auth-service/internal/auth/service"
	"github.com/safrareport/auth-service/internal/log"
	"github.com/safrareport/auth-service/pkg/constant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	redisClient, err := db.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	tokenService, err := service.NewTokenService(cfg.Security.TokenSecret, cfg.Security.AccessTTL, cfg.Security.RefreshTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("token service init failed")
	}

	hasher, err := security.NewPasswordHasher(security.Argon2Params{
		Time:    cfg.Security.Argon2Time,
		Memory:  cfg.Security.Argon2Memory,
		Threads: cfg.Security.Argon2Threads,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("password hasher init failed")
	}

	sessionRepo := postgres.NewSessionRepository(pool)
	attemptRepo := postgres.NewAttemptRepository(pool)
	oneTimeRepo := postgres.NewOneTimeTokenRepository(pool)
	sessionCache := rediscache.NewSessionCache(redisClient, cfg.Security.SessionTTL)

	userService := service.NewAuthService(
		postgres.NewIdentityRepository(pool, constant.KindUser),
		sessionRepo, attemptRepo, oneTimeRepo,
		tokenService, hasher, sessionCache, cfg, logger,
	)
	adminService := service.NewAuthService(
		postgres.NewIdentityRepository(pool, constant.KindAdmin),
		sessionRepo, attemptRepo, oneTimeRepo,
		tokenService, hasher, sessionCache, cfg, logger,
	)

	sweeper := jobs.NewSweeper(sessionRepo, attemptRepo, oneTimeRepo, cfg.Sweep, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal().Err(err).Msg("sweeper start failed")
	}
	defer sweeper.Stop()

	userHandler := handler.NewAuthHandler(userService, cfg.Environment, cfg.RateLimit.Window, cfg.Security.RefreshTTL, logger)
	adminLoginHandler := handler.NewAuthHandler(adminService, cfg.Environment, cfg.RateLimit.Window, cfg.Security.RefreshTTL, logger)
	adminHandler := handler.NewAdminHandler(userService, logger)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	})
	handler.RegisterRoutes(app, userService, adminService, userHandler, adminLoginHandler, adminHandler)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := app.Listen(addr); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	_ = app.Shutdown()
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tradepost/trust-api/internal/config"
	"github.com/tradepost/trust-api/internal/domain/moderation"
	"github.com/tradepost/trust-api/internal/domain/notification"
	"github.com/tradepost/trust-api/internal/domain/user"
	"github.com/tradepost/trust-api/internal/pkg/cache"
	"github.com/tradepost/trust-api/internal/pkg/database"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Dur("interval", cfg.SweepInterval).
		Msg("Starting moderation sweeper")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	moderationRepo := moderation.NewRepository(db)
	userRepo := user.NewRepository(db)
	notificationService := notification.NewService(notification.NewRepository(db))
	invalidator := cache.NewInvalidator(redis)

	sweeper := moderation.NewSweeper(moderationRepo, userRepo, notificationService, invalidator, cfg.Moderation)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down sweeper")
		cancel()
	}()

	// Sweep once at startup, then on the ticker
	sweeper.Run(ctx)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Sweeper stopped")
			return
		case <-ticker.C:
			sweeper.Run(ctx)
		}
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tradepost/trust-api/internal/config"
	"github.com/tradepost/trust-api/internal/domain/dashboard"
	"github.com/tradepost/trust-api/internal/domain/listing"
	"github.com/tradepost/trust-api/internal/domain/moderation"
	"github.com/tradepost/trust-api/internal/domain/notification"
	"github.com/tradepost/trust-api/internal/domain/user"
	"github.com/tradepost/trust-api/internal/middleware"
	"github.com/tradepost/trust-api/internal/pkg/cache"
	"github.com/tradepost/trust-api/internal/pkg/database"
	"github.com/tradepost/trust-api/internal/pkg/jwt"
	pkgresponse "github.com/tradepost/trust-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Trust API")

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

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	invalidator := cache.NewInvalidator(redis)

	ladder, err := moderation.ParseLadder(cfg.Moderation.EscalationLadder)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid escalation ladder")
	}

	scorerCfg := moderation.DefaultScorerConfig()
	scorerCfg.AutoBanScore = cfg.Moderation.AutoBanScore
	scorerCfg.AutoRemoveScore = cfg.Moderation.AutoRemoveScore
	scorerCfg.WarnScore = cfg.Moderation.WarnScore
	scorerCfg.EscalateScore = cfg.Moderation.EscalateScore
	scorer := moderation.NewScorer(scorerCfg)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	listingRepo := listing.NewRepository(db)
	moderationRepo := moderation.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// ---------- Services ----------
	notificationService := notification.NewService(notificationRepo)
	wordService := moderation.NewWordService(moderationRepo, redis, invalidator, cfg.Moderation.MaxBlockedWordLength)
	flagService := moderation.NewFlagService(
		moderationRepo, userRepo, listingRepo, wordService,
		scorer, ladder, notificationService, invalidator, cfg.Moderation,
	)
	appealService := moderation.NewAppealService(
		moderationRepo, userRepo, listingRepo,
		notificationService, invalidator, cfg.Moderation,
	)

	// ---------- Handlers ----------
	moderationHandler := moderation.NewHandler(flagService, appealService, wordService)
	notificationHandler := notification.NewHandler(notificationService)
	dashboardHandler := dashboard.NewHandler(moderationRepo)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/flags", moderationHandler.FlagRoutes(authMiddleware))
		r.Mount("/appeals", moderationHandler.AppealRoutes(authMiddleware))
		r.Mount("/moderation", moderationHandler.HistoryRoutes(authMiddleware))
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Mount("/moderation", moderationHandler.AdminRoutes(authMiddleware))
		r.Mount("/dashboard", dashboardHandler.Routes(authMiddleware))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
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

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nanai10a/genkai-point-server/internal/config"
	"github.com/Nanai10a/genkai-point-server/internal/database"
	"github.com/Nanai10a/genkai-point-server/internal/handler"
	"github.com/Nanai10a/genkai-point-server/internal/jobs"
	"github.com/Nanai10a/genkai-point-server/internal/middleware"
	"github.com/Nanai10a/genkai-point-server/internal/notify"
	"github.com/Nanai10a/genkai-point-server/internal/redis"
	"github.com/Nanai10a/genkai-point-server/internal/repository"
	"github.com/Nanai10a/genkai-point-server/internal/scoring"
	"github.com/Nanai10a/genkai-point-server/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	penaltyLoc, err := cfg.PenaltyLocation()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load penalty timezone")
	}
	policy := scoring.NightWindow{
		StartHour:     cfg.PenaltyStartHour,
		EndHour:       cfg.PenaltyEndHour,
		Location:      penaltyLoc,
		PointsPerHour: uint64(cfg.PointsPerHour),
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionRepository(db.DB, policy.Point)

	broker := notify.NewBroker(redisClient)
	defer broker.Close()

	resolver := service.NewRedisNameResolver(redisClient)
	lifecycleService := service.NewLifecycleService(sessionRepo, broker, policy.Point)
	commandService := service.NewCommandService(sessionRepo, resolver, broker, policy.Point)

	authMiddleware := middleware.NewGatewayAuthMiddleware(cfg.GatewayToken)

	eventsHandler := handler.NewEventsHandler(lifecycleService)
	commandHandler := handler.NewCommandHandler(commandService)
	statsHandler := handler.NewStatsHandler(sessionRepo)
	outboundHandler := handler.NewOutboundHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Post("/events/presence", eventsHandler.Presence)
		r.Post("/events/snapshot", eventsHandler.Snapshot)
		r.Post("/commands", commandHandler.Command)
		r.Get("/stats", statsHandler.Stats)
		r.Get("/outbound", outboundHandler.ServeHTTP)
	})

	var sweeper *jobs.SweeperJob
	if cfg.MaxSessionAge() > 0 {
		sweeper = jobs.NewSweeperJob(sessionRepo, cfg.MaxSessionAge(), config.SweeperInterval)
		sweeper.Start()
		defer sweeper.Stop()
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

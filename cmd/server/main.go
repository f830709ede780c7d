package main

import (
	"context"
	"crypto/cipher"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventchat-backend/internal/api"
	"eventchat-backend/internal/config"
	appcrypto "eventchat-backend/internal/crypto"
	"eventchat-backend/internal/handlers"
	"eventchat-backend/internal/notify"
	"eventchat-backend/internal/realtime"
	"eventchat-backend/internal/services"
	"eventchat-backend/internal/store"
	"eventchat-backend/internal/store/memory"
	"eventchat-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("unable to create database connection pool")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("unable to ping database")
		}
		log.Info().Msg("database connection pool established")
		st = postgres.NewPostgresStore(pool)
	} else {
		st = memory.NewMemoryStore()
	}

	var aead cipher.AEAD
	if len(cfg.EncryptionKey) > 0 {
		aead, err = appcrypto.NewAESGCM(cfg.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize encryption")
		}
	}

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.SlackWebhookURL != "" {
		notifier = notify.NewSlackNotifier(cfg.SlackWebhookURL)
	}

	hub := realtime.NewHub()

	convSvc := services.NewConversationService(st, hub, notifier)
	leadSvc := services.NewLeadService(st, aead)
	authSvc := services.NewAuthService(st, cfg)

	if err := authSvc.EnsureSeedAgent(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure seed agent")
	}

	router := api.NewRouter(api.RouterDeps{
		Config:        cfg,
		Conversations: handlers.NewConversationHandlers(convSvc),
		Leads:         handlers.NewLeadHandlers(leadSvc),
		Auth:          handlers.NewAuthHandlers(authSvc),
		WS:            handlers.NewWSHandlers(hub, convSvc),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

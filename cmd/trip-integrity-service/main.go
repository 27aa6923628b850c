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

	"trip-integrity-service/internal/auth"
	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/db"
	httphandler "trip-integrity-service/internal/http"
	"trip-integrity-service/internal/http/middleware"
	"trip-integrity-service/internal/logger"
	"trip-integrity-service/internal/repository"
	"trip-integrity-service/internal/serial"
	"trip-integrity-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	serials, err := serial.NewGenerator(cfg.Serial.NodeID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create serial generator")
	}

	store := repository.NewGormStore(database)

	tripService := service.NewTripService(store, cfg.Integrity, serials, log)
	sweepService := service.NewSweepService(store, cfg.Integrity)
	auditService := service.NewAuditService(store)
	baselineService := service.NewBaselineService(store, cfg.Integrity, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(tripService, sweepService, auditService, baselineService, log)
	health := func(ctx context.Context) error { return db.HealthCheck(ctx, database) }
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser, log), health, cfg.Environment, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting trip integrity service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("trip integrity service stopped")
}

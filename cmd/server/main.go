package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldops/planner/internal/config"
	"github.com/fieldops/planner/internal/db"
	"github.com/fieldops/planner/internal/geocode"
	httpapi "github.com/fieldops/planner/internal/http"
	"github.com/fieldops/planner/internal/http/handlers"
	"github.com/fieldops/planner/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "fieldops-planner").Str("env", cfg.Env).Logger()

	ctx := context.Background()
	var store handlers.Store
	if cfg.DatabaseURL == "" {
		store = db.NewMemoryStore()
		logger.Warn().Str("env", cfg.Env).Msg("DATABASE_URL empty, using an empty in-memory store (dev only)")
	} else {
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate db")
		}
		store = pg
	}

	var geocoder geocode.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = &geocode.NominatimGeocoder{BaseURL: cfg.GeocoderURL}
	} else {
		logger.Info().Msg("geocoder disabled")
	}

	start := cfg.StartTime()
	planner := &service.PlanningService{
		Store:  store,
		Logger: logger,
		Options: service.Options{
			HorizonDays: cfg.SearchHorizonDays,
			Location:    cfg.Location(),
		},
		StartTime: &start,
	}

	router := httpapi.Router(cfg, store, planner, geocoder, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("timezone", cfg.Timezone).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

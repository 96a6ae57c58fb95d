package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/application"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/config"
	httptransport "github.com/GregHandsley/powerbase-kiosk-sub002/internal/http"
	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := func() string { return uuid.NewString() }
	now := time.Now

	ruleStore := newRuleStoreAdapter(sqlite.NewRuleRepository(pool))
	zoneRepo := newZoneRepositoryAdapter(sqlite.NewZoneRepository(pool))
	bookingStore := newBookingStoreAdapter(sqlite.NewBookingRepository(pool))
	overrideStore := newOverrideStoreAdapter(sqlite.NewOverrideRepository(pool))

	grid := application.SlotGrid{
		SlotMinutes: cfg.SlotMinutes,
		OpenMin:     cfg.DayOpenMin,
		CloseMin:    cfg.DayCloseMin,
	}

	capacityService := application.NewCapacityService(ruleStore, overrideStore, zoneRepo, grid, cfg.WeekCacheTTL, now, logger)
	scheduleService := application.NewScheduleService(ruleStore, zoneRepo, capacityService, idGenerator, now, logger)
	zoneService := application.NewZoneService(zoneRepo, idGenerator, now, logger)
	bookingService := application.NewBookingService(bookingStore, zoneRepo, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Zones:     httptransport.NewZoneHandler(zoneService, logger),
		Schedules: httptransport.NewScheduleHandler(scheduleService, capacityService, logger),
		Bookings:  httptransport.NewBookingHandler(bookingService, capacityService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("kiosk API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

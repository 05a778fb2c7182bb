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

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/router"
	"github.com/iliyamo/hotel-booking/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional: without it responses are not cached and rate limits
	// fall back to per-instance buckets.
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable, cache disabled and rate limits kept in process", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	qcfg := config.LoadQueueConfig()
	var events booking.EventPublisher = booking.NopPublisher{}
	var publisher *service.EventPublisher
	if qcfg.Enabled {
		publisher = service.NewEventPublisher(qcfg, log)
		events = publisher
		if qcfg.ConsumerEnabled {
			go func() {
				if err := queue.StartBookingConsumer(ctx, qcfg, log); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("booking consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	engine := booking.NewEngine(repository.NewUnitOfWork(db), booking.Config{
		CommitTimeout: cfg.CommitTimeout,
		MaxAttempts:   cfg.CommitMaxAttempts,
		RetryBackoff:  cfg.CommitRetryBackoff,
		MaxStayNights: cfg.MaxStayNights,
	}, events, log)

	e := router.New(router.Deps{
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins,
		Users:          handler.NewUserHandler(repository.NewUserRepo(db), log),
		Hotels:         handler.NewHotelHandler(repository.NewHotelRepo(db), log),
		Inventory: handler.NewInventoryHandler(engine,
			repository.NewRoomTypeRepo(db), repository.NewInventoryRepo(db), log),
		Reservations: handler.NewReservationHandler(engine, repository.NewReservationRepo(db), log),
		Cache:        middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log),
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(shutdownCtx); err != nil {
			log.Warn("event publisher did not drain", zap.Error(err))
		}
	}
	return nil
}

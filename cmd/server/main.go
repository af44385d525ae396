package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-booking-engine/internal/booking"
	"github.com/iliyamo/show-booking-engine/internal/config"
	"github.com/iliyamo/show-booking-engine/internal/database"
	"github.com/iliyamo/show-booking-engine/internal/handler"
	"github.com/iliyamo/show-booking-engine/internal/middleware"
	"github.com/iliyamo/show-booking-engine/internal/payment"
	"github.com/iliyamo/show-booking-engine/internal/queue"
	"github.com/iliyamo/show-booking-engine/internal/repository"
	"github.com/iliyamo/show-booking-engine/internal/router"
	queue_publisher "github.com/iliyamo/show-booking-engine/internal/service"
)

func main() {
	// .env is optional; real deployments inject the environment
	// directly and the file simply does not exist there.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("ensure schema: %v", err)
	}
	cancel()

	shows := repository.NewShowRepo(db)
	bookings := repository.NewBookingRepo(db)
	inventory := repository.NewInventoryRepo(db)

	events := queue_publisher.Events{}

	sweeper, err := booking.NewSweeper(bookings, inventory, events, cfg.GracePeriod())
	if err != nil {
		log.Fatalf("build sweeper: %v", err)
	}
	sweeper.Start()
	defer func() {
		if err := sweeper.Stop(); err != nil {
			log.Printf("stop sweeper: %v", err)
		}
	}()

	engine := booking.NewEngine(shows, inventory, bookings, sweeper, events, cfg.GracePeriod())

	// Re-arm sweeps for bookings that were unpaid when the previous
	// process died, and drop occupancy rows whose booking is gone.
	recoverCtx, recoverCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := sweeper.Recover(recoverCtx); err != nil {
		log.Printf("sweep recovery: %v", err)
	}
	recoverCancel()

	// Consume settlement conflicts into the reconciliation log.  The
	// consumer reconnects on its own; a missing broker only disables
	// conflict archiving, never booking traffic.
	go func() {
		if err := queue.StartConflictConsumer(); err != nil {
			log.Printf("conflict consumer stopped: %v", err)
		}
	}()

	verifier := payment.NewHMACVerifier(cfg.WebhookSecret, cfg.WebhookTolerance())

	showHandler := handler.NewShowHandler(shows)
	bookingHandler := handler.NewBookingHandler(engine, bookings, cfg.GracePeriod())
	webhookHandler := handler.NewWebhookHandler(verifier, engine)

	e := echo.New()
	e.HideBanner = true

	// Redis backs the rate limiter and the public response cache.  A
	// nil client degrades both to pass-through.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterPublic(e, showHandler, bookingHandler, cacheMW)
	router.RegisterBooking(e, showHandler, bookingHandler, cfg.JWTSecret)
	router.RegisterWebhook(e, webhookHandler)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, grace=%s)", addr, cfg.Env, cfg.GracePeriod())
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/stagefront/ticketing/internal/config"
	"github.com/stagefront/ticketing/internal/database"
	"github.com/stagefront/ticketing/internal/handler"
	"github.com/stagefront/ticketing/internal/queue"
	"github.com/stagefront/ticketing/internal/realtime"
	"github.com/stagefront/ticketing/internal/repository"
	"github.com/stagefront/ticketing/internal/router"
	"github.com/stagefront/ticketing/internal/service"
	"github.com/stagefront/ticketing/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env always wins
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the service runs with no response
	// cache, no rate limiting and no realtime seat feed.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache/ratelimit/realtime disabled")
	}

	sessionRepo := repository.NewSessionRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	txm := repository.NewSQLTxManager(db)

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		events = service.NewQueuePublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartReservationConsumer(cfg.AMQPURL); err != nil {
				log.Printf("queue consumer stopped: %v", err)
			}
		}()
	}

	manager := service.NewReservationManager(
		txm,
		sessionRepo,
		inventoryRepo,
		reservationRepo,
		events,
		realtime.NewPublisher(rdb),
		time.Duration(cfg.HoldMinutes)*time.Minute,
		cfg.MaxItems,
		cfg.SweepBatch,
	)

	sweeper, err := worker.NewSweeper(manager, cfg.SweepInterval)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewPublicHandler(sessionRepo, inventoryRepo), config.LoadCacheConfig(), rdb)
	router.RegisterReservation(e, handler.NewReservationHandler(manager, cfg.JWTSecret), config.LoadRateLimitConfig(), rdb, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

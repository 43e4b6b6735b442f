package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/dvdstore/rentals/internal/config"
	"github.com/dvdstore/rentals/internal/database"
	"github.com/dvdstore/rentals/internal/engine"
	"github.com/dvdstore/rentals/internal/handler"
	"github.com/dvdstore/rentals/internal/queue"
	"github.com/dvdstore/rentals/internal/repository"
	"github.com/dvdstore/rentals/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env directly

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Per-table repositories.
	filmRepo := repository.NewFilmRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	staffRepo := repository.NewStaffRepo(db)
	rentalRepo := repository.NewRentalRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)

	// The engine runs over the SQL store; all rental/payment writes go
	// through it.
	store := repository.NewStore(db, filmRepo, inventoryRepo, staffRepo, rentalRepo, paymentRepo)
	eng := engine.New(store, engine.WithMaxAttempts(cfg.CheckoutAttempts))

	films := handler.NewFilmHandler(filmRepo, inventoryRepo, eng)
	rentals := handler.NewRentalHandler(eng, rentalRepo, filmRepo)
	payments := handler.NewPaymentHandler(paymentRepo)

	// Redis is optional: a nil client disables caching and rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	// Drain rental events into logs/rental.log in the background.
	go func() {
		if err := queue.StartRentalConsumer(); err != nil {
			log.Printf("rental consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, films, rentals, payments, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package router // route registration for the rental API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dvdstore/rentals/internal/config"
	"github.com/dvdstore/rentals/internal/handler"
	"github.com/dvdstore/rentals/internal/middleware"
)

// Register wires every route on the provided Echo instance.
//
// Route map:
//
//	GET  /healthz                               liveness probe, no auth
//	GET  /v1/films                              catalog listing (cached)
//	GET  /v1/films/:id                          film detail with stock (cached)
//	GET  /v1/inventory/:film_id/:store_id       availability count (cached)
//	GET  /v1/rentals                            caller's rentals
//	GET  /v1/rentals/:id                        rental detail
//	POST /v1/rentals                            checkout (staff only)
//	POST /v1/rentals/:id/return                 return & bill (staff only)
//	GET  /v1/payments                           payment ledger (staff only)
//
// Everything under /v1 requires a valid bearer token; the write paths
// additionally require the STAFF or ADMIN role.  Only the GET catalog
// routes sit behind the redis response cache so checkout and return
// always see live state.
func Register(e *echo.Echo, films *handler.FilmHandler, rentals *handler.RentalHandler, payments *handler.PaymentHandler, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	rate := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	v1 := e.Group("/v1")
	v1.Use(rate)
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole(handler.RoleAdmin, handler.RoleStaff, handler.RoleCustomer))

	// Catalog reads: any authenticated role, served through the cache.
	v1.GET("/films", films.List, cache)
	v1.GET("/films/:id", films.Get, cache)
	v1.GET("/inventory/:film_id/:store_id", films.Availability, cache)

	// Rental reads: handlers scope customers to their own records.
	v1.GET("/rentals", rentals.List)
	v1.GET("/rentals/:id", rentals.Get)

	// Write paths and the payment ledger are staff business.
	staff := e.Group("/v1")
	staff.Use(rate)
	staff.Use(middleware.JWTAuth(cfg.JWTSecret))
	staff.Use(middleware.RequireRole(handler.RoleAdmin, handler.RoleStaff))
	staff.POST("/rentals", rentals.Checkout)
	staff.POST("/rentals/:id/return", rentals.Return)
	staff.GET("/payments", payments.List)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/stagefront/ticketing/internal/config"
	"github.com/stagefront/ticketing/internal/handler"
	"github.com/stagefront/ticketing/internal/middleware"
)

// RegisterRoutes registers the health check on the provided Echo
// instance.  This endpoint can be used by load balancers or monitoring
// systems to verify that the service is up and running.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse endpoints behind
// the Redis response cache.  Guests use these to pick a session and
// inspect availability before entering the selection flow; the cache
// keeps availability-bearing routes on a much shorter TTL than the
// catalogue metadata.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1", middleware.NewBrowseCache(cacheCfg, rdb))
	g.GET("/sessions/:id", p.GetSession)
	g.GET("/sessions/:id/categories", p.GetCategories)
	g.GET("/sessions/:id/blocks", p.GetBlocks)
	g.GET("/sessions/:id/availability", p.GetAvailability)
	g.GET("/blocks/:id/seats", p.GetBlockSeats)
}

// RegisterReservation registers the reservation lifecycle endpoints.
// Creation only needs a session; every other operation requires the
// owner token minted at create time, which binds the request to the
// tab that started the flow.  Mutations sit behind the token-bucket
// rate limiter.
func RegisterReservation(e *echo.Echo, h *handler.ReservationHandler, rlCfg config.RateLimitConfig, rdb *redis.Client, jwtSecret string) {
	limited := e.Group("/v1", middleware.NewTokenBucket(rlCfg, rdb))
	limited.POST("/sessions/:id/reservations", h.CreateReservation)

	owned := limited.Group("/reservations/:id", middleware.RequireOwnerToken(jwtSecret))
	owned.GET("", h.GetReservation)
	owned.POST("/items", h.AddItem)
	owned.PATCH("/items/:itemID", h.UpdateItem)
	owned.DELETE("/items/:itemID", h.RemoveItem)
	// Cancel is exposed twice: DELETE for normal clients and a bodyless
	// POST for navigator.sendBeacon during page unload.
	owned.POST("/cancel", h.Cancel)
	owned.DELETE("", h.Cancel)
	owned.POST("/complete", h.Complete)
}

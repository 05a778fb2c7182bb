// Package router defines how HTTP routes and their middleware are registered
// for the API.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// Deps carries everything the routes need.  Cache and RateLimit may be nil;
// the routes are then registered without them.
type Deps struct {
	Log            *zap.Logger
	AllowedOrigins []string

	Users        *handler.UserHandler
	Hotels       *handler.HotelHandler
	Inventory    *handler.InventoryHandler
	Reservations *handler.ReservationHandler

	// Cache serves repeated reads from Redis and is invalidated by every
	// successful write it sees, so it wraps reads and writes alike.
	Cache echo.MiddlewareFunc
	// RateLimit throttles reservation writes.
	RateLimit echo.MiddlewareFunc
}

// New builds an Echo instance with the global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	Setup(e, d)
	RegisterRoutes(e)
	RegisterCatalogue(e, d)
	RegisterReservations(e, d)
	return e
}

// Setup installs the global middleware: panic recovery, request ids, one log
// line per request and CORS for the configured frontends.
func Setup(e *echo.Echo, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderXRequestID, "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
	}))
}

// RegisterRoutes registers the liveness endpoints.  /healthz is kept for load
// balancers configured against the older path.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
	e.GET("/healthz", handler.Health)
}

// chain drops nil middleware so optional layers can be passed unconditionally.
func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

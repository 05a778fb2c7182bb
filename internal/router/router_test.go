package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking/internal/handler"
)

func newTestEcho(cache, limit echo.MiddlewareFunc) *echo.Echo {
	return New(Deps{
		AllowedOrigins: []string{"http://localhost:5173"},
		Users:          &handler.UserHandler{},
		Hotels:         &handler.HotelHandler{},
		Inventory:      &handler.InventoryHandler{},
		Reservations:   &handler.ReservationHandler{},
		Cache:          cache,
		RateLimit:      limit,
	})
}

func TestNew_RegistersEveryRoute(t *testing.T) {
	e := newTestEcho(nil, nil)
	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health", "GET /healthz",
		"GET /users", "POST /users", "GET /users/:id", "PUT /users/:id", "DELETE /users/:id",
		"GET /hotels", "POST /hotels", "GET /hotels/:id", "PUT /hotels/:id", "DELETE /hotels/:id",
		"POST /hotels/:hotelId/room-types", "GET /hotels/:hotelId/room-types",
		"GET /room-types/:id/inventory", "POST /room-types/:id/inventory",
		"GET /room-types/:id/availability",
		"POST /room-inventory", "PATCH /room-inventory/:id",
		"GET /reservations", "GET /reservations/:id", "POST /reservations",
		"PUT /reservations/:id", "DELETE /reservations/:id",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestHealthCarriesRequestIDAndCORS(t *testing.T) {
	e := newTestEcho(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestReservationWritesAreRateLimited(t *testing.T) {
	var order []string
	tag := func(name string, stop bool) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				order = append(order, name)
				if stop {
					return c.NoContent(http.StatusTooManyRequests)
				}
				return next(c)
			}
		}
	}
	e := newTestEcho(tag("cache", false), tag("limit", true))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reservations", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"limit"}, order, "throttled writes never reach the cache layer")

	order = nil
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, order, "health is neither cached nor limited")
}

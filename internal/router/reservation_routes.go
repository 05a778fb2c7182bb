package router

import "github.com/labstack/echo/v4"

// RegisterReservations registers the reservation endpoints.  Writes are rate
// limited before they reach the cache layer, so a throttled request never
// invalidates cached reads.
func RegisterReservations(e *echo.Echo, d Deps) {
	read := chain(d.Cache)
	write := chain(d.RateLimit, d.Cache)

	r := d.Reservations
	e.GET("/reservations", r.List, read...)
	e.GET("/reservations/:id", r.Get, read...)
	e.POST("/reservations", r.Create, write...)
	e.PUT("/reservations/:id", r.Update, write...)
	e.DELETE("/reservations/:id", r.Delete, write...)
}

package router

import "github.com/labstack/echo/v4"

// RegisterCatalogue registers users, hotels, room types and inventory.
// Inventory writes go through the booking engine inside the handlers.
func RegisterCatalogue(e *echo.Echo, d Deps) {
	mw := chain(d.Cache)

	u := d.Users
	e.GET("/users", u.List, mw...)
	e.POST("/users", u.Create, mw...)
	e.GET("/users/:id", u.Get, mw...)
	e.PUT("/users/:id", u.Update, mw...)
	e.DELETE("/users/:id", u.Delete, mw...)

	h := d.Hotels
	e.GET("/hotels", h.List, mw...)
	e.POST("/hotels", h.Create, mw...)
	e.GET("/hotels/:id", h.Get, mw...)
	e.PUT("/hotels/:id", h.Update, mw...)
	e.DELETE("/hotels/:id", h.Delete, mw...)

	inv := d.Inventory
	e.POST("/hotels/:hotelId/room-types", inv.CreateRoomType, mw...)
	e.GET("/hotels/:hotelId/room-types", inv.ListRoomTypes, mw...)
	e.GET("/room-types/:id/inventory", inv.ListInventory, mw...)
	e.POST("/room-types/:id/inventory", inv.SetAvailability, mw...)
	e.GET("/room-types/:id/availability", inv.Availability, mw...)
	e.POST("/room-inventory", inv.CreateInventory, mw...)
	e.PATCH("/room-inventory/:id", inv.AdjustInventory, mw...)
}

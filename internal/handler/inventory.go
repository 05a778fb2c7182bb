package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// RoomTypeReader is implemented by repository.RoomTypeRepo.
type RoomTypeReader interface {
	Get(ctx context.Context, id uint64) (*model.RoomType, error)
	ListByHotel(ctx context.Context, hotelID uint64) ([]model.RoomType, error)
}

// InventoryReader is implemented by repository.InventoryRepo.
type InventoryReader interface {
	ListByRoomType(ctx context.Context, roomTypeID uint64, night *calendar.Date) ([]model.InventoryRecord, error)
}

// InventoryHandler serves room types, inventory records and availability
// checks.  Every write goes through the booking engine.
type InventoryHandler struct {
	Engine    BookingEngine
	RoomTypes RoomTypeReader
	Inventory InventoryReader
	Log       *zap.Logger
}

// NewInventoryHandler constructs an InventoryHandler and panics if any
// dependency is nil.
func NewInventoryHandler(engine BookingEngine, roomTypes RoomTypeReader, inventory InventoryReader, log *zap.Logger) *InventoryHandler {
	if engine == nil || roomTypes == nil || inventory == nil {
		panic("nil dependency passed to NewInventoryHandler")
	}
	return &InventoryHandler{Engine: engine, RoomTypes: roomTypes, Inventory: inventory, Log: nopIfNil(log)}
}

// CreateRoomType handles POST /hotels/:hotelId/room-types.  When both date
// and availability are given the first inventory record is created in the
// same transaction.
func (h *InventoryHandler) CreateRoomType(c echo.Context) error {
	hotelID, err := parseID(c, "hotelId")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var body struct {
		Name         string `json:"name"`
		Date         string `json:"date"`
		Availability *int   `json:"availability"`
	}
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return writeError(c, h.Log, apperr.Invalid("name is required"))
	}

	var initial *booking.InitialInventory
	hasDate := strings.TrimSpace(body.Date) != ""
	switch {
	case hasDate && body.Availability != nil:
		night, err := parseDate("date", body.Date)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		initial = &booking.InitialInventory{Date: night, Availability: *body.Availability}
	case hasDate || body.Availability != nil:
		return writeError(c, h.Log, apperr.Invalid("date and availability must be given together"))
	}

	rt := &model.RoomType{HotelID: hotelID, Name: name}
	if err := h.Engine.CreateRoomType(c.Request().Context(), rt, initial); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, rt)
}

// ListRoomTypes handles GET /hotels/:hotelId/room-types.
func (h *InventoryHandler) ListRoomTypes(c echo.Context) error {
	hotelID, err := parseID(c, "hotelId")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	items, err := h.RoomTypes.ListByHotel(c.Request().Context(), hotelID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// ListInventory handles GET /room-types/:id/inventory.  The optional date
// query parameter narrows the result to one night.
func (h *InventoryHandler) ListInventory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var night *calendar.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := parseDate("date", raw)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		night = &d
	}
	ctx := c.Request().Context()
	if _, err := h.RoomTypes.Get(ctx, id); err != nil {
		return writeError(c, h.Log, err)
	}
	items, err := h.Inventory.ListByRoomType(ctx, id, night)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

type availabilityBody struct {
	RoomTypeID   uint64 `json:"roomTypeId"`
	Date         string `json:"date"`
	Availability *int   `json:"availability"`
}

// SetAvailability handles POST /room-types/:id/inventory.
func (h *InventoryHandler) SetAvailability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var body availabilityBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	return h.setAvailability(c, id, body)
}

// CreateInventory handles POST /room-inventory, which names the room type in
// the body instead of the path.
func (h *InventoryHandler) CreateInventory(c echo.Context) error {
	var body availabilityBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	if body.RoomTypeID == 0 {
		return writeError(c, h.Log, apperr.Invalid("roomTypeId is required"))
	}
	return h.setAvailability(c, body.RoomTypeID, body)
}

func (h *InventoryHandler) setAvailability(c echo.Context, roomTypeID uint64, body availabilityBody) error {
	night, err := parseDate("date", body.Date)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if body.Availability == nil {
		return writeError(c, h.Log, apperr.Invalid("availability is required"))
	}
	rec, err := h.Engine.SetAvailability(c.Request().Context(), roomTypeID, night, *body.Availability)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// AdjustInventory handles PATCH /room-inventory/:id.
func (h *InventoryHandler) AdjustInventory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var body struct {
		Availability *int `json:"availability"`
	}
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	if body.Availability == nil {
		return writeError(c, h.Log, apperr.Invalid("availability is required"))
	}
	rec, err := h.Engine.AdjustInventory(c.Request().Context(), id, *body.Availability)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Availability handles GET /room-types/:id/availability?start=&end=&rooms=.
// It never reserves anything; a positive answer may be stale by the time a
// reservation is made.
func (h *InventoryHandler) Availability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	start, err := parseDate("start", c.QueryParam("start"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	end, err := parseDate("end", c.QueryParam("end"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rooms := 1
	if raw := c.QueryParam("rooms"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return writeError(c, h.Log, apperr.Invalid("rooms must be a number"))
		}
		rooms = n
	}

	v, err := h.Engine.Check(c.Request().Context(), id, start, end, rooms)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := echo.Map{
		"roomTypeId":    id,
		"startDate":     start,
		"endDate":       end,
		"numberOfRooms": rooms,
		"nights":        v.Nights,
		"available":     v.Available,
	}
	if !v.Available {
		out["shortfallDate"] = v.ShortfallDate
		out["shortfallAvailable"] = v.ShortfallAvailable
		out["details"] = v.Shortfall(id, rooms).Error()
	}
	return c.JSON(http.StatusOK, out)
}

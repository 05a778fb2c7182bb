package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// ReservationReader is implemented by repository.ReservationRepo.
type ReservationReader interface {
	ListDetailed(ctx context.Context) ([]model.ReservationDetail, error)
	GetDetailed(ctx context.Context, id uint64) (*model.ReservationDetail, error)
}

// ReservationHandler serves the reservation endpoints.  Reads come straight
// from the repository; every write is a booking engine transaction.
type ReservationHandler struct {
	Engine       BookingEngine
	Reservations ReservationReader
	Log          *zap.Logger
}

// NewReservationHandler constructs a ReservationHandler and panics if any
// dependency is nil.
func NewReservationHandler(engine BookingEngine, reservations ReservationReader, log *zap.Logger) *ReservationHandler {
	if engine == nil || reservations == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: engine, Reservations: reservations, Log: nopIfNil(log)}
}

type reservationBody struct {
	UserID        *uint64 `json:"userId"`
	HotelID       *uint64 `json:"hotelId"`
	RoomTypeID    *uint64 `json:"roomTypeId"`
	StartDate     *string `json:"startDate"`
	EndDate       *string `json:"endDate"`
	NumberOfRooms *int    `json:"numberOfRooms"`
}

// List handles GET /reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	items, err := h.Reservations.ListDetailed(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	r, err := h.Reservations.GetDetailed(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Create handles POST /reservations.  numberOfRooms defaults to 1.  A
// shortfall answers 400 with the first night that cannot hold the request.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body reservationBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	req := booking.Request{Rooms: 1}
	switch {
	case body.UserID == nil:
		return writeError(c, h.Log, apperr.Invalid("userId is required"))
	case body.HotelID == nil:
		return writeError(c, h.Log, apperr.Invalid("hotelId is required"))
	case body.RoomTypeID == nil:
		return writeError(c, h.Log, apperr.Invalid("roomTypeId is required"))
	case body.StartDate == nil:
		return writeError(c, h.Log, apperr.Invalid("startDate is required"))
	case body.EndDate == nil:
		return writeError(c, h.Log, apperr.Invalid("endDate is required"))
	}
	req.UserID, req.HotelID, req.RoomTypeID = *body.UserID, *body.HotelID, *body.RoomTypeID
	var err error
	if req.Start, err = parseDate("startDate", *body.StartDate); err != nil {
		return writeError(c, h.Log, err)
	}
	if req.End, err = parseDate("endDate", *body.EndDate); err != nil {
		return writeError(c, h.Log, err)
	}
	if body.NumberOfRooms != nil {
		req.Rooms = *body.NumberOfRooms
	}

	res, err := h.Engine.Commit(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Update handles PUT /reservations/:id.  Omitted fields keep their value.
// A change that cannot be booked leaves the reservation as it was.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var body reservationBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	change := booking.Change{
		UserID:     body.UserID,
		HotelID:    body.HotelID,
		RoomTypeID: body.RoomTypeID,
		Rooms:      body.NumberOfRooms,
	}
	if change.Start, err = optionalDate("startDate", body.StartDate); err != nil {
		return writeError(c, h.Log, err)
	}
	if change.End, err = optionalDate("endDate", body.EndDate); err != nil {
		return writeError(c, h.Log, err)
	}

	res, err := h.Engine.Modify(c.Request().Context(), id, change)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /reservations/:id and returns the rooms to inventory.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if _, err := h.Engine.Cancel(c.Request().Context(), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func optionalDate(field string, raw *string) (*calendar.Date, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// HotelStore is implemented by repository.HotelRepo.
type HotelStore interface {
	Create(ctx context.Context, h *model.Hotel) error
	GetByID(ctx context.Context, id uint64) (*model.Hotel, error)
	List(ctx context.Context) ([]model.Hotel, error)
	Update(ctx context.Context, h *model.Hotel) error
	Delete(ctx context.Context, id uint64) error
}

// HotelHandler serves hotel CRUD.
type HotelHandler struct {
	Hotels HotelStore
	Log    *zap.Logger
}

// NewHotelHandler constructs a HotelHandler and panics if hotels is nil.
func NewHotelHandler(hotels HotelStore, log *zap.Logger) *HotelHandler {
	if hotels == nil {
		panic("nil store passed to NewHotelHandler")
	}
	return &HotelHandler{Hotels: hotels, Log: nopIfNil(log)}
}

type hotelBody struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
}

// List handles GET /hotels.
func (h *HotelHandler) List(c echo.Context) error {
	items, err := h.Hotels.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /hotels/:id.
func (h *HotelHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	hotel, err := h.Hotels.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, hotel)
}

// Create handles POST /hotels.
func (h *HotelHandler) Create(c echo.Context) error {
	var body hotelBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
		return writeError(c, h.Log, apperr.Invalid("name is required"))
	}
	hotel := &model.Hotel{Name: strings.TrimSpace(*body.Name), Location: optionalText(body.Location)}
	if err := h.Hotels.Create(c.Request().Context(), hotel); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, hotel)
}

// Update handles PUT /hotels/:id.  Omitted fields keep their value.
func (h *HotelHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var body hotelBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	ctx := c.Request().Context()
	hotel, err := h.Hotels.GetByID(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			return writeError(c, h.Log, apperr.Invalid("name is required"))
		}
		hotel.Name = name
	}
	if body.Location != nil {
		hotel.Location = optionalText(body.Location)
	}
	if err := h.Hotels.Update(ctx, hotel); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, hotel)
}

// Delete handles DELETE /hotels/:id.  Hotels that still have reservations
// cannot be deleted.
func (h *HotelHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if err := h.Hotels.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

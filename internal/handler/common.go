// Package handler contains the HTTP handlers of the booking API.  Handlers
// parse and validate requests, delegate to the booking engine or the
// repositories and translate apperr kinds into responses.
package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// BookingEngine is the part of booking.Engine the handlers use.
type BookingEngine interface {
	Check(ctx context.Context, roomTypeID uint64, start, end calendar.Date, rooms int) (booking.Verdict, error)
	Commit(ctx context.Context, req booking.Request) (*model.Reservation, error)
	Modify(ctx context.Context, id uint64, change booking.Change) (*model.Reservation, error)
	Cancel(ctx context.Context, id uint64) (*model.Reservation, error)
	SetAvailability(ctx context.Context, roomTypeID uint64, night calendar.Date, count int) (*model.InventoryRecord, error)
	AdjustInventory(ctx context.Context, id uint64, count int) (*model.InventoryRecord, error)
	CreateRoomType(ctx context.Context, rt *model.RoomType, initial *booking.InitialInventory) error
}

var errInvalidBody = apperr.Invalid("invalid request body")

// writeError renders err as {"error": kind, "details": message}.  Shortfalls
// also report the night and the counts; storage failures are logged with the
// request id and answered with an opaque message.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	kind := apperr.KindOf(err)
	body := echo.Map{
		"error":   string(kind),
		"details": apperr.Message(err),
	}
	var sf *booking.ShortfallError
	if errors.As(err, &sf) {
		body["details"] = sf.Error()
		body["shortfallDate"] = sf.Night
		body["available"] = sf.Available
		body["requested"] = sf.Requested
	}
	if kind == apperr.StorageFailure {
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(kind.Status(), body)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("invalid " + name)
	}
	return id, nil
}

// parseDate reads a required date field.  field names the value in the
// error message.
func parseDate(field, raw string) (calendar.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return calendar.Date{}, apperr.Invalid(field + " is required")
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		return calendar.Date{}, apperr.Invalid(field + " must be a date (YYYY-MM-DD)")
	}
	return d, nil
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

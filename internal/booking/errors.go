package booking

import (
	"fmt"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/calendar"
)

// ShortfallError reports the first night of a range that cannot hold the
// requested number of rooms.  It matches apperr.ErrInsufficientInventory.
type ShortfallError struct {
	RoomTypeID uint64
	Night      calendar.Date
	Available  int
	Requested  int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("Insufficient availability for %s. Available: %d, Requested: %d",
		e.Night, e.Available, e.Requested)
}

func (e *ShortfallError) Unwrap() error { return apperr.ErrInsufficientInventory }

var (
	errUserNotFound     = apperr.New(apperr.NotFound, "user not found")
	errHotelNotFound    = apperr.New(apperr.NotFound, "hotel not found")
	errRoomTypeNotFound = apperr.New(apperr.NotFound, "room type not found")
	errRoomTypeMismatch = apperr.Invalid("room type does not belong to hotel")
)

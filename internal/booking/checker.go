package booking

import (
	"context"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/calendar"
)

// Verdict is the outcome of an availability check.  When Available is false
// ShortfallDate is the first night in date order that cannot hold the request
// and ShortfallAvailable is what that night still has (0 when no record).
type Verdict struct {
	Available          bool          `json:"available"`
	ShortfallDate      calendar.Date `json:"shortfallDate"`
	ShortfallAvailable int           `json:"shortfallAvailable"`
	Nights             int           `json:"nights"`
}

// Shortfall converts a negative verdict into the matching error.
func (v Verdict) Shortfall(roomTypeID uint64, requested int) error {
	if v.Available {
		return nil
	}
	return &ShortfallError{
		RoomTypeID: roomTypeID,
		Night:      v.ShortfallDate,
		Available:  v.ShortfallAvailable,
		Requested:  requested,
	}
}

// Check evaluates every night of [start, end] against the ledger and stops at
// the first one that is missing or holds fewer than rooms.  It never mutates
// the ledger.
func Check(ctx context.Context, l *Ledger, roomTypeID uint64, start, end calendar.Date, rooms int) (Verdict, error) {
	if err := validateRange(start, end); err != nil {
		return Verdict{}, err
	}
	if rooms < 1 {
		return Verdict{}, apperr.Invalid("numberOfRooms must be at least 1")
	}
	nights, err := l.Nights(ctx, roomTypeID, start, end)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{Available: true, Nights: len(nights)}
	for _, n := range nights {
		if !n.Present || n.Available < rooms {
			v.Available = false
			v.ShortfallDate = n.Night
			v.ShortfallAvailable = n.Available
			return v, nil
		}
	}
	return v, nil
}

func validateRange(start, end calendar.Date) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Invalid("startDate and endDate are required")
	}
	if end.Before(start) {
		return apperr.Invalid("endDate must not be before startDate")
	}
	return nil
}

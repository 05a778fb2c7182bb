package booking

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// MaxAvailability is the largest per-night counter the inventory column holds.
const MaxAvailability = math.MaxUint32

var (
	errAvailabilityTooLarge = apperr.Invalid(fmt.Sprintf("availability must not exceed %d", uint32(MaxAvailability)))
	errAmountTooLarge       = apperr.Invalid(fmt.Sprintf("amount must not exceed %d", uint32(MaxAvailability)))
)

// NightAvailability is the state of one night in a range read.  Present is
// false when no inventory record exists, which counts as zero capacity.
type NightAvailability struct {
	Night     calendar.Date
	Available int
	Present   bool
	RecordID  uint64
}

// Ledger owns the per-night availability counters.  Every change to a
// counter goes through one of its methods.
type Ledger struct {
	inv InventoryStore
}

// NewLedger wraps an inventory store.  Pass a transaction-bound store to get
// locking reads.
func NewLedger(inv InventoryStore) *Ledger {
	return &Ledger{inv: inv}
}

// GetAvailability returns the count for one night and whether a record exists.
func (l *Ledger) GetAvailability(ctx context.Context, roomTypeID uint64, night calendar.Date) (int, bool, error) {
	rec, err := l.inv.Get(ctx, roomTypeID, night)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rec.Availability, true, nil
}

// Nights returns one entry per night of [start, end] from a single range read.
func (l *Ledger) Nights(ctx context.Context, roomTypeID uint64, start, end calendar.Date) ([]NightAvailability, error) {
	nights, err := calendar.Nights(start, end)
	if err != nil {
		return nil, apperr.Invalid(err.Error())
	}
	records, err := l.inv.Range(ctx, roomTypeID, start, end)
	if err != nil {
		return nil, err
	}
	byNight := make(map[calendar.Date]model.InventoryRecord, len(records))
	for _, r := range records {
		byNight[r.Date] = r
	}
	out := make([]NightAvailability, len(nights))
	for i, n := range nights {
		out[i] = NightAvailability{Night: n}
		if r, ok := byNight[n]; ok {
			out[i].Available = r.Availability
			out[i].Present = true
			out[i].RecordID = r.ID
		}
	}
	return out, nil
}

// SetAvailability creates or overwrites the record for one night.
func (l *Ledger) SetAvailability(ctx context.Context, roomTypeID uint64, night calendar.Date, count int) (*model.InventoryRecord, error) {
	if night.IsZero() {
		return nil, apperr.Invalid("date is required")
	}
	if count < 0 {
		return nil, apperr.Invalid("availability must not be negative")
	}
	if int64(count) > MaxAvailability {
		return nil, errAvailabilityTooLarge
	}
	return l.inv.Upsert(ctx, roomTypeID, night, count)
}

// Decrement removes amount rooms from one night.  A missing record or a count
// below amount yields a *ShortfallError and leaves the counter untouched.
func (l *Ledger) Decrement(ctx context.Context, roomTypeID uint64, night calendar.Date, amount int) error {
	if amount < 1 {
		return apperr.Invalid("amount must be at least 1")
	}
	if int64(amount) > MaxAvailability {
		return errAmountTooLarge
	}
	ok, err := l.inv.Decrement(ctx, roomTypeID, night, amount)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	available, _, err := l.GetAvailability(ctx, roomTypeID, night)
	if err != nil {
		return err
	}
	return &ShortfallError{RoomTypeID: roomTypeID, Night: night, Available: available, Requested: amount}
}

// Credit returns amount rooms to one night, recreating the record when an
// operator removed it.
func (l *Ledger) Credit(ctx context.Context, roomTypeID uint64, night calendar.Date, amount int) error {
	if amount < 1 {
		return apperr.Invalid("amount must be at least 1")
	}
	if int64(amount) > MaxAvailability {
		return errAmountTooLarge
	}
	ok, err := l.inv.Increment(ctx, roomTypeID, night, amount)
	if err != nil || ok {
		return err
	}
	_, err = l.inv.Upsert(ctx, roomTypeID, night, amount)
	return err
}

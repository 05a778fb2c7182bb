// Package booking implements the room-inventory reservation engine: the
// per-night inventory ledger, the availability checker and the committer that
// turns a successful check into decremented counters plus a reservation record
// inside a single transaction.
package booking

import (
	"context"

	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// InventoryStore persists per-night availability counters.  Implementations
// bound to a transaction must lock the rows returned by Range until the
// transaction ends.
type InventoryStore interface {
	// Get returns the record for one night or an apperr NotFound error.
	Get(ctx context.Context, roomTypeID uint64, night calendar.Date) (*model.InventoryRecord, error)
	// GetByID returns a record by primary key or an apperr NotFound error.
	GetByID(ctx context.Context, id uint64) (*model.InventoryRecord, error)
	// Range returns the existing records in [start, end] ordered by date.
	Range(ctx context.Context, roomTypeID uint64, start, end calendar.Date) ([]model.InventoryRecord, error)
	// Upsert sets the availability of one night, creating the record if needed.
	Upsert(ctx context.Context, roomTypeID uint64, night calendar.Date, availability int) (*model.InventoryRecord, error)
	// Decrement subtracts amount only when the record exists and holds at least
	// amount rooms.  It reports whether a row was changed.
	Decrement(ctx context.Context, roomTypeID uint64, night calendar.Date, amount int) (bool, error)
	// Increment adds amount to an existing record.  It reports whether a row
	// was changed.
	Increment(ctx context.Context, roomTypeID uint64, night calendar.Date, amount int) (bool, error)
}

// ReservationStore persists reservation records.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	// GetForUpdate loads a reservation and locks it for the rest of the
	// transaction.  Missing ids yield an apperr NotFound error.
	GetForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)
	Update(ctx context.Context, r *model.Reservation) error
	Delete(ctx context.Context, id uint64) error
}

// RoomTypeStore reads and creates room types.
type RoomTypeStore interface {
	Get(ctx context.Context, id uint64) (*model.RoomType, error)
	Create(ctx context.Context, rt *model.RoomType) error
}

// Finder checks that a referenced entity exists.
type Finder interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// Tx exposes the stores bound to one open transaction.
type Tx interface {
	Inventory() InventoryStore
	Reservations() ReservationStore
	RoomTypes() RoomTypeStore
	Users() Finder
	Hotels() Finder
}

// Store is the unit of work the engine runs against.  InTx commits when fn
// returns nil and rolls back every change otherwise.  Inventory and RoomTypes
// give non-locking access for read-only checks.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Inventory() InventoryStore
	RoomTypes() RoomTypeStore
}

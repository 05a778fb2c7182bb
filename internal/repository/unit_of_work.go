package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/booking"
)

// UnitOfWork runs booking operations inside one MySQL transaction.  It
// implements booking.Store.
type UnitOfWork struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewUnitOfWork returns a UnitOfWork using REPEATABLE READ, InnoDB's default,
// under which SELECT ... FOR UPDATE also locks gaps between existing rows.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db, opts: &sql.TxOptions{Isolation: sql.LevelRepeatableRead}}
}

// InTx begins a transaction, hands fn the transaction-bound stores and
// commits when fn succeeds.  Any error, including a failed commit, rolls the
// transaction back.
func (u *UnitOfWork) InTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := u.db.BeginTx(ctx, u.opts)
	if err != nil {
		return classify(err, nil, nil)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(txStores{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err, nil, nil)
	}
	committed = true
	return nil
}

// Inventory returns a non-locking inventory store for read-only checks.
func (u *UnitOfWork) Inventory() booking.InventoryStore { return &InventoryRepo{q: u.db} }

// RoomTypes returns a room type store outside any transaction.
func (u *UnitOfWork) RoomTypes() booking.RoomTypeStore { return &RoomTypeRepo{q: u.db} }

// txStores binds every repository to one *sql.Tx.
type txStores struct{ tx *sql.Tx }

func (s txStores) Inventory() booking.InventoryStore {
	return &InventoryRepo{q: s.tx, locking: true}
}

func (s txStores) Reservations() booking.ReservationStore { return &ReservationRepo{q: s.tx} }

func (s txStores) RoomTypes() booking.RoomTypeStore { return &RoomTypeRepo{q: s.tx} }

func (s txStores) Users() booking.Finder { return &UserRepo{q: s.tx} }

func (s txStores) Hotels() booking.Finder { return &HotelRepo{q: s.tx} }

var (
	_ booking.Store = (*UnitOfWork)(nil)
	_ booking.Tx    = txStores{}
)

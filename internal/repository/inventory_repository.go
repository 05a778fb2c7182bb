package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// InventoryRepo stores per-night availability in room_inventory.  The table
// has a unique key on (room_type_id, stay_date) and an unsigned availability
// column, so neither duplicates nor negative counts can be written.
type InventoryRepo struct {
	q       querier
	locking bool // range reads take row locks; only set inside a transaction
}

// NewInventoryRepo constructs a non-locking InventoryRepo.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{q: db} }

const inventoryColumns = "id, room_type_id, stay_date, availability, updated_at"

func scanInventory(row interface{ Scan(...any) error }, rec *model.InventoryRecord) error {
	return row.Scan(&rec.ID, &rec.RoomTypeID, &rec.Date, &rec.Availability, &rec.UpdatedAt)
}

// Get fetches the record of one night.
func (r *InventoryRepo) Get(ctx context.Context, roomTypeID uint64, night calendar.Date) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := scanInventory(r.q.QueryRowContext(ctx,
		"SELECT "+inventoryColumns+" FROM room_inventory WHERE room_type_id = ? AND stay_date = ? LIMIT 1",
		roomTypeID, night), &rec)
	if err != nil {
		return nil, classify(err, ErrInventoryNotFound, nil)
	}
	return &rec, nil
}

// GetByID fetches a record by primary key.  Inside a transaction the row is
// locked.
func (r *InventoryRepo) GetByID(ctx context.Context, id uint64) (*model.InventoryRecord, error) {
	q := "SELECT " + inventoryColumns + " FROM room_inventory WHERE id = ?"
	if r.locking {
		q += " FOR UPDATE"
	}
	var rec model.InventoryRecord
	if err := scanInventory(r.q.QueryRowContext(ctx, q, id), &rec); err != nil {
		return nil, classify(err, ErrInventoryNotFound, nil)
	}
	return &rec, nil
}

// Range returns the records of [start, end] ordered by date.  Inside a
// transaction the rows are locked with SELECT ... FOR UPDATE; InnoDB also
// locks the gaps, so a concurrent insert of a missing night waits as well.
func (r *InventoryRepo) Range(ctx context.Context, roomTypeID uint64, start, end calendar.Date) ([]model.InventoryRecord, error) {
	q := "SELECT " + inventoryColumns + " FROM room_inventory WHERE room_type_id = ? AND stay_date BETWEEN ? AND ? ORDER BY stay_date"
	if r.locking {
		q += " FOR UPDATE"
	}
	rows, err := r.q.QueryContext(ctx, q, roomTypeID, start, end)
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := []model.InventoryRecord{}
	for rows.Next() {
		var rec model.InventoryRecord
		if err := scanInventory(rows, &rec); err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil, nil)
	}
	return out, nil
}

// ListByRoomType returns every record of a room type, optionally restricted
// to one night.
func (r *InventoryRepo) ListByRoomType(ctx context.Context, roomTypeID uint64, night *calendar.Date) ([]model.InventoryRecord, error) {
	if night != nil {
		rec, err := r.Get(ctx, roomTypeID, *night)
		if err == ErrInventoryNotFound {
			return []model.InventoryRecord{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []model.InventoryRecord{*rec}, nil
	}
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+inventoryColumns+" FROM room_inventory WHERE room_type_id = ? ORDER BY stay_date", roomTypeID)
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := []model.InventoryRecord{}
	for rows.Next() {
		var rec model.InventoryRecord
		if err := scanInventory(rows, &rec); err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil, nil)
	}
	return out, nil
}

// Upsert sets the availability of one night, inserting the record when it
// does not exist yet.
func (r *InventoryRepo) Upsert(ctx context.Context, roomTypeID uint64, night calendar.Date, availability int) (*model.InventoryRecord, error) {
	const q = `INSERT INTO room_inventory (room_type_id, stay_date, availability) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE availability = VALUES(availability), updated_at = CURRENT_TIMESTAMP`
	if _, err := r.q.ExecContext(ctx, q, roomTypeID, night, availability); err != nil {
		err = classify(err, nil, nil)
		if err == ErrReferenceNotFound {
			return nil, ErrRoomTypeNotFound
		}
		return nil, err
	}
	return r.Get(ctx, roomTypeID, night)
}

// Decrement subtracts amount when the night holds at least amount rooms.
func (r *InventoryRepo) Decrement(ctx context.Context, roomTypeID uint64, night calendar.Date, amount int) (bool, error) {
	const q = `UPDATE room_inventory SET availability = availability - ?, updated_at = CURRENT_TIMESTAMP
	           WHERE room_type_id = ? AND stay_date = ? AND availability >= ?`
	res, err := r.q.ExecContext(ctx, q, amount, roomTypeID, night, amount)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	ok, err := affected(res)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return ok, nil
}

// Increment adds amount to an existing night.
func (r *InventoryRepo) Increment(ctx context.Context, roomTypeID uint64, night calendar.Date, amount int) (bool, error) {
	const q = `UPDATE room_inventory SET availability = availability + ?, updated_at = CURRENT_TIMESTAMP
	           WHERE room_type_id = ? AND stay_date = ?`
	res, err := r.q.ExecContext(ctx, q, amount, roomTypeID, night)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	ok, err := affected(res)
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return ok, nil
}

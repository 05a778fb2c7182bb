package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// HotelRepo encapsulates all database queries related to hotels.
type HotelRepo struct{ q querier }

// NewHotelRepo constructs a HotelRepo with the provided DB handle.
func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{q: db} }

const hotelColumns = "id, name, location, created_at, updated_at"

func scanHotel(row interface{ Scan(...any) error }, h *model.Hotel) error {
	return row.Scan(&h.ID, &h.Name, &h.Location, &h.CreatedAt, &h.UpdatedAt)
}

// Create inserts a hotel and populates its ID and timestamps.
func (r *HotelRepo) Create(ctx context.Context, h *model.Hotel) error {
	res, err := r.q.ExecContext(ctx, "INSERT INTO hotels (name, location) VALUES (?, ?)", h.Name, h.Location)
	if err != nil {
		return classify(err, nil, nil)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return classify(err, nil, nil)
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*h = *created
	return nil
}

// GetByID fetches a hotel by id.
func (r *HotelRepo) GetByID(ctx context.Context, id uint64) (*model.Hotel, error) {
	var h model.Hotel
	err := scanHotel(r.q.QueryRowContext(ctx, "SELECT "+hotelColumns+" FROM hotels WHERE id = ? LIMIT 1", id), &h)
	if err != nil {
		return nil, classify(err, ErrHotelNotFound, nil)
	}
	return &h, nil
}

// List returns every hotel ordered by id.
func (r *HotelRepo) List(ctx context.Context) ([]model.Hotel, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+hotelColumns+" FROM hotels ORDER BY id")
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := []model.Hotel{}
	for rows.Next() {
		var h model.Hotel
		if err := scanHotel(rows, &h); err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil, nil)
	}
	return out, nil
}

// Update overwrites name and location of an existing hotel.
func (r *HotelRepo) Update(ctx context.Context, h *model.Hotel) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE hotels SET name = ?, location = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		h.Name, h.Location, h.ID)
	if err != nil {
		return classify(err, nil, nil)
	}
	updated, err := r.GetByID(ctx, h.ID)
	if err != nil {
		return err
	}
	*h = *updated
	return nil
}

// Delete removes a hotel.  Hotels with room types or reservations yield
// ErrConflict.
func (r *HotelRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM hotels WHERE id = ?", id)
	if err != nil {
		return classify(err, nil, nil)
	}
	ok, err := affected(res)
	if err != nil {
		return classify(err, nil, nil)
	}
	if !ok {
		return ErrHotelNotFound
	}
	return nil
}

// Exists reports whether a hotel with the given id exists.
func (r *HotelRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.q, "SELECT 1 FROM hotels WHERE id = ? LIMIT 1", id)
}

package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// RoomTypeRepo reads and creates room types.
type RoomTypeRepo struct{ q querier }

// NewRoomTypeRepo constructs a RoomTypeRepo with the provided DB handle.
func NewRoomTypeRepo(db *sql.DB) *RoomTypeRepo { return &RoomTypeRepo{q: db} }

// Create inserts a room type.  A hotel id that does not exist yields
// ErrHotelNotFound.
func (r *RoomTypeRepo) Create(ctx context.Context, rt *model.RoomType) error {
	res, err := r.q.ExecContext(ctx, "INSERT INTO room_types (hotel_id, name) VALUES (?, ?)", rt.HotelID, rt.Name)
	if err != nil {
		err = classify(err, nil, nil)
		if err == ErrReferenceNotFound {
			return ErrHotelNotFound
		}
		return err
	}
	id, err := lastInsertID(res)
	if err != nil {
		return classify(err, nil, nil)
	}
	created, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	*rt = *created
	return nil
}

// Get fetches a room type by id.
func (r *RoomTypeRepo) Get(ctx context.Context, id uint64) (*model.RoomType, error) {
	var rt model.RoomType
	err := r.q.QueryRowContext(ctx,
		"SELECT id, hotel_id, name, created_at FROM room_types WHERE id = ? LIMIT 1", id,
	).Scan(&rt.ID, &rt.HotelID, &rt.Name, &rt.CreatedAt)
	if err != nil {
		return nil, classify(err, ErrRoomTypeNotFound, nil)
	}
	return &rt, nil
}

// ListByHotel returns the room types of one hotel ordered by id.
func (r *RoomTypeRepo) ListByHotel(ctx context.Context, hotelID uint64) ([]model.RoomType, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, hotel_id, name, created_at FROM room_types WHERE hotel_id = ? ORDER BY id", hotelID)
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := []model.RoomType{}
	for rows.Next() {
		var rt model.RoomType
		if err := rows.Scan(&rt.ID, &rt.HotelID, &rt.Name, &rt.CreatedAt); err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil, nil)
	}
	return out, nil
}

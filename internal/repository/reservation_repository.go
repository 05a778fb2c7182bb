package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// ReservationRepo persists reservations.  Writes are only issued by the
// booking engine inside a unit of work; the listing queries are used directly
// by the HTTP handlers.
type ReservationRepo struct{ q querier }

// NewReservationRepo constructs a ReservationRepo with the provided DB handle.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{q: db} }

const reservationColumns = "id, user_id, hotel_id, room_type_id, start_date, end_date, number_of_rooms, created_at, updated_at"

func scanReservation(row interface{ Scan(...any) error }, res *model.Reservation) error {
	return row.Scan(&res.ID, &res.UserID, &res.HotelID, &res.RoomTypeID,
		&res.StartDate, &res.EndDate, &res.NumberOfRooms, &res.CreatedAt, &res.UpdatedAt)
}

// Create inserts a reservation and populates its ID and timestamps.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, hotel_id, room_type_id, start_date, end_date, number_of_rooms)
	           VALUES (?, ?, ?, ?, ?, ?)`
	out, err := r.q.ExecContext(ctx, q, res.UserID, res.HotelID, res.RoomTypeID, res.StartDate, res.EndDate, res.NumberOfRooms)
	if err != nil {
		return classify(err, nil, nil)
	}
	id, err := lastInsertID(out)
	if err != nil {
		return classify(err, nil, nil)
	}
	created, err := r.get(ctx, id, false)
	if err != nil {
		return err
	}
	*res = *created
	return nil
}

// GetByID fetches a reservation without locking it.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate fetches a reservation and locks its row until the surrounding
// transaction ends.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, id, true)
}

func (r *ReservationRepo) get(ctx context.Context, id uint64, lock bool) (*model.Reservation, error) {
	q := "SELECT " + reservationColumns + " FROM reservations WHERE id = ?"
	if lock {
		q += " FOR UPDATE"
	}
	var res model.Reservation
	if err := scanReservation(r.q.QueryRowContext(ctx, q, id), &res); err != nil {
		return nil, classify(err, ErrReservationNotFound, nil)
	}
	return &res, nil
}

// Update overwrites every mutable column of a reservation.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
	           SET user_id = ?, hotel_id = ?, room_type_id = ?, start_date = ?, end_date = ?,
	               number_of_rooms = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.q.ExecContext(ctx, q, res.UserID, res.HotelID, res.RoomTypeID,
		res.StartDate, res.EndDate, res.NumberOfRooms, res.ID); err != nil {
		return classify(err, nil, nil)
	}
	updated, err := r.get(ctx, res.ID, false)
	if err != nil {
		return err
	}
	*res = *updated
	return nil
}

// Delete removes a reservation.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	out, err := r.q.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return classify(err, nil, nil)
	}
	ok, err := affected(out)
	if err != nil {
		return classify(err, nil, nil)
	}
	if !ok {
		return ErrReservationNotFound
	}
	return nil
}

const reservationDetailQuery = `SELECT
	r.id, r.user_id, r.hotel_id, r.room_type_id, r.start_date, r.end_date, r.number_of_rooms, r.created_at, r.updated_at,
	u.id, u.email, u.name, u.created_at, u.updated_at,
	h.id, h.name, h.location, h.created_at, h.updated_at,
	t.id, t.hotel_id, t.name, t.created_at
FROM reservations r
JOIN users u ON u.id = r.user_id
JOIN hotels h ON h.id = r.hotel_id
JOIN room_types t ON t.id = r.room_type_id`

func scanReservationDetail(row interface{ Scan(...any) error }, d *model.ReservationDetail) error {
	return row.Scan(
		&d.ID, &d.UserID, &d.HotelID, &d.RoomTypeID, &d.StartDate, &d.EndDate, &d.NumberOfRooms, &d.CreatedAt, &d.UpdatedAt,
		&d.User.ID, &d.User.Email, &d.User.Name, &d.User.CreatedAt, &d.User.UpdatedAt,
		&d.Hotel.ID, &d.Hotel.Name, &d.Hotel.Location, &d.Hotel.CreatedAt, &d.Hotel.UpdatedAt,
		&d.RoomType.ID, &d.RoomType.HotelID, &d.RoomType.Name, &d.RoomType.CreatedAt,
	)
}

// ListDetailed returns every reservation joined with its user, hotel and room
// type, newest first.
func (r *ReservationRepo) ListDetailed(ctx context.Context) ([]model.ReservationDetail, error) {
	rows, err := r.q.QueryContext(ctx, reservationDetailQuery+" ORDER BY r.id DESC")
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := []model.ReservationDetail{}
	for rows.Next() {
		var d model.ReservationDetail
		if err := scanReservationDetail(rows, &d); err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil, nil)
	}
	return out, nil
}

// GetDetailed fetches one reservation joined with its user, hotel and room
// type.
func (r *ReservationRepo) GetDetailed(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	var d model.ReservationDetail
	if err := scanReservationDetail(r.q.QueryRowContext(ctx, reservationDetailQuery+" WHERE r.id = ?", id), &d); err != nil {
		return nil, classify(err, ErrReservationNotFound, nil)
	}
	return &d, nil
}

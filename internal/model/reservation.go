package model

import (
	"time"

	"github.com/iliyamo/hotel-booking/internal/calendar"
)

// Reservation records a booking of NumberOfRooms rooms of one room type at
// one hotel for every night from StartDate to EndDate, both inclusive.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – user who made the reservation.
//	HotelID       – hotel being booked.
//	RoomTypeID    – room type being booked; belongs to HotelID.
//	StartDate     – first night of the stay.
//	EndDate       – last night of the stay (consumed, not just checkout).
//	NumberOfRooms – rooms held on every night, at least 1.
//	CreatedAt     – creation timestamp.
//	UpdatedAt     – last update timestamp.
type Reservation struct {
	ID            uint64        `json:"id"`            // reservations.id
	UserID        uint64        `json:"userId"`        // reservations.user_id
	HotelID       uint64        `json:"hotelId"`       // reservations.hotel_id
	RoomTypeID    uint64        `json:"roomTypeId"`    // reservations.room_type_id
	StartDate     calendar.Date `json:"startDate"`     // reservations.start_date
	EndDate       calendar.Date `json:"endDate"`       // reservations.end_date
	NumberOfRooms int           `json:"numberOfRooms"` // reservations.number_of_rooms
	CreatedAt     time.Time     `json:"createdAt"`     // reservations.created_at
	UpdatedAt     time.Time     `json:"updatedAt"`     // reservations.updated_at
}

// Nights returns every night covered by the reservation.
func (r *Reservation) Nights() ([]calendar.Date, error) {
	return calendar.Nights(r.StartDate, r.EndDate)
}

// ReservationDetail is a reservation joined with the records it references,
// as returned by the listing endpoints.
type ReservationDetail struct {
	Reservation
	User     User     `json:"user"`
	Hotel    Hotel    `json:"hotel"`
	RoomType RoomType `json:"roomType"`
}

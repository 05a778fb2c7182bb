// Package queue defines message payloads exchanged over the message broker and
// the background consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Reservation event types.  They double as routing keys.
const (
	ReservationCreated   = "reservation.created"
	ReservationUpdated   = "reservation.updated"
	ReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a reservation change has been committed.
// It carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type ReservationEvent struct {
	EventID       string    `json:"eventId"`
	Type          string    `json:"type"`
	ReservationID uint64    `json:"reservationId"`
	UserID        uint64    `json:"userId"`
	HotelID       uint64    `json:"hotelId"`
	RoomTypeID    uint64    `json:"roomTypeId"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	NumberOfRooms int       `json:"numberOfRooms"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// NewReservationEvent stamps a fresh event id and the current time.
func NewReservationEvent(typ string) ReservationEvent {
	return ReservationEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
	}
}

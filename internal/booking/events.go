package booking

import (
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

// EventPublisher receives reservation events after their transaction has
// committed.  Publish must not block on the broker; a returned error only
// means the event was dropped.
type EventPublisher interface {
	Publish(ev queue.ReservationEvent) error
}

// NopPublisher discards every event.  It is used when messaging is disabled.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(queue.ReservationEvent) error { return nil }

func reservationEvent(typ string, r *model.Reservation) queue.ReservationEvent {
	ev := queue.NewReservationEvent(typ)
	ev.ReservationID = r.ID
	ev.UserID = r.UserID
	ev.HotelID = r.HotelID
	ev.RoomTypeID = r.RoomTypeID
	ev.StartDate = r.StartDate.String()
	ev.EndDate = r.EndDate.String()
	ev.NumberOfRooms = r.NumberOfRooms
	return ev
}

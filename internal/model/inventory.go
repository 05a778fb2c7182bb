package model

import (
	"time"

	"github.com/iliyamo/hotel-booking/internal/calendar"
)

// InventoryRecord is the availability count for one room type on one night.
// There is at most one record per (RoomTypeID, Date); the table carries a
// unique key on that pair.  Availability is never negative.
//
// Fields:
//
//	ID           – primary key identifier.
//	RoomTypeID   – room type the count belongs to.
//	Date         – the night, without time of day.
//	Availability – remaining bookable rooms for that night.
//	UpdatedAt    – last modification (operator edit or booking).
type InventoryRecord struct {
	ID           uint64        `json:"id"`           // room_inventory.id
	RoomTypeID   uint64        `json:"roomTypeId"`   // room_inventory.room_type_id
	Date         calendar.Date `json:"date"`         // room_inventory.stay_date
	Availability int           `json:"availability"` // room_inventory.availability
	UpdatedAt    time.Time     `json:"updatedAt"`    // room_inventory.updated_at
}

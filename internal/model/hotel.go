package model

import "time"

// Hotel represents a property that offers one or more room types.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – hotel name.
//	Location  – optional free-form location (city, address).
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Hotel struct {
	ID        uint64    `json:"id"`        // hotels.id
	Name      string    `json:"name"`      // hotels.name
	Location  *string   `json:"location"`  // hotels.location (nullable)
	CreatedAt time.Time `json:"createdAt"` // hotels.created_at
	UpdatedAt time.Time `json:"updatedAt"` // hotels.updated_at
}

// RoomType identifies a category of room within a hotel (e.g. "Double",
// "Suite").  Availability is tracked per room type and night in the
// room_inventory table, never on the room type itself.
type RoomType struct {
	ID        uint64    `json:"id"`        // room_types.id
	HotelID   uint64    `json:"hotelId"`   // room_types.hotel_id
	Name      string    `json:"name"`      // room_types.name
	CreatedAt time.Time `json:"createdAt"` // room_types.created_at
}

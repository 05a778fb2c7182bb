package model

import "time"

// User represents a guest record as stored in the `users` table.  Users own
// reservations; nothing in the booking core mutates them.
//
// Fields:
//
//	ID        – primary key identifier of the user.
//	Email     – unique email address.
//	Name      – optional display name.
//	CreatedAt – timestamp of creation.
//	UpdatedAt – timestamp of last update.
type User struct {
	ID        uint64    `json:"id"`        // users.id
	Email     string    `json:"email"`     // users.email
	Name      *string   `json:"name"`      // users.name (nullable)
	CreatedAt time.Time `json:"createdAt"` // users.created_at
	UpdatedAt time.Time `json:"updatedAt"` // users.updated_at
}

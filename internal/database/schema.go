package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables when they do not exist yet.  room_inventory has
// one row per (room type, night) and an unsigned counter, so the database
// itself rejects duplicates and negative availability.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS hotels (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		location VARCHAR(255) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS room_types (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		hotel_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_room_types_hotel (hotel_id),
		CONSTRAINT fk_room_types_hotel FOREIGN KEY (hotel_id) REFERENCES hotels (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS room_inventory (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_type_id BIGINT UNSIGNED NOT NULL,
		stay_date DATE NOT NULL,
		availability INT UNSIGNED NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_room_inventory_night (room_type_id, stay_date),
		CONSTRAINT fk_room_inventory_room_type FOREIGN KEY (room_type_id) REFERENCES room_types (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		hotel_id BIGINT UNSIGNED NOT NULL,
		room_type_id BIGINT UNSIGNED NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		number_of_rooms INT UNSIGNED NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_reservations_room_type_dates (room_type_id, start_date, end_date),
		CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_reservations_hotel FOREIGN KEY (hotel_id) REFERENCES hotels (id),
		CONSTRAINT fk_reservations_room_type FOREIGN KEY (room_type_id) REFERENCES room_types (id),
		CONSTRAINT chk_reservations_range CHECK (end_date >= start_date),
		CONSTRAINT chk_reservations_rooms CHECK (number_of_rooms >= 1)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

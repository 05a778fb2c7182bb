package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// UserRepo encapsulates all database queries related to users.
type UserRepo struct{ q querier }

// NewUserRepo constructs a UserRepo with the provided DB handle.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{q: db} }

const userColumns = "id, email, name, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }, u *model.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
}

// Create inserts a user and populates its ID and timestamps.  Emails are
// normalised to lower case; a taken email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.q.ExecContext(ctx, "INSERT INTO users (email, name) VALUES (?, ?)", u.Email, u.Name)
	if err != nil {
		return classify(err, nil, ErrEmailExists)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return classify(err, nil, nil)
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	err := scanUser(r.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id), &u)
	if err != nil {
		return nil, classify(err, ErrUserNotFound, nil)
	}
	return &u, nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, classify(err, nil, nil)
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, classify(err, nil, nil)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, nil, nil)
	}
	return out, nil
}

// Update overwrites email and name of an existing user.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	_, err := r.q.ExecContext(ctx,
		"UPDATE users SET email = ?, name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		u.Email, u.Name, u.ID)
	if err != nil {
		return classify(err, nil, ErrEmailExists)
	}
	// MySQL reports zero affected rows when nothing changed, so existence is
	// decided by reading the row back.
	updated, err := r.GetByID(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = *updated
	return nil
}

// Delete removes a user.  Users that still own reservations cannot be
// deleted and yield ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return classify(err, nil, nil)
	}
	ok, err := affected(res)
	if err != nil {
		return classify(err, nil, nil)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// Exists reports whether a user with the given id exists.
func (r *UserRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	return exists(ctx, r.q, "SELECT 1 FROM users WHERE id = ? LIMIT 1", id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func exists(ctx context.Context, q querier, query string, id uint64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, classify(err, nil, nil)
	}
	return true, nil
}

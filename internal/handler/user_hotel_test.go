package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/model"
)

type memUsers struct {
	rows   map[uint64]model.User
	nextID uint64
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	for _, r := range m.rows {
		if r.Email == u.Email {
			return apperr.Invalid("email already exists")
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return &u, nil
}

func (m *memUsers) List(context.Context) ([]model.User, error) {
	out := []model.User{}
	for _, u := range m.rows {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	if _, ok := m.rows[id]; !ok {
		return apperr.New(apperr.NotFound, "user not found")
	}
	delete(m.rows, id)
	return nil
}

type memHotels struct {
	rows       map[uint64]model.Hotel
	referenced map[uint64]bool
}

func (m *memHotels) Create(_ context.Context, h *model.Hotel) error {
	h.ID = uint64(len(m.rows) + 1)
	m.rows[h.ID] = *h
	return nil
}

func (m *memHotels) GetByID(_ context.Context, id uint64) (*model.Hotel, error) {
	h, ok := m.rows[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "hotel not found")
	}
	return &h, nil
}

func (m *memHotels) List(context.Context) ([]model.Hotel, error) {
	out := []model.Hotel{}
	for _, h := range m.rows {
		out = append(out, h)
	}
	return out, nil
}

func (m *memHotels) Update(_ context.Context, h *model.Hotel) error {
	m.rows[h.ID] = *h
	return nil
}

func (m *memHotels) Delete(_ context.Context, id uint64) error {
	if m.referenced[id] {
		return apperr.Invalid("record is still referenced by other records")
	}
	delete(m.rows, id)
	return nil
}

func newCRUDServer() (*testServer, *memUsers, *memHotels) {
	s := &testServer{e: echo.New()}
	users := &memUsers{rows: map[uint64]model.User{}}
	hotels := &memHotels{rows: map[uint64]model.Hotel{}, referenced: map[uint64]bool{}}

	uh := NewUserHandler(users, nil)
	s.e.GET("/users", uh.List)
	s.e.POST("/users", uh.Create)
	s.e.GET("/users/:id", uh.Get)
	s.e.PUT("/users/:id", uh.Update)
	s.e.DELETE("/users/:id", uh.Delete)

	hh := NewHotelHandler(hotels, nil)
	s.e.GET("/hotels", hh.List)
	s.e.POST("/hotels", hh.Create)
	s.e.GET("/hotels/:id", hh.Get)
	s.e.PUT("/hotels/:id", hh.Update)
	s.e.DELETE("/hotels/:id", hh.Delete)
	return s, users, hotels
}

func TestUserCRUD(t *testing.T) {
	s, users, _ := newCRUDServer()

	rec, out := s.do(http.MethodPost, "/users", `{"email":" ada@example.com ","name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ada@example.com", out["email"])
	id := uint64(out["id"].(float64))

	rec, out = s.do(http.MethodPost, "/users", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already exists", out["details"])

	rec, out = s.do(http.MethodPost, "/users", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email is invalid", out["details"])

	rec, out = s.do(http.MethodPut, "/users/1", `{"name":"  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, out["name"])
	assert.Equal(t, "ada@example.com", users.rows[id].Email, "omitted email is kept")

	rec, _ = s.do(http.MethodGet, "/users/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Len(t, s.list(t, "/users"), 1)

	rec, _ = s.do(http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, users.rows)
}

func TestHotelCRUD(t *testing.T) {
	s, _, hotels := newCRUDServer()

	rec, out := s.do(http.MethodPost, "/hotels", `{"location":"Lisbon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", out["details"])

	assert.Empty(t, s.list(t, "/hotels"))

	rec, out = s.do(http.MethodPost, "/hotels", `{"name":"Harbour","location":"Lisbon"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Lisbon", out["location"])

	hotelsOut := s.list(t, "/hotels")
	require.Len(t, hotelsOut, 1)
	assert.Equal(t, "Harbour", hotelsOut[0].(map[string]any)["name"])

	rec, out = s.do(http.MethodPut, "/hotels/1", `{"name":"Harbour View"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Harbour View", out["name"])
	assert.Equal(t, "Lisbon", out["location"])

	hotels.referenced[1] = true
	rec, out = s.do(http.MethodDelete, "/hotels/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", out["error"])

	rec, _ = s.do(http.MethodGet, "/hotels/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// UserStore is implemented by repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) error
}

// UserHandler serves user CRUD.
type UserHandler struct {
	Users UserStore
	Log   *zap.Logger
}

// NewUserHandler constructs a UserHandler and panics if users is nil.
func NewUserHandler(users UserStore, log *zap.Logger) *UserHandler {
	if users == nil {
		panic("nil store passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Log: nopIfNil(log)}
}

type userBody struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

// optionalText trims p and returns nil for a missing or blank value.
func optionalText(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

// List handles GET /users.
func (h *UserHandler) List(c echo.Context) error {
	items, err := h.Users.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Create handles POST /users.  The email is required and must be unique.
func (h *UserHandler) Create(c echo.Context) error {
	var body userBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	if body.Email == nil || strings.TrimSpace(*body.Email) == "" {
		return writeError(c, h.Log, apperr.Invalid("email is required"))
	}
	email := strings.TrimSpace(*body.Email)
	if !validEmail(email) {
		return writeError(c, h.Log, apperr.Invalid("email is invalid"))
	}
	u := &model.User{Email: email, Name: optionalText(body.Name)}
	if err := h.Users.Create(c.Request().Context(), u); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Update handles PUT /users/:id.  Omitted fields keep their value.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var body userBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if body.Email != nil {
		email := strings.TrimSpace(*body.Email)
		if !validEmail(email) {
			return writeError(c, h.Log, apperr.Invalid("email is invalid"))
		}
		u.Email = email
	}
	if body.Name != nil {
		u.Name = optionalText(body.Name)
	}
	if err := h.Users.Update(ctx, u); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Delete handles DELETE /users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

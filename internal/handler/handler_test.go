package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
)

type fakeEngine struct {
	verdict booking.Verdict
	err     error

	commits   []booking.Request
	changes   []booking.Change
	cancelled []uint64
	sets      []model.InventoryRecord
	adjusted  map[uint64]int
	created   []*model.RoomType
	initial   *booking.InitialInventory
}

func (f *fakeEngine) Check(_ context.Context, _ uint64, _, _ calendar.Date, _ int) (booking.Verdict, error) {
	return f.verdict, f.err
}

func (f *fakeEngine) Commit(_ context.Context, req booking.Request) (*model.Reservation, error) {
	f.commits = append(f.commits, req)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Reservation{ID: 10, UserID: req.UserID, HotelID: req.HotelID, RoomTypeID: req.RoomTypeID,
		StartDate: req.Start, EndDate: req.End, NumberOfRooms: req.Rooms}, nil
}

func (f *fakeEngine) Modify(_ context.Context, id uint64, ch booking.Change) (*model.Reservation, error) {
	f.changes = append(f.changes, ch)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Reservation{ID: id}, nil
}

func (f *fakeEngine) Cancel(_ context.Context, id uint64) (*model.Reservation, error) {
	f.cancelled = append(f.cancelled, id)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Reservation{ID: id}, nil
}

func (f *fakeEngine) SetAvailability(_ context.Context, roomTypeID uint64, night calendar.Date, count int) (*model.InventoryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec := model.InventoryRecord{ID: 1, RoomTypeID: roomTypeID, Date: night, Availability: count}
	f.sets = append(f.sets, rec)
	return &rec, nil
}

func (f *fakeEngine) AdjustInventory(_ context.Context, id uint64, count int) (*model.InventoryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.adjusted == nil {
		f.adjusted = map[uint64]int{}
	}
	f.adjusted[id] = count
	return &model.InventoryRecord{ID: id, Availability: count}, nil
}

func (f *fakeEngine) CreateRoomType(_ context.Context, rt *model.RoomType, initial *booking.InitialInventory) error {
	if f.err != nil {
		return f.err
	}
	rt.ID = 99
	f.created = append(f.created, rt)
	f.initial = initial
	return nil
}

type fakeReadStore struct {
	roomType  *model.RoomType
	roomTypes []model.RoomType
	records   []model.InventoryRecord
	night     *calendar.Date
	detail    *model.ReservationDetail
	err       error
}

func (f *fakeReadStore) Get(context.Context, uint64) (*model.RoomType, error) {
	if f.roomType == nil {
		return nil, apperr.New(apperr.NotFound, "room type not found")
	}
	return f.roomType, nil
}

func (f *fakeReadStore) ListByHotel(context.Context, uint64) ([]model.RoomType, error) {
	return f.roomTypes, f.err
}

func (f *fakeReadStore) ListByRoomType(_ context.Context, _ uint64, night *calendar.Date) ([]model.InventoryRecord, error) {
	f.night = night
	return f.records, f.err
}

func (f *fakeReadStore) ListDetailed(context.Context) ([]model.ReservationDetail, error) {
	if f.detail == nil {
		return []model.ReservationDetail{}, f.err
	}
	return []model.ReservationDetail{*f.detail}, f.err
}

func (f *fakeReadStore) GetDetailed(context.Context, uint64) (*model.ReservationDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.detail == nil {
		return nil, apperr.New(apperr.NotFound, "reservation not found")
	}
	return f.detail, nil
}

type testServer struct {
	e      *echo.Echo
	engine *fakeEngine
	store  *fakeReadStore
	logs   *observer.ObservedLogs
}

func newTestServer() *testServer {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	s := &testServer{e: echo.New(), engine: &fakeEngine{}, store: &fakeReadStore{}, logs: logs}

	inv := NewInventoryHandler(s.engine, s.store, s.store, log)
	res := NewReservationHandler(s.engine, s.store, log)
	s.e.GET("/health", Health)
	s.e.POST("/hotels/:hotelId/room-types", inv.CreateRoomType)
	s.e.GET("/hotels/:hotelId/room-types", inv.ListRoomTypes)
	s.e.GET("/room-types/:id/inventory", inv.ListInventory)
	s.e.POST("/room-types/:id/inventory", inv.SetAvailability)
	s.e.POST("/room-inventory", inv.CreateInventory)
	s.e.PATCH("/room-inventory/:id", inv.AdjustInventory)
	s.e.GET("/room-types/:id/availability", inv.Availability)
	s.e.GET("/reservations", res.List)
	s.e.GET("/reservations/:id", res.Get)
	s.e.POST("/reservations", res.Create)
	s.e.PUT("/reservations/:id", res.Update)
	s.e.DELETE("/reservations/:id", res.Delete)
	return s
}

func (s *testServer) do(method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

// list issues a GET against a collection endpoint, which answers with a bare
// JSON array.
func (s *testServer) list(t *testing.T, target string) []any {
	t.Helper()
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out []any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	rec, out := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.NotEmpty(t, out["timestamp"])
}

func TestCreateReservation(t *testing.T) {
	s := newTestServer()
	rec, out := s.do(http.MethodPost, "/reservations",
		`{"userId":1,"hotelId":2,"roomTypeId":3,"startDate":"2024-06-01","endDate":"2024-06-02T23:30:00-05:00"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, s.engine.commits, 1)
	req := s.engine.commits[0]
	assert.Equal(t, 1, req.Rooms, "numberOfRooms defaults to 1")
	assert.Equal(t, "2024-06-02", req.End.String(), "timestamps reduce to the written date")
	assert.Equal(t, "2024-06-01", out["startDate"])
	assert.EqualValues(t, 10, out["id"])
}

func TestCreateReservation_Validation(t *testing.T) {
	cases := []struct {
		name, body, details string
	}{
		{"malformed", `{"userId":`, "invalid request body"},
		{"missing user", `{"hotelId":2,"roomTypeId":3,"startDate":"2024-06-01","endDate":"2024-06-02"}`, "userId is required"},
		{"missing end", `{"userId":1,"hotelId":2,"roomTypeId":3,"startDate":"2024-06-01"}`, "endDate is required"},
		{"bad date", `{"userId":1,"hotelId":2,"roomTypeId":3,"startDate":"06/01/2024","endDate":"2024-06-02"}`, "startDate must be a date (YYYY-MM-DD)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer()
			rec, out := s.do(http.MethodPost, "/reservations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_input", out["error"])
			assert.Equal(t, tc.details, out["details"])
			assert.Empty(t, s.engine.commits)
		})
	}
}

func TestCreateReservation_Shortfall(t *testing.T) {
	s := newTestServer()
	s.engine.err = &booking.ShortfallError{RoomTypeID: 3, Night: calendar.MustParse("2024-06-01"), Available: 1, Requested: 2}

	rec, out := s.do(http.MethodPost, "/reservations",
		`{"userId":1,"hotelId":2,"roomTypeId":3,"startDate":"2024-06-01","endDate":"2024-06-02","numberOfRooms":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_inventory", out["error"])
	assert.Equal(t, "Insufficient availability for 2024-06-01. Available: 1, Requested: 2", out["details"])
	assert.Equal(t, "2024-06-01", out["shortfallDate"])
	assert.EqualValues(t, 1, out["available"])
	assert.EqualValues(t, 2, out["requested"])
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{apperr.New(apperr.NotFound, "user not found"), http.StatusNotFound, "not_found"},
		{apperr.New(apperr.ConcurrencyConflict, "transaction conflict"), http.StatusConflict, "concurrency_conflict"},
		{apperr.Wrap(apperr.StorageFailure, "database error", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "storage_failure"},
		{errors.New("unclassified"), http.StatusServiceUnavailable, "storage_failure"},
	}
	for _, tc := range cases {
		s := newTestServer()
		s.engine.err = tc.err
		rec, out := s.do(http.MethodDelete, "/reservations/5", "")
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.kind, out["error"])
		if tc.status == http.StatusServiceUnavailable {
			assert.Equal(t, "internal error", out["details"])
			assert.NotContains(t, rec.Body.String(), "refused")
			assert.Equal(t, 1, s.logs.FilterMessage("request failed").Len())
		}
	}
}

func TestUpdateReservation_PartialChange(t *testing.T) {
	s := newTestServer()
	rec, _ := s.do(http.MethodPut, "/reservations/7", `{"endDate":"2024-06-05","numberOfRooms":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.engine.changes, 1)
	ch := s.engine.changes[0]
	assert.Nil(t, ch.Start)
	assert.Nil(t, ch.UserID)
	require.NotNil(t, ch.End)
	assert.Equal(t, "2024-06-05", ch.End.String())
	require.NotNil(t, ch.Rooms)
	assert.Equal(t, 3, *ch.Rooms)
}

func TestDeleteReservation(t *testing.T) {
	s := newTestServer()
	rec, _ := s.do(http.MethodDelete, "/reservations/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uint64{7}, s.engine.cancelled)

	rec, out := s.do(http.MethodDelete, "/reservations/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", out["details"])
}

func TestGetReservation(t *testing.T) {
	s := newTestServer()
	rec, out := s.do(http.MethodGet, "/reservations/3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "reservation not found", out["details"])

	s.store.detail = &model.ReservationDetail{
		Reservation: model.Reservation{ID: 3, StartDate: calendar.MustParse("2024-06-01"), EndDate: calendar.MustParse("2024-06-02")},
		User:        model.User{ID: 1, Email: "a@example.com"},
		Hotel:       model.Hotel{ID: 2, Name: "Harbour"},
		RoomType:    model.RoomType{ID: 3, Name: "Double"},
	}
	rec, out = s.do(http.MethodGet, "/reservations/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Harbour", out["hotel"].(map[string]any)["name"])
	assert.Equal(t, "2024-06-01", out["startDate"])

	items := s.list(t, "/reservations")
	require.Len(t, items, 1)
	assert.Equal(t, "Harbour", items[0].(map[string]any)["hotel"].(map[string]any)["name"])
}

func TestAvailability(t *testing.T) {
	s := newTestServer()
	s.engine.verdict = booking.Verdict{Available: false, ShortfallDate: calendar.MustParse("2024-06-05"), Nights: 3}

	rec, out := s.do(http.MethodGet, "/room-types/4/availability?start=2024-06-04&end=2024-06-06&rooms=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["available"])
	assert.Equal(t, "2024-06-05", out["shortfallDate"])
	assert.EqualValues(t, 0, out["shortfallAvailable"])
	assert.Equal(t, "Insufficient availability for 2024-06-05. Available: 0, Requested: 2", out["details"])

	s.engine.verdict = booking.Verdict{Available: true, Nights: 3}
	_, out = s.do(http.MethodGet, "/room-types/4/availability?start=2024-06-04&end=2024-06-06", "")
	assert.Equal(t, true, out["available"])
	assert.EqualValues(t, 1, out["numberOfRooms"])
	assert.NotContains(t, out, "shortfallDate")

	rec, out = s.do(http.MethodGet, "/room-types/4/availability?start=2024-06-04", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end is required", out["details"])
}

func TestCreateRoomType(t *testing.T) {
	s := newTestServer()
	rec, out := s.do(http.MethodPost, "/hotels/2/room-types", `{"name":" Suite ","date":"2024-06-01","availability":4}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 99, out["id"])
	require.Len(t, s.engine.created, 1)
	assert.Equal(t, "Suite", s.engine.created[0].Name)
	assert.Equal(t, uint64(2), s.engine.created[0].HotelID)
	require.NotNil(t, s.engine.initial)
	assert.Equal(t, 4, s.engine.initial.Availability)

	rec, out = s.do(http.MethodPost, "/hotels/2/room-types", `{"name":"Suite","availability":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date and availability must be given together", out["details"])

	rec, _ = s.do(http.MethodPost, "/hotels/2/room-types", `{"name":"Twin"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, s.engine.initial)
}

func TestListRoomTypes(t *testing.T) {
	s := newTestServer()
	s.store.roomTypes = []model.RoomType{{ID: 4, HotelID: 2, Name: "Double"}}

	items := s.list(t, "/hotels/2/room-types")
	require.Len(t, items, 1)
	assert.Equal(t, "Double", items[0].(map[string]any)["name"])
}

func TestInventoryEndpoints(t *testing.T) {
	s := newTestServer()

	rec, _ := s.do(http.MethodGet, "/room-types/4/inventory", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.store.roomType = &model.RoomType{ID: 4}
	s.store.records = []model.InventoryRecord{{ID: 1, RoomTypeID: 4, Date: calendar.MustParse("2024-06-01"), Availability: 2}}
	items := s.list(t, "/room-types/4/inventory?date=2024-06-01")
	require.Len(t, items, 1)
	assert.Equal(t, "2024-06-01", items[0].(map[string]any)["date"])
	require.NotNil(t, s.store.night)
	assert.Equal(t, "2024-06-01", s.store.night.String())

	rec, out := s.do(http.MethodPost, "/room-types/4/inventory", `{"date":"2024-06-01","availability":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 5, out["availability"])

	rec, _ = s.do(http.MethodPost, "/room-inventory", `{"roomTypeId":4,"date":"2024-06-02","availability":0}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, s.engine.sets, 2)
	assert.Equal(t, 0, s.engine.sets[1].Availability)

	rec, out = s.do(http.MethodPost, "/room-inventory", `{"date":"2024-06-02","availability":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "roomTypeId is required", out["details"])

	rec, _ = s.do(http.MethodPatch, "/room-inventory/12", `{"availability":6}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, s.engine.adjusted[12])

	rec, out = s.do(http.MethodPatch, "/room-inventory/12", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "availability is required", out["details"])
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

// Config tunes the engine.  Zero values fall back to the defaults below.
type Config struct {
	CommitTimeout time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	MaxStayNights int
}

const (
	defaultCommitTimeout = 5 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryBackoff  = 50 * time.Millisecond
	defaultMaxStayNights = 365
)

func (c Config) withDefaults() Config {
	if c.CommitTimeout <= 0 {
		c.CommitTimeout = defaultCommitTimeout
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	} else if c.RetryBackoff == 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.MaxStayNights < 1 {
		c.MaxStayNights = defaultMaxStayNights
	}
	return c
}

// Request describes a booking of Rooms rooms of one room type for every night
// from Start to End inclusive.
type Request struct {
	UserID     uint64
	HotelID    uint64
	RoomTypeID uint64
	Start      calendar.Date
	End        calendar.Date
	Rooms      int
}

// Change lists the fields of an existing reservation to replace.  Nil fields
// keep their current value.
type Change struct {
	UserID     *uint64
	HotelID    *uint64
	RoomTypeID *uint64
	Start      *calendar.Date
	End        *calendar.Date
	Rooms      *int
}

// InitialInventory seeds the first inventory record of a new room type.
type InitialInventory struct {
	Date         calendar.Date
	Availability int
}

// Engine runs every inventory-mutating operation as one transaction against
// the store, retrying the whole unit when it loses a lock race.
type Engine struct {
	store  Store
	cfg    Config
	events EventPublisher
	log    *zap.Logger
}

// NewEngine wires an engine.  A nil publisher disables events and a nil
// logger disables logging.
func NewEngine(store Store, cfg Config, events EventPublisher, log *zap.Logger) *Engine {
	if store == nil {
		panic("nil store passed to NewEngine")
	}
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, cfg: cfg.withDefaults(), events: events, log: log.Named("booking")}
}

// Check reports whether the room type can hold rooms rooms on every night of
// [start, end].  It takes no locks, so the answer may be stale by the time a
// commit runs; Commit repeats the check under lock.
func (e *Engine) Check(ctx context.Context, roomTypeID uint64, start, end calendar.Date, rooms int) (Verdict, error) {
	if err := e.validateStay(start, end, rooms); err != nil {
		return Verdict{}, err
	}
	if _, err := e.store.RoomTypes().Get(ctx, roomTypeID); err != nil {
		return Verdict{}, e.classify(ctx, "load room type", err)
	}
	v, err := Check(ctx, NewLedger(e.store.Inventory()), roomTypeID, start, end, rooms)
	if err != nil {
		return Verdict{}, e.classify(ctx, "check availability", err)
	}
	return v, nil
}

// Commit checks the full range, decrements every night and records the
// reservation.  Any failure leaves the ledger untouched.
func (e *Engine) Commit(ctx context.Context, req Request) (*model.Reservation, error) {
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}
	var res *model.Reservation
	err := e.run(ctx, "commit", func(ctx context.Context, tx Tx) error {
		if err := checkReferences(ctx, tx, req.UserID, req.HotelID, req.RoomTypeID); err != nil {
			return err
		}
		if err := reserve(ctx, tx, req.RoomTypeID, req.Start, req.End, req.Rooms); err != nil {
			return err
		}
		r := &model.Reservation{
			UserID:        req.UserID,
			HotelID:       req.HotelID,
			RoomTypeID:    req.RoomTypeID,
			StartDate:     req.Start,
			EndDate:       req.End,
			NumberOfRooms: req.Rooms,
		}
		if err := tx.Reservations().Create(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		e.logFailure("commit", err, zap.Uint64("room_type_id", req.RoomTypeID),
			zap.Stringer("start", req.Start), zap.Stringer("end", req.End), zap.Int("rooms", req.Rooms))
		return nil, err
	}
	e.log.Info("reservation committed",
		zap.Uint64("reservation_id", res.ID),
		zap.Uint64("room_type_id", res.RoomTypeID),
		zap.Stringer("start", res.StartDate),
		zap.Stringer("end", res.EndDate),
		zap.Int("rooms", res.NumberOfRooms))
	e.publish(queue.ReservationCreated, res)
	return res, nil
}

// Modify applies change to reservation id.  The old nights are credited and
// the new range is checked and decremented in the same transaction, so the
// old rooms stay held whenever the new range cannot be booked.
func (e *Engine) Modify(ctx context.Context, id uint64, change Change) (*model.Reservation, error) {
	var res *model.Reservation
	err := e.run(ctx, "modify", func(ctx context.Context, tx Tx) error {
		cur, err := tx.Reservations().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next := change.apply(*cur)
		if err := e.validateRequest(requestOf(&next)); err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, next.UserID, next.HotelID, next.RoomTypeID); err != nil {
			return err
		}
		if err := release(ctx, tx, cur); err != nil {
			return err
		}
		if err := reserve(ctx, tx, next.RoomTypeID, next.StartDate, next.EndDate, next.NumberOfRooms); err != nil {
			return err
		}
		if err := tx.Reservations().Update(ctx, &next); err != nil {
			return err
		}
		res = &next
		return nil
	})
	if err != nil {
		e.logFailure("modify", err, zap.Uint64("reservation_id", id))
		return nil, err
	}
	e.log.Info("reservation modified",
		zap.Uint64("reservation_id", res.ID),
		zap.Stringer("start", res.StartDate),
		zap.Stringer("end", res.EndDate),
		zap.Int("rooms", res.NumberOfRooms))
	e.publish(queue.ReservationUpdated, res)
	return res, nil
}

// Cancel deletes reservation id and returns its rooms to every night it held.
func (e *Engine) Cancel(ctx context.Context, id uint64) (*model.Reservation, error) {
	var res *model.Reservation
	err := e.run(ctx, "cancel", func(ctx context.Context, tx Tx) error {
		cur, err := tx.Reservations().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := release(ctx, tx, cur); err != nil {
			return err
		}
		if err := tx.Reservations().Delete(ctx, id); err != nil {
			return err
		}
		res = cur
		return nil
	})
	if err != nil {
		e.logFailure("cancel", err, zap.Uint64("reservation_id", id))
		return nil, err
	}
	e.log.Info("reservation cancelled", zap.Uint64("reservation_id", res.ID))
	e.publish(queue.ReservationCancelled, res)
	return res, nil
}

// SetAvailability upserts the count of one night for an existing room type.
func (e *Engine) SetAvailability(ctx context.Context, roomTypeID uint64, night calendar.Date, count int) (*model.InventoryRecord, error) {
	var rec *model.InventoryRecord
	err := e.run(ctx, "set availability", func(ctx context.Context, tx Tx) error {
		if _, err := tx.RoomTypes().Get(ctx, roomTypeID); err != nil {
			return err
		}
		r, err := NewLedger(tx.Inventory()).SetAvailability(ctx, roomTypeID, night, count)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		e.logFailure("set availability", err, zap.Uint64("room_type_id", roomTypeID), zap.Stringer("date", night))
		return nil, err
	}
	e.log.Info("availability set",
		zap.Uint64("room_type_id", roomTypeID),
		zap.Stringer("date", night),
		zap.Int("availability", count))
	return rec, nil
}

// AdjustInventory overwrites the count of an inventory record addressed by id.
func (e *Engine) AdjustInventory(ctx context.Context, id uint64, count int) (*model.InventoryRecord, error) {
	var rec *model.InventoryRecord
	err := e.run(ctx, "adjust inventory", func(ctx context.Context, tx Tx) error {
		cur, err := tx.Inventory().GetByID(ctx, id)
		if err != nil {
			return err
		}
		r, err := NewLedger(tx.Inventory()).SetAvailability(ctx, cur.RoomTypeID, cur.Date, count)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		e.logFailure("adjust inventory", err, zap.Uint64("inventory_id", id))
		return nil, err
	}
	e.log.Info("inventory adjusted", zap.Uint64("inventory_id", id), zap.Int("availability", count))
	return rec, nil
}

// CreateRoomType stores rt and, when initial is set, its first inventory
// record, both in one transaction.
func (e *Engine) CreateRoomType(ctx context.Context, rt *model.RoomType, initial *InitialInventory) error {
	if rt == nil || rt.Name == "" {
		return apperr.Invalid("name is required")
	}
	if initial != nil {
		if initial.Date.IsZero() {
			return apperr.Invalid("date is required with availability")
		}
		if initial.Availability < 0 {
			return apperr.Invalid("availability must not be negative")
		}
		if int64(initial.Availability) > MaxAvailability {
			return errAvailabilityTooLarge
		}
	}
	err := e.run(ctx, "create room type", func(ctx context.Context, tx Tx) error {
		ok, err := tx.Hotels().Exists(ctx, rt.HotelID)
		if err != nil {
			return err
		}
		if !ok {
			return errHotelNotFound
		}
		if err := tx.RoomTypes().Create(ctx, rt); err != nil {
			return err
		}
		if initial == nil {
			return nil
		}
		_, err = NewLedger(tx.Inventory()).SetAvailability(ctx, rt.ID, initial.Date, initial.Availability)
		return err
	})
	if err != nil {
		e.logFailure("create room type", err, zap.Uint64("hotel_id", rt.HotelID))
		return err
	}
	e.log.Info("room type created", zap.Uint64("room_type_id", rt.ID), zap.Uint64("hotel_id", rt.HotelID))
	return nil
}

// run executes fn in a transaction under the commit timeout.  Attempts that
// fail with a concurrency conflict are restarted from scratch after a linear
// backoff, up to MaxAttempts.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CommitTimeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		err := e.store.InTx(ctx, func(tx Tx) error { return fn(ctx, tx) })
		if err == nil {
			return nil
		}
		err = e.classify(ctx, op, err)
		if !errors.Is(err, apperr.ErrConcurrencyConflict) || attempt >= e.cfg.MaxAttempts {
			return err
		}
		wait := e.cfg.RetryBackoff * time.Duration(attempt)
		e.log.Warn("transaction conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return e.classify(ctx, op, ctx.Err())
		case <-t.C:
		}
	}
}

// classify gives every error leaving the engine a kind.  Context expiry is a
// storage failure: the transaction was rolled back before it could finish.
func (e *Engine) classify(ctx context.Context, op string, err error) error {
	if apperr.Classified(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.StorageFailure, op+" timed out", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperr.Wrap(apperr.StorageFailure, op+" timed out", fmt.Errorf("%w: %v", ctxErr, err))
	}
	return apperr.Wrap(apperr.StorageFailure, op, err)
}

func (e *Engine) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	var sf *ShortfallError
	switch {
	case errors.As(err, &sf):
		e.log.Info("booking rejected", append(fields,
			zap.Stringer("shortfall_date", sf.Night),
			zap.Int("available", sf.Available),
			zap.Int("requested", sf.Requested))...)
	case apperr.KindOf(err) == apperr.StorageFailure:
		e.log.Error("booking operation failed", fields...)
	case apperr.KindOf(err) == apperr.ConcurrencyConflict:
		e.log.Warn("booking operation conflicted", fields...)
	default:
		e.log.Debug("booking operation refused", fields...)
	}
}

func (e *Engine) publish(typ string, r *model.Reservation) {
	if err := e.events.Publish(reservationEvent(typ, r)); err != nil {
		e.log.Warn("reservation event dropped",
			zap.String("type", typ),
			zap.Uint64("reservation_id", r.ID),
			zap.Error(err))
	}
}

func (e *Engine) validateStay(start, end calendar.Date, rooms int) error {
	if err := validateRange(start, end); err != nil {
		return err
	}
	if rooms < 1 {
		return apperr.Invalid("numberOfRooms must be at least 1")
	}
	if int64(rooms) > MaxAvailability {
		return apperr.Invalid(fmt.Sprintf("numberOfRooms must not exceed %d", uint32(MaxAvailability)))
	}
	if n := calendar.Span(start, end); n > e.cfg.MaxStayNights {
		return apperr.Invalid(fmt.Sprintf("stay of %d nights exceeds the maximum of %d", n, e.cfg.MaxStayNights))
	}
	return nil
}

func (e *Engine) validateRequest(req Request) error {
	if req.UserID == 0 || req.HotelID == 0 || req.RoomTypeID == 0 {
		return apperr.Invalid("userId, hotelId and roomTypeId are required")
	}
	return e.validateStay(req.Start, req.End, req.Rooms)
}

// checkReferences resolves the ids of a booking and verifies that the room
// type belongs to the hotel.
func checkReferences(ctx context.Context, tx Tx, userID, hotelID, roomTypeID uint64) error {
	ok, err := tx.Users().Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errUserNotFound
	}
	ok, err = tx.Hotels().Exists(ctx, hotelID)
	if err != nil {
		return err
	}
	if !ok {
		return errHotelNotFound
	}
	rt, err := tx.RoomTypes().Get(ctx, roomTypeID)
	if errors.Is(err, apperr.ErrNotFound) {
		return errRoomTypeNotFound
	}
	if err != nil {
		return err
	}
	if rt.HotelID != hotelID {
		return errRoomTypeMismatch
	}
	return nil
}

// reserve locks the range, checks it and decrements every night.
func reserve(ctx context.Context, tx Tx, roomTypeID uint64, start, end calendar.Date, rooms int) error {
	ledger := NewLedger(tx.Inventory())
	v, err := Check(ctx, ledger, roomTypeID, start, end, rooms)
	if err != nil {
		return err
	}
	if !v.Available {
		return v.Shortfall(roomTypeID, rooms)
	}
	nights, err := calendar.Nights(start, end)
	if err != nil {
		return apperr.Invalid(err.Error())
	}
	for _, n := range nights {
		if err := ledger.Decrement(ctx, roomTypeID, n, rooms); err != nil {
			return err
		}
	}
	return nil
}

// release credits every night held by r.
func release(ctx context.Context, tx Tx, r *model.Reservation) error {
	nights, err := r.Nights()
	if err != nil {
		return apperr.Invalid(err.Error())
	}
	ledger := NewLedger(tx.Inventory())
	for _, n := range nights {
		if err := ledger.Credit(ctx, r.RoomTypeID, n, r.NumberOfRooms); err != nil {
			return err
		}
	}
	return nil
}

func (c Change) apply(r model.Reservation) model.Reservation {
	if c.UserID != nil {
		r.UserID = *c.UserID
	}
	if c.HotelID != nil {
		r.HotelID = *c.HotelID
	}
	if c.RoomTypeID != nil {
		r.RoomTypeID = *c.RoomTypeID
	}
	if c.Start != nil {
		r.StartDate = *c.Start
	}
	if c.End != nil {
		r.EndDate = *c.End
	}
	if c.Rooms != nil {
		r.NumberOfRooms = *c.Rooms
	}
	return r
}

func requestOf(r *model.Reservation) Request {
	return Request{
		UserID:     r.UserID,
		HotelID:    r.HotelID,
		RoomTypeID: r.RoomTypeID,
		Start:      r.StartDate,
		End:        r.EndDate,
		Rooms:      r.NumberOfRooms,
	}
}

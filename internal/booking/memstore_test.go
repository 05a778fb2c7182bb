package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hotel-booking/internal/apperr"
	"github.com/iliyamo/hotel-booking/internal/calendar"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

type invKey struct {
	roomTypeID uint64
	night      calendar.Date
}

// memState is never mutated once published by memStore; transactions work
// on a clone that replaces it on commit.
type memState struct {
	inv          map[invKey]model.InventoryRecord
	reservations map[uint64]model.Reservation
	roomTypes    map[uint64]model.RoomType
	users        map[uint64]bool
	hotels       map[uint64]bool
	nextID       uint64
}

func newMemState() *memState {
	return &memState{
		inv:          map[invKey]model.InventoryRecord{},
		reservations: map[uint64]model.Reservation{},
		roomTypes:    map[uint64]model.RoomType{},
		users:        map[uint64]bool{},
		hotels:       map[uint64]bool{},
		nextID:       100,
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.inv {
		c.inv[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.roomTypes {
		c.roomTypes[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.hotels {
		c.hotels[k] = v
	}
	c.nextID = s.nextID
	return c
}

func (s *memState) id() uint64 {
	s.nextID++
	return s.nextID
}

// memStore serialises transactions the way row locks serialise overlapping
// commits in MySQL.
type memStore struct {
	txMu    sync.Mutex
	stateMu sync.Mutex
	state   *memState

	// failure injection
	conflicts    int
	createErr    error
	decrementErr func(night calendar.Date) error
	txCalls      int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (m *memStore) snapshot() *memState {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.txCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return apperr.Wrap(apperr.ConcurrencyConflict, "deadlock found", nil)
	}
	work := m.snapshot().clone()
	if err := fn(&memTx{store: m, st: work}); err != nil {
		return err
	}
	m.stateMu.Lock()
	m.state = work
	m.stateMu.Unlock()
	return nil
}

func (m *memStore) Inventory() InventoryStore { return &memInventory{store: m} }
func (m *memStore) RoomTypes() RoomTypeStore  { return &memRoomTypes{store: m} }

// seed helpers; they mutate the published state directly and must only be
// called before the store is shared.
func (m *memStore) addUser(id uint64)  { m.state.users[id] = true }
func (m *memStore) addHotel(id uint64) { m.state.hotels[id] = true }
func (m *memStore) addRoomType(id, hotelID uint64) {
	m.state.roomTypes[id] = model.RoomType{ID: id, HotelID: hotelID, Name: "Double"}
}
func (m *memStore) setInv(roomTypeID uint64, night string, n int) {
	d := calendar.MustParse(night)
	m.state.inv[invKey{roomTypeID, d}] = model.InventoryRecord{ID: m.state.id(), RoomTypeID: roomTypeID, Date: d, Availability: n}
}

// availability returns the committed count and whether the record exists.
func (m *memStore) availability(roomTypeID uint64, night string) (int, bool) {
	r, ok := m.snapshot().inv[invKey{roomTypeID, calendar.MustParse(night)}]
	return r.Availability, ok
}

func (m *memStore) reservationCount() int { return len(m.snapshot().reservations) }

type memTx struct {
	store *memStore
	st    *memState
}

func (t *memTx) Inventory() InventoryStore      { return &memInventory{store: t.store, st: t.st} }
func (t *memTx) Reservations() ReservationStore { return &memReservations{store: t.store, st: t.st} }
func (t *memTx) RoomTypes() RoomTypeStore       { return &memRoomTypes{store: t.store, st: t.st} }
func (t *memTx) Users() Finder                  { return memFinder(t.st.users) }
func (t *memTx) Hotels() Finder                 { return memFinder(t.st.hotels) }

type memFinder map[uint64]bool

func (f memFinder) Exists(_ context.Context, id uint64) (bool, error) { return f[id], nil }

type memInventory struct {
	store *memStore
	st    *memState // nil outside a transaction
}

func (i *memInventory) state() *memState {
	if i.st != nil {
		return i.st
	}
	return i.store.snapshot()
}

func (i *memInventory) Get(_ context.Context, roomTypeID uint64, night calendar.Date) (*model.InventoryRecord, error) {
	r, ok := i.state().inv[invKey{roomTypeID, night}]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "inventory record not found")
	}
	return &r, nil
}

func (i *memInventory) GetByID(_ context.Context, id uint64) (*model.InventoryRecord, error) {
	for _, r := range i.state().inv {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "inventory record not found")
}

func (i *memInventory) Range(_ context.Context, roomTypeID uint64, start, end calendar.Date) ([]model.InventoryRecord, error) {
	var out []model.InventoryRecord
	for k, r := range i.state().inv {
		if k.roomTypeID == roomTypeID && !k.night.Before(start) && !k.night.After(end) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out, nil
}

func (i *memInventory) Upsert(_ context.Context, roomTypeID uint64, night calendar.Date, n int) (*model.InventoryRecord, error) {
	st := i.writable()
	k := invKey{roomTypeID, night}
	r, ok := st.inv[k]
	if !ok {
		r = model.InventoryRecord{ID: st.id(), RoomTypeID: roomTypeID, Date: night}
	}
	r.Availability = n
	r.UpdatedAt = time.Now()
	st.inv[k] = r
	return &r, nil
}

func (i *memInventory) Decrement(_ context.Context, roomTypeID uint64, night calendar.Date, amount int) (bool, error) {
	if f := i.store.decrementErr; f != nil {
		if err := f(night); err != nil {
			return false, err
		}
	}
	st := i.writable()
	k := invKey{roomTypeID, night}
	r, ok := st.inv[k]
	if !ok || r.Availability < amount {
		return false, nil
	}
	r.Availability -= amount
	st.inv[k] = r
	return true, nil
}

func (i *memInventory) Increment(_ context.Context, roomTypeID uint64, night calendar.Date, amount int) (bool, error) {
	st := i.writable()
	k := invKey{roomTypeID, night}
	r, ok := st.inv[k]
	if !ok {
		return false, nil
	}
	r.Availability += amount
	st.inv[k] = r
	return true, nil
}

func (i *memInventory) writable() *memState {
	if i.st == nil {
		panic("inventory write outside a transaction")
	}
	return i.st
}

type memReservations struct {
	store *memStore
	st    *memState
}

func (r *memReservations) Create(_ context.Context, res *model.Reservation) error {
	if r.store.createErr != nil {
		return r.store.createErr
	}
	res.ID = r.st.id()
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	r.st.reservations[res.ID] = *res
	return nil
}

func (r *memReservations) GetForUpdate(_ context.Context, id uint64) (*model.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "reservation not found")
	}
	return &res, nil
}

func (r *memReservations) Update(_ context.Context, res *model.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; !ok {
		return apperr.New(apperr.NotFound, "reservation not found")
	}
	r.st.reservations[res.ID] = *res
	return nil
}

func (r *memReservations) Delete(_ context.Context, id uint64) error {
	if _, ok := r.st.reservations[id]; !ok {
		return apperr.New(apperr.NotFound, "reservation not found")
	}
	delete(r.st.reservations, id)
	return nil
}

type memRoomTypes struct {
	store *memStore
	st    *memState
}

func (r *memRoomTypes) Get(_ context.Context, id uint64) (*model.RoomType, error) {
	st := r.st
	if st == nil {
		st = r.store.snapshot()
	}
	rt, ok := st.roomTypes[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "room type not found")
	}
	return &rt, nil
}

func (r *memRoomTypes) Create(_ context.Context, rt *model.RoomType) error {
	rt.ID = r.st.id()
	r.st.roomTypes[rt.ID] = *rt
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

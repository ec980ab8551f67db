package reservation

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// MemoryStore is an in-process Store and Catalog.  Each hotel has its own
// mutex, held for the whole of a WithHotelLock callback; writes made in the
// callback are staged and applied only when it returns nil.
type MemoryStore struct {
	mu       sync.Mutex
	hotels   map[uint64]*model.Hotel
	bookings map[string]*model.Booking
	locks    map[uint64]*sync.Mutex
	nextID   uint64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hotels:   make(map[uint64]*model.Hotel),
		bookings: make(map[string]*model.Booking),
		locks:    make(map[uint64]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddHotel stores h under a fresh id and returns the stored copy.
func (s *MemoryStore) AddHotel(h model.Hotel) model.Hotel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h.ID = s.nextID
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	h.UpdatedAt = h.CreatedAt
	s.hotels[h.ID] = &h
	s.locks[h.ID] = &sync.Mutex{}
	return h
}

// GetHotel returns a copy of the hotel with AvailableRooms derived for
// tonight.
func (s *MemoryStore) GetHotel(_ context.Context, id uint64) (*model.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hotels[id]
	if !ok {
		return nil, ErrHotelNotFound
	}
	out := *h
	today := model.Day(s.now())
	tonight := model.Stay{CheckIn: today, CheckOut: today.AddDate(0, 0, 1)}
	out.AvailableRooms = AvailableRooms(h.TotalRooms, PeakOccupancy(tonight, s.holdsLocked(id, tonight, nil)))
	return &out, nil
}

func (s *MemoryStore) ActiveHolds(_ context.Context, hotelID uint64, stay model.Stay) ([]Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdsLocked(hotelID, stay, nil), nil
}

// holdsLocked lists active overlapping holds; staged entries shadow the
// committed ones.  s.mu must be held.
func (s *MemoryStore) holdsLocked(hotelID uint64, stay model.Stay, staged map[string]*model.Booking) []Hold {
	var holds []Hold
	visit := func(b *model.Booking) {
		if b.HotelID != hotelID || !b.Status.IsActive() || !b.Stay().Overlaps(stay) {
			return
		}
		holds = append(holds, Hold{BookingID: b.ID, CheckIn: b.CheckIn, CheckOut: b.CheckOut, Rooms: b.Rooms})
	}
	for id, b := range s.bookings {
		if _, ok := staged[id]; ok {
			continue
		}
		visit(b)
	}
	for _, b := range staged {
		visit(b)
	}
	return holds
}

func (s *MemoryStore) WithHotelLock(ctx context.Context, hotelID uint64, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	lock, ok := s.locks[hotelID]
	s.mu.Unlock()
	if !ok {
		return ErrHotelNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: s, hotelID: hotelID, staged: make(map[string]*model.Booking)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.staged {
		s.bookings[id] = b
	}
	return nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID uint64, p Page) ([]model.Booking, int, error) {
	return s.list(p, func(b *model.Booking) bool { return b.UserID == userID })
}

func (s *MemoryStore) ListAll(_ context.Context, p Page) ([]model.Booking, int, error) {
	return s.list(p, func(*model.Booking) bool { return true })
}

func (s *MemoryStore) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.Status == model.BookingPending && b.CreatedAt.Before(cutoff) {
			out = append(out, *b)
		}
	}
	slices.SortFunc(out, func(a, b model.Booking) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) list(p Page, keep func(*model.Booking) bool) ([]model.Booking, int, error) {
	column, desc, err := p.OrderBy()
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	var all []model.Booking
	for _, b := range s.bookings {
		if keep(b) {
			all = append(all, *b)
		}
	}
	s.mu.Unlock()

	slices.SortStableFunc(all, func(a, b model.Booking) int {
		c := compareColumn(column, a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
	total := len(all)
	start := min(p.Offset(), total)
	end := min(start+p.Limit, total)
	return all[start:end], total, nil
}

func compareColumn(column string, a, b model.Booking) int {
	switch column {
	case "check_in":
		return a.CheckIn.Compare(b.CheckIn)
	case "check_out":
		return a.CheckOut.Compare(b.CheckOut)
	case "total_price_cents":
		return cmp.Compare(a.TotalPriceCents, b.TotalPriceCents)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

type memTx struct {
	store   *MemoryStore
	hotelID uint64
	staged  map[string]*model.Booking
}

func (t *memTx) ActiveHolds(_ context.Context, hotelID uint64, stay model.Stay) ([]Hold, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.holdsLocked(hotelID, stay, t.staged), nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	cp := *b
	t.staged[b.ID] = &cp
	return nil
}

func (t *memTx) LockBooking(_ context.Context, id string) (*model.Booking, error) {
	if b, ok := t.staged[id]; ok {
		out := *b
		return &out, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	b, ok := t.store.bookings[id]
	if !ok || b.HotelID != t.hotelID {
		return nil, ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (t *memTx) UpdateStatus(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, at time.Time) (bool, error) {
	cur, err := t.LockBooking(ctx, id)
	if err != nil {
		return false, err
	}
	if !slices.Contains(from, cur.Status) {
		return false, nil
	}
	cur.Status = to
	cur.UpdatedAt = at
	t.staged[id] = cur
	return true, nil
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Catalog = (*MemoryStore)(nil)
)

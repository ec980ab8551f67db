package reservation

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Catalog resolves hotels.  GetHotel returns ErrHotelNotFound when the id
// is unknown.
type Catalog interface {
	GetHotel(ctx context.Context, id uint64) (*model.Hotel, error)
}

// HoldReader lists the active bookings of a hotel that overlap a stay.
type HoldReader interface {
	ActiveHolds(ctx context.Context, hotelID uint64, stay model.Stay) ([]Hold, error)
}

// Tx is the unit of work handed out by Store.WithHotelLock.  Every method
// runs while the hotel's exclusive lock is held and its effects commit
// together when the callback returns nil.
type Tx interface {
	HoldReader

	InsertBooking(ctx context.Context, b *model.Booking) error

	// LockBooking reads a booking of the locked hotel for update.
	LockBooking(ctx context.Context, id string) (*model.Booking, error)

	// UpdateStatus moves a booking to status `to` only if its current status
	// is one of `from`.  It reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, at time.Time) (bool, error)
}

// Store persists bookings.
type Store interface {
	HoldReader

	// WithHotelLock runs fn while holding the hotel's exclusive lock.  The
	// lock is released and the work committed (or rolled back when fn
	// fails) before it returns.
	WithHotelLock(ctx context.Context, hotelID uint64, fn func(ctx context.Context, tx Tx) error) error

	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64, p Page) ([]model.Booking, int, error)
	ListAll(ctx context.Context, p Page) ([]model.Booking, int, error)

	// ListPendingBefore returns pending bookings created before cutoff,
	// oldest first, at most limit rows.
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error)
}

// Notifier receives lifecycle messages.  Implementations must not block:
// the coordinator calls them after the booking outcome is final.
type Notifier interface {
	BookingReceived(ctx context.Context, b model.Booking, h model.Hotel)
	BookingConfirmed(ctx context.Context, b model.Booking, h model.Hotel)
	BookingCancelled(ctx context.Context, b model.Booking, h model.Hotel)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint64
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

func (a Actor) canAccess(b *model.Booking) bool {
	return a.IsAdmin() || a.UserID == b.UserID
}

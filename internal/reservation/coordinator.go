package reservation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// expireBatch bounds how many pending bookings one ExpirePending call
// processes.
const expireBatch = 100

type Options struct {
	// InitialStatus is the status of a new booking: confirmed when payment
	// is treated as settled at booking time, pending when a separate
	// confirmation step follows.
	InitialStatus model.BookingStatus
	// MaxRetries bounds the retries of a unit of work that failed with
	// ErrTransient.
	MaxRetries int
	// RetryBaseDelay is the first backoff interval between retries.
	RetryBaseDelay time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// CreateRequest is the input of CreateBooking.  Rooms defaults to 1.
type CreateRequest struct {
	HotelID       uint64
	UserID        uint64
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	Rooms         int
	PaymentMethod string
}

func (r CreateRequest) validate() (model.Stay, int, error) {
	stay := model.NewStay(r.CheckIn, r.CheckOut)
	rooms := r.Rooms
	if rooms == 0 {
		rooms = 1
	}
	switch {
	case r.HotelID == 0:
		return stay, 0, fmt.Errorf("%w: hotel is required", ErrInvalidRequest)
	case !stay.Valid():
		return stay, 0, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidRequest)
	case stay.Nights() > model.MaxNights:
		return stay, 0, fmt.Errorf("%w: a stay may not exceed %d nights", ErrInvalidRequest, model.MaxNights)
	case r.Guests < 1:
		return stay, 0, fmt.Errorf("%w: at least 1 guest is required", ErrInvalidRequest)
	case rooms < 1:
		return stay, 0, fmt.Errorf("%w: at least 1 room is required", ErrInvalidRequest)
	case !slices.Contains(model.PaymentMethods, r.PaymentMethod):
		return stay, 0, fmt.Errorf("%w: invalid payment method %q", ErrInvalidRequest, r.PaymentMethod)
	}
	return stay, rooms, nil
}

// Price is nightly × rooms × nights.
func Price(nightlyCents int64, rooms, nights int) int64 {
	return nightlyCents * int64(rooms) * int64(nights)
}

// Coordinator is the single entry point for booking operations.  Every
// capacity-affecting step runs inside Store.WithHotelLock so that two
// writers for the same hotel never interleave between the capacity check
// and the write.
type Coordinator struct {
	store    Store
	catalog  Catalog
	ledger   *Ledger
	notifier Notifier
	log      *zap.Logger
	opts     Options
}

func NewCoordinator(store Store, catalog Catalog, notifier Notifier, log *zap.Logger, opts Options) *Coordinator {
	if opts.InitialStatus == "" {
		opts.InitialStatus = model.BookingConfirmed
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 20 * time.Millisecond
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		store:    store,
		catalog:  catalog,
		ledger:   NewLedger(catalog, store),
		notifier: notifier,
		log:      log,
		opts:     opts,
	}
}

// CheckAvailability delegates to the ledger.
func (c *Coordinator) CheckAvailability(ctx context.Context, hotelID uint64, checkIn, checkOut time.Time, rooms int) (bool, error) {
	return c.ledger.CheckAvailability(ctx, hotelID, checkIn, checkOut, rooms)
}

// CreateBooking validates req, reserves capacity and persists the booking
// as one unit of work.
func (c *Coordinator) CreateBooking(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	stay, rooms, err := req.validate()
	if err != nil {
		return nil, err
	}
	hotel, err := c.catalog.GetHotel(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}

	now := c.opts.Now()
	b := &model.Booking{
		ID:              uuid.NewString(),
		HotelID:         hotel.ID,
		UserID:          req.UserID,
		CheckIn:         stay.CheckIn,
		CheckOut:        stay.CheckOut,
		Guests:          req.Guests,
		Rooms:           rooms,
		TotalPriceCents: Price(hotel.NightlyPriceCents, rooms, stay.Nights()),
		PaymentMethod:   req.PaymentMethod,
		Status:          c.opts.InitialStatus,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = c.retry(ctx, "create booking", func() error {
		return c.store.WithHotelLock(ctx, hotel.ID, func(ctx context.Context, tx Tx) error {
			return c.ledger.Reserve(ctx, tx, hotel, b)
		})
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCapacity) {
			c.log.Info("booking rejected: no capacity",
				zap.Uint64("hotel_id", hotel.ID),
				zap.Time("check_in", stay.CheckIn),
				zap.Time("check_out", stay.CheckOut),
				zap.Int("rooms", rooms),
			)
		}
		return nil, err
	}

	c.log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.Uint64("hotel_id", b.HotelID),
		zap.Uint64("user_id", b.UserID),
		zap.String("status", string(b.Status)),
	)

	nctx := context.WithoutCancel(ctx)
	if b.Status == model.BookingPending {
		c.notifier.BookingReceived(nctx, *b, *hotel)
	} else {
		c.notifier.BookingConfirmed(nctx, *b, *hotel)
	}
	return b, nil
}

// GetBooking returns a booking visible to actor.
func (c *Coordinator) GetBooking(ctx context.Context, id string, actor Actor) (*model.Booking, error) {
	b, err := c.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(b) {
		return nil, ErrForbidden
	}
	return b, nil
}

// CancelBooking cancels a booking owned by actor (or any booking when
// actor is an administrator) and releases its hold atomically with the
// status write.
func (c *Coordinator) CancelBooking(ctx context.Context, id string, actor Actor) (*model.Booking, error) {
	b, err := c.GetBooking(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, b, EventCancel)
}

// ConfirmBooking records a successful (simulated) payment for a pending
// booking.
func (c *Coordinator) ConfirmBooking(ctx context.Context, id string, actor Actor) (*model.Booking, error) {
	b, err := c.GetBooking(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, b, EventPaymentSucceeded)
}

// SetStatus is the administrative override: any legal transition, on any
// booking.
func (c *Coordinator) SetStatus(ctx context.Context, id string, actor Actor, ev Event) (*model.Booking, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	b, err := c.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, b, ev)
}

// ExpirePending cancels pending bookings older than olderThan, as a
// payment timeout, and returns the bookings it expired.
func (c *Coordinator) ExpirePending(ctx context.Context, olderThan time.Duration) ([]model.Booking, error) {
	cutoff := c.opts.Now().Add(-olderThan)
	stale, err := c.store.ListPendingBefore(ctx, cutoff, expireBatch)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	expired := make([]model.Booking, 0, len(stale))
	for i := range stale {
		b, err := c.apply(ctx, &stale[i], EventPaymentFailed)
		if err != nil {
			// Confirmed or cancelled since it was listed.
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAlreadyCancelled) {
				continue
			}
			return expired, fmt.Errorf("expire booking %s: %w", stale[i].ID, err)
		}
		expired = append(expired, *b)
	}
	return expired, nil
}

// ListBookingsForUser returns one page of the user's bookings.
func (c *Coordinator) ListBookingsForUser(ctx context.Context, userID uint64, p Page) (Result[model.Booking], error) {
	p, err := p.Normalize()
	if err != nil {
		return Result[model.Booking]{}, err
	}
	items, total, err := c.store.ListByUser(ctx, userID, p)
	if err != nil {
		return Result[model.Booking]{}, fmt.Errorf("list user bookings: %w", err)
	}
	return NewResult(items, total, p), nil
}

// ListAllBookings returns one page of all bookings.
func (c *Coordinator) ListAllBookings(ctx context.Context, p Page) (Result[model.Booking], error) {
	p, err := p.Normalize()
	if err != nil {
		return Result[model.Booking]{}, err
	}
	items, total, err := c.store.ListAll(ctx, p)
	if err != nil {
		return Result[model.Booking]{}, fmt.Errorf("list bookings: %w", err)
	}
	return NewResult(items, total, p), nil
}

// apply runs one lifecycle event against the locked, freshly read booking
// and notifies on success.
func (c *Coordinator) apply(ctx context.Context, b *model.Booking, ev Event) (*model.Booking, error) {
	var updated *model.Booking
	err := c.retry(ctx, string(ev), func() error {
		return c.store.WithHotelLock(ctx, b.HotelID, func(ctx context.Context, tx Tx) error {
			cur, err := tx.LockBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			next, err := Transition(cur.Status, ev)
			if err != nil {
				return err
			}
			now := c.opts.Now()
			var changed bool
			if next == model.BookingCancelled {
				changed, err = c.ledger.Release(ctx, tx, cur.ID, now)
			} else {
				changed, err = tx.UpdateStatus(ctx, cur.ID, []model.BookingStatus{cur.Status}, next, now)
			}
			if err != nil {
				return err
			}
			if !changed {
				return fmt.Errorf("%w: booking %s changed concurrently", ErrInvalidTransition, cur.ID)
			}
			cur.Status = next
			cur.UpdatedAt = now
			updated = cur
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("booking status changed",
		zap.String("booking_id", updated.ID),
		zap.String("event", string(ev)),
		zap.String("status", string(updated.Status)),
	)

	hotel, err := c.catalog.GetHotel(ctx, updated.HotelID)
	if err != nil {
		c.log.Warn("skip notification: hotel lookup failed",
			zap.String("booking_id", updated.ID),
			zap.Error(err),
		)
		return updated, nil
	}
	nctx := context.WithoutCancel(ctx)
	switch updated.Status {
	case model.BookingConfirmed:
		c.notifier.BookingConfirmed(nctx, *updated, *hotel)
	case model.BookingCancelled:
		c.notifier.BookingCancelled(nctx, *updated, *hotel)
	}
	return updated, nil
}

// retry re-runs op while it fails with ErrTransient, up to MaxRetries
// extra attempts with exponential backoff.  Other errors return at once.
func (c *Coordinator) retry(ctx context.Context, name string, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.opts.RetryBaseDelay
	eb.MaxInterval = 16 * c.opts.RetryBaseDelay
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.opts.MaxRetries)), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || errors.Is(err, ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		c.log.Warn("retrying after transient error",
			zap.String("op", name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}

type nopNotifier struct{}

func (nopNotifier) BookingReceived(context.Context, model.Booking, model.Hotel)  {}
func (nopNotifier) BookingConfirmed(context.Context, model.Booking, model.Hotel) {}
func (nopNotifier) BookingCancelled(context.Context, model.Booking, model.Hotel) {}

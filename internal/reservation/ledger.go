package reservation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Hold is the capacity an active booking takes: Rooms rooms on every night
// of [CheckIn, CheckOut).
type Hold struct {
	BookingID string
	CheckIn   time.Time
	CheckOut  time.Time
	Rooms     int
}

// PeakOccupancy returns the largest number of rooms held on any single
// night of stay.  Holds outside the stay are ignored.  The sweep visits
// each boundary once, so the cost grows with the number of holds and not
// with the length of the stay.
func PeakOccupancy(stay model.Stay, holds []Hold) int {
	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, 2*len(holds))
	for _, h := range holds {
		start, end := h.CheckIn, h.CheckOut
		if start.Before(stay.CheckIn) {
			start = stay.CheckIn
		}
		if end.After(stay.CheckOut) {
			end = stay.CheckOut
		}
		if !start.Before(end) || h.Rooms <= 0 {
			continue
		}
		edges = append(edges, edge{start, h.Rooms}, edge{end, -h.Rooms})
	}
	// Departures sort before arrivals on the same day: the room is free
	// again on the checkout date.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			return edges[i].delta < edges[j].delta
		}
		return edges[i].at.Before(edges[j].at)
	})
	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}

// AvailableRooms clamps total-held into [0, total].
func AvailableRooms(total, held int) int {
	free := total - held
	if free < 0 {
		return 0
	}
	if free > total {
		return total
	}
	return free
}

// Ledger answers capacity questions over the active bookings of a hotel
// and applies or releases holds inside a locked unit of work.  It keeps no
// counters of its own; occupancy is always derived from the bookings.
type Ledger struct {
	catalog Catalog
	holds   HoldReader
}

func NewLedger(catalog Catalog, holds HoldReader) *Ledger {
	return &Ledger{catalog: catalog, holds: holds}
}

// CheckAvailability reports whether rooms rooms are free on every night of
// [checkIn, checkOut).  The answer is advisory: only Reserve, run under the
// hotel lock, is authoritative.
func (l *Ledger) CheckAvailability(ctx context.Context, hotelID uint64, checkIn, checkOut time.Time, rooms int) (bool, error) {
	stay := model.NewStay(checkIn, checkOut)
	if !stay.Valid() || rooms < 1 {
		return false, fmt.Errorf("%w: check-out must be after check-in and rooms at least 1", ErrInvalidRequest)
	}
	if stay.Nights() > model.MaxNights {
		return false, fmt.Errorf("%w: a stay may not exceed %d nights", ErrInvalidRequest, model.MaxNights)
	}
	hotel, err := l.catalog.GetHotel(ctx, hotelID)
	if err != nil {
		return false, err
	}
	holds, err := l.holds.ActiveHolds(ctx, hotelID, stay)
	if err != nil {
		return false, fmt.Errorf("load holds: %w", err)
	}
	return fits(hotel, stay, rooms, holds), nil
}

// Occupancy returns the peak rooms held across stay.
func (l *Ledger) Occupancy(ctx context.Context, hotelID uint64, stay model.Stay) (int, error) {
	holds, err := l.holds.ActiveHolds(ctx, hotelID, stay)
	if err != nil {
		return 0, fmt.Errorf("load holds: %w", err)
	}
	return PeakOccupancy(stay, holds), nil
}

// Reserve re-validates capacity against the state visible inside tx and
// inserts the booking.  The caller must hold the hotel lock.
func (l *Ledger) Reserve(ctx context.Context, tx Tx, hotel *model.Hotel, b *model.Booking) error {
	stay := b.Stay()
	holds, err := tx.ActiveHolds(ctx, hotel.ID, stay)
	if err != nil {
		return fmt.Errorf("load holds: %w", err)
	}
	if !fits(hotel, stay, b.Rooms, holds) {
		return ErrInsufficientCapacity
	}
	if err := tx.InsertBooking(ctx, b); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Release frees the hold of an active booking by moving it to cancelled.
// Releasing a booking that no longer holds capacity is a no-op and
// reports false.
func (l *Ledger) Release(ctx context.Context, tx Tx, bookingID string, at time.Time) (bool, error) {
	changed, err := tx.UpdateStatus(ctx, bookingID, model.ActiveStatuses, model.BookingCancelled, at)
	if err != nil {
		return false, fmt.Errorf("release hold: %w", err)
	}
	return changed, nil
}

func fits(hotel *model.Hotel, stay model.Stay, rooms int, holds []Hold) bool {
	return PeakOccupancy(stay, holds)+rooms <= hotel.TotalRooms
}

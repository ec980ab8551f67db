package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// ActiveStatuses are the statuses that hold room capacity.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// IsActive reports whether a booking in this status holds capacity.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

// PaymentMethods lists the accepted payment method tags.  Payment itself
// is simulated; the tag is recorded for history only.
var PaymentMethods = []string{"credit_card", "debit_card", "paypal", "stripe"}

// Booking records a guest's stay at a hotel.  A booking reserves Rooms
// rooms for every night in [CheckIn, CheckOut).  Bookings are never
// deleted; cancellation only moves Status to cancelled.
//
// Fields:
//
//	ID              – UUID of the booking.
//	HotelID         – hotel being booked.
//	UserID          – guest who owns the booking.
//	CheckIn         – first night (UTC date).
//	CheckOut        – departure date, exclusive (UTC date).
//	Guests          – number of guests, at least 1.
//	Rooms           – rooms held per night, at least 1.
//	TotalPriceCents – nightly price × rooms × nights at booking time.
//	PaymentMethod   – payment method tag.
//	Status          – pending, confirmed or cancelled.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – last status change.
type Booking struct {
	ID              string        `json:"id"`
	HotelID         uint64        `json:"hotel_id"`
	UserID          uint64        `json:"user_id"`
	CheckIn         time.Time     `json:"check_in"`
	CheckOut        time.Time     `json:"check_out"`
	Guests          int           `json:"guests"`
	Rooms           int           `json:"rooms"`
	TotalPriceCents int64         `json:"total_price_cents"`
	PaymentMethod   string        `json:"payment_method"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Stay returns the booked date range.
func (b *Booking) Stay() Stay {
	return Stay{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

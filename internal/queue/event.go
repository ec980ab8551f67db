// Package queue defines the booking event payload exchanged over RabbitMQ
// and the consumer that delivers those events to a handler.
package queue

import (
    "time"

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// EventType names a booking lifecycle message.
type EventType string

const (
    BookingReceived  EventType = "booking.received"
    BookingConfirmed EventType = "booking.confirmed"
    BookingCancelled EventType = "booking.cancelled"
)

// BookingEvent is published after a booking changes status.  It carries
// enough of the booking and hotel for downstream consumers to render a
// notification without querying the primary database.
type BookingEvent struct {
    Type            EventType `json:"type"`
    BookingID       string    `json:"booking_id"`
    UserID          uint64    `json:"user_id"`
    HotelID         uint64    `json:"hotel_id"`
    HotelName       string    `json:"hotel_name"`
    HotelLocation   string    `json:"hotel_location"`
    CheckIn         string    `json:"check_in"`
    CheckOut        string    `json:"check_out"`
    Nights          int       `json:"nights"`
    Guests          int       `json:"guests"`
    Rooms           int       `json:"rooms"`
    TotalPriceCents int64     `json:"total_price_cents"`
    PaymentMethod   string    `json:"payment_method"`
    Status          string    `json:"status"`
    OccurredAt      time.Time `json:"occurred_at"`
}

// NewBookingEvent snapshots b and h into an event of type t.
func NewBookingEvent(t EventType, b model.Booking, h model.Hotel, at time.Time) BookingEvent {
    return BookingEvent{
        Type:            t,
        BookingID:       b.ID,
        UserID:          b.UserID,
        HotelID:         h.ID,
        HotelName:       h.Name,
        HotelLocation:   h.Location,
        CheckIn:         b.CheckIn.Format(model.DateLayout),
        CheckOut:        b.CheckOut.Format(model.DateLayout),
        Nights:          b.Stay().Nights(),
        Guests:          b.Guests,
        Rooms:           b.Rooms,
        TotalPriceCents: b.TotalPriceCents,
        PaymentMethod:   b.PaymentMethod,
        Status:          string(b.Status),
        OccurredAt:      at.UTC(),
    }
}

package model

import "time"

// Hotel is a bookable property in the catalog.  Prices are stored in
// cents to avoid floating point drift.  AvailableRooms is not a stored
// column: it is derived from the active bookings covering the current
// night and is always within [0, TotalRooms].
//
// Fields:
//
//	ID                – primary key identifier.
//	Name              – display name.
//	Location          – free-form city/address text used by search.
//	Category          – one of the catalog categories (Luxury, Resort, ...).
//	Description       – optional long description.
//	NightlyPriceCents – price of one room for one night, in cents.
//	Rating            – average review rating (0..5).
//	TotalRooms        – physical room count; the capacity of every night.
//	AvailableRooms    – rooms not held by an active booking tonight.
//	CreatedAt         – creation timestamp.
//	UpdatedAt         – last update timestamp.
type Hotel struct {
	ID                uint64    `json:"id"`
	Name              string    `json:"name"`
	Location          string    `json:"location"`
	Category          string    `json:"category"`
	Description       string    `json:"description,omitempty"`
	NightlyPriceCents int64     `json:"nightly_price_cents"`
	Rating            float64   `json:"rating"`
	TotalRooms        int       `json:"total_rooms"`
	AvailableRooms    int       `json:"available_rooms"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HotelCategories lists the accepted values for Hotel.Category.
var HotelCategories = []string{"Luxury", "Resort", "Business", "Boutique", "Beach", "Urban"}

package config

import (
    "log"
    "time"
)

// ReservationConfig tunes the booking coordinator and the pending-expiry
// scheduler.
type ReservationConfig struct {
    // RequirePayment creates bookings as pending until POST /pay confirms
    // them; otherwise bookings start confirmed.
    RequirePayment bool
    PendingTTL     time.Duration
    ExpiryInterval time.Duration
    MaxRetries     int
    RetryBaseDelay time.Duration
}

func LoadReservationConfig() ReservationConfig {
    c := ReservationConfig{
        RequirePayment: envBool("BOOKING_REQUIRE_PAYMENT", false),
        PendingTTL:     envDur("BOOKING_PENDING_TTL", 15*time.Minute),
        ExpiryInterval: envDur("BOOKING_EXPIRY_INTERVAL", time.Minute),
        MaxRetries:     envInt("BOOKING_MAX_RETRIES", 3),
        RetryBaseDelay: envDur("BOOKING_RETRY_BASE_DELAY", 25*time.Millisecond),
    }
    if c.PendingTTL <= 0 || c.ExpiryInterval <= 0 {
        log.Fatalf("BOOKING_PENDING_TTL and BOOKING_EXPIRY_INTERVAL must be positive")
    }
    if c.MaxRetries < 0 { c.MaxRetries = 0 }
    return c
}

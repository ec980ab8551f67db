package model

import "time"

// DateLayout is the wire format of check-in and check-out dates.
const DateLayout = "2006-01-02"

// MaxNights is the longest stay a single booking may cover.
const MaxNights = 365

const secondsPerDay = 24 * 60 * 60

// Stay is a half-open range of nights [CheckIn, CheckOut).  Both ends are
// calendar dates at UTC midnight, so a stay ending on day D and another
// starting on day D share no night.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStay truncates both instants to their UTC calendar date.
func NewStay(checkIn, checkOut time.Time) Stay {
	return Stay{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
}

// Day returns t's UTC calendar date at midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights is the number of nights in the stay; zero or negative for an
// empty or inverted range.  Whole days are counted on Unix seconds, which
// stays exact past the range of time.Duration.
func (s Stay) Nights() int {
	return int((s.CheckOut.Unix() - s.CheckIn.Unix()) / secondsPerDay)
}

// Valid reports whether the stay covers at least one night.
func (s Stay) Valid() bool {
	return s.CheckOut.After(s.CheckIn)
}

// Overlaps reports whether two stays share at least one night.
func (s Stay) Overlaps(o Stay) bool {
	return s.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(s.CheckOut)
}

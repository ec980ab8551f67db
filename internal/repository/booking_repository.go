package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

const bookingColumns = `id, hotel_id, user_id, check_in, check_out, guests, rooms,
	total_price_cents, payment_method, status, created_at, updated_at`

// BookingRepo is the MySQL implementation of reservation.Store.  Writers
// for a hotel serialise on that hotel's row: WithHotelLock opens a
// transaction and takes SELECT ... FOR UPDATE on hotels before any
// capacity check, so the overlap query, the write and the commit all
// happen while the row lock is held.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// queryer is the subset shared by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WithHotelLock runs fn inside a transaction holding the hotel row lock.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *BookingRepo) WithHotelLock(ctx context.Context, hotelID uint64, fn func(ctx context.Context, tx reservation.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM hotels WHERE id = ? FOR UPDATE`, hotelID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.ErrHotelNotFound
	}
	if err != nil {
		return fmt.Errorf("lock hotel: %w", classify(err))
	}

	if err := fn(ctx, &bookingTx{q: tx, hotelID: hotelID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", classify(err))
	}
	committed = true
	return nil
}

// ActiveHolds lists pending and confirmed bookings overlapping stay.  Two
// stays overlap when each starts before the other ends.
func (r *BookingRepo) ActiveHolds(ctx context.Context, hotelID uint64, stay model.Stay) ([]reservation.Hold, error) {
	return activeHolds(ctx, r.db, hotelID, stay)
}

// GetBooking fetches a booking by id.
func (r *BookingRepo) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reservation.ErrBookingNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

// ListByUser returns one page of a user's bookings and the total count.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, p reservation.Page) ([]model.Booking, int, error) {
	return r.list(ctx, "user_id = ?", []any{userID}, p)
}

// ListAll returns one page of all bookings and the total count.
func (r *BookingRepo) ListAll(ctx context.Context, p reservation.Page) ([]model.Booking, int, error) {
	return r.list(ctx, "1=1", nil, p)
}

// ListPendingBefore returns pending bookings created before cutoff.
func (r *BookingRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		WHERE status = ? AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?`,
		string(model.BookingPending), cutoff.UTC(), limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	return scanBookings(rows, limit)
}

func (r *BookingRepo) list(ctx context.Context, cond string, args []any, p reservation.Page) ([]model.Booking, int, error) {
	column, desc, err := p.OrderBy()
	if err != nil {
		return nil, 0, err
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	dataSQL := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE ` + cond + `
		ORDER BY ` + column + ` ` + dir + `, id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), p.Limit, p.Offset())

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()
	items, err := scanBookings(rows, p.Limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// bookingTx is the reservation.Tx handed to WithHotelLock callbacks.
type bookingTx struct {
	q       queryer
	hotelID uint64
}

func (t *bookingTx) ActiveHolds(ctx context.Context, hotelID uint64, stay model.Stay) ([]reservation.Hold, error) {
	return activeHolds(ctx, t.q, hotelID, stay)
}

func (t *bookingTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.HotelID, b.UserID,
		b.CheckIn.Format(model.DateLayout), b.CheckOut.Format(model.DateLayout),
		b.Guests, b.Rooms, b.TotalPriceCents, b.PaymentMethod, string(b.Status),
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	return classify(err)
}

func (t *bookingTx) LockBooking(ctx context.Context, id string) (*model.Booking, error) {
	row := t.q.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND hotel_id = ? FOR UPDATE`,
		id, t.hotelID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reservation.ErrBookingNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

func (t *bookingTx) UpdateStatus(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, at time.Time) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	args := []any{string(to), at.UTC(), id}
	for _, s := range from {
		args = append(args, string(s))
	}
	res, err := t.q.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func activeHolds(ctx context.Context, q queryer, hotelID uint64, stay model.Stay) ([]reservation.Hold, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, check_in, check_out, rooms FROM bookings
		WHERE hotel_id = ? AND status IN (?, ?) AND check_in < ? AND check_out > ?`,
		hotelID, string(model.BookingPending), string(model.BookingConfirmed),
		stay.CheckOut.Format(model.DateLayout), stay.CheckIn.Format(model.DateLayout))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var holds []reservation.Hold
	for rows.Next() {
		var h reservation.Hold
		if err := rows.Scan(&h.BookingID, &h.CheckIn, &h.CheckOut, &h.Rooms); err != nil {
			return nil, err
		}
		h.CheckIn, h.CheckOut = model.Day(h.CheckIn), model.Day(h.CheckOut)
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return holds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	if err := row.Scan(
		&b.ID, &b.HotelID, &b.UserID, &b.CheckIn, &b.CheckOut, &b.Guests, &b.Rooms,
		&b.TotalPriceCents, &b.PaymentMethod, &status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.CheckIn, b.CheckOut = model.Day(b.CheckIn), model.Day(b.CheckOut)
	return &b, nil
}

func scanBookings(rows *sql.Rows, capacity int) ([]model.Booking, error) {
	out := make([]model.Booking, 0, max(capacity, 0))
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

var _ reservation.Store = (*BookingRepo)(nil)

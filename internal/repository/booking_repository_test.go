package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func day(s string) time.Time {
	d, _ := time.Parse(model.DateLayout, s)
	return d
}

var bookingCols = []string{"id", "hotel_id", "user_id", "check_in", "check_out", "guests", "rooms",
	"total_price_cents", "payment_method", "status", "created_at", "updated_at"}

func newBooking() *model.Booking {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &model.Booking{
		ID:              "b-1",
		HotelID:         1,
		UserID:          7,
		CheckIn:         day("2024-06-01"),
		CheckOut:        day("2024-06-05"),
		Guests:          2,
		Rooms:           1,
		TotalPriceCents: 40000,
		PaymentMethod:   "paypal",
		Status:          model.BookingConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func expectHotelLock(mock sqlmock.Sqlmock, hotelID uint64) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM hotels WHERE id = \? FOR UPDATE`).
		WithArgs(hotelID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(hotelID))
}

func TestBookingRepo_ReserveCommits(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	ledger := reservation.NewLedger(nil, repo)
	hotel := &model.Hotel{ID: 1, TotalRooms: 2}
	b := newBooking()

	expectHotelLock(mock, 1)
	mock.ExpectQuery(`SELECT id, check_in, check_out, rooms FROM bookings`).
		WithArgs(uint64(1), "pending", "confirmed", "2024-06-05", "2024-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "check_in", "check_out", "rooms"}).
			AddRow("b-0", day("2024-05-30"), day("2024-06-02"), 1))
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs("b-1", uint64(1), uint64(7), "2024-06-01", "2024-06-05", 2, 1, int64(40000), "paypal", "confirmed",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithHotelLock(context.Background(), 1, func(ctx context.Context, tx reservation.Tx) error {
		return ledger.Reserve(ctx, tx, hotel, b)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ReserveRejectsFullHotel(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	ledger := reservation.NewLedger(nil, repo)
	hotel := &model.Hotel{ID: 1, TotalRooms: 1}

	expectHotelLock(mock, 1)
	mock.ExpectQuery(`SELECT id, check_in, check_out, rooms FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "check_in", "check_out", "rooms"}).
			AddRow("b-0", day("2024-06-03"), day("2024-06-04"), 1))
	mock.ExpectRollback()

	err := repo.WithHotelLock(context.Background(), 1, func(ctx context.Context, tx reservation.Tx) error {
		return ledger.Reserve(ctx, tx, hotel, newBooking())
	})
	assert.ErrorIs(t, err, reservation.ErrInsufficientCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_HotelMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM hotels WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.WithHotelLock(context.Background(), 9, func(context.Context, reservation.Tx) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.ErrorIs(t, err, reservation.ErrHotelNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_DeadlockIsTransient(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	expectHotelLock(mock, 1)
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	err := repo.WithHotelLock(context.Background(), 1, func(ctx context.Context, tx reservation.Tx) error {
		return tx.InsertBooking(ctx, newBooking())
	})
	assert.ErrorIs(t, err, reservation.ErrTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_UpdateStatusIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	expectHotelLock(mock, 1)
	mock.ExpectExec(`UPDATE bookings SET status = \?, updated_at = \? WHERE id = \? AND status IN \(\?,\?\)`).
		WithArgs("cancelled", at, "b-1", "pending", "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs("cancelled", at, "b-1", "pending", "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var first, second bool
	err := repo.WithHotelLock(context.Background(), 1, func(ctx context.Context, tx reservation.Tx) error {
		var err error
		if first, err = tx.UpdateStatus(ctx, "b-1", model.ActiveStatuses, model.BookingCancelled, at); err != nil {
			return err
		}
		second, err = tx.UpdateStatus(ctx, "b-1", model.ActiveStatuses, model.BookingCancelled, at)
		return err
	})
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_LockBooking(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	b := newBooking()

	expectHotelLock(mock, 1)
	mock.ExpectQuery(`FROM bookings WHERE id = \? AND hotel_id = \? FOR UPDATE`).
		WithArgs("b-1", uint64(1)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			b.ID, b.HotelID, b.UserID, b.CheckIn, b.CheckOut, b.Guests, b.Rooms,
			b.TotalPriceCents, b.PaymentMethod, "confirmed", b.CreatedAt, b.UpdatedAt))
	mock.ExpectQuery(`FROM bookings WHERE id = \? AND hotel_id = \? FOR UPDATE`).
		WithArgs("nope", uint64(1)).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectRollback()

	err := repo.WithHotelLock(context.Background(), 1, func(ctx context.Context, tx reservation.Tx) error {
		got, err := tx.LockBooking(ctx, "b-1")
		require.NoError(t, err)
		assert.Equal(t, model.BookingConfirmed, got.Status)
		assert.Equal(t, day("2024-06-05"), got.CheckOut)

		_, err = tx.LockBooking(ctx, "nope")
		return err
	})
	assert.ErrorIs(t, err, reservation.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_GetBooking(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	b := newBooking()

	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			b.ID, b.HotelID, b.UserID, b.CheckIn, b.CheckOut, b.Guests, b.Rooms,
			b.TotalPriceCents, b.PaymentMethod, "confirmed", b.CreatedAt, b.UpdatedAt))
	mock.ExpectQuery(`FROM bookings WHERE id = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetBooking(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, *b, *got)

	_, err = repo.GetBooking(context.Background(), "missing")
	assert.ErrorIs(t, err, reservation.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	b := newBooking()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE user_id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY created_at DESC, id ASC\s+LIMIT \? OFFSET \?`).
		WithArgs(uint64(7), 2, 2).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			b.ID, b.HotelID, b.UserID, b.CheckIn, b.CheckOut, b.Guests, b.Rooms,
			b.TotalPriceCents, b.PaymentMethod, "cancelled", b.CreatedAt, b.UpdatedAt))

	items, total, err := repo.ListByUser(context.Background(), 7, reservation.Page{Page: 2, Limit: 2, Sort: "-createdAt"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, model.BookingCancelled, items[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ListPendingBefore(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)
	cutoff := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBooking()

	mock.ExpectQuery(`WHERE status = \? AND created_at < \?`).
		WithArgs("pending", cutoff, 100).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			b.ID, b.HotelID, b.UserID, b.CheckIn, b.CheckOut, b.Guests, b.Rooms,
			b.TotalPriceCents, b.PaymentMethod, "pending", b.CreatedAt, b.UpdatedAt))

	items, err := repo.ListPendingBefore(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.BookingPending, items[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1205}), reservation.ErrTransient)
	assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1062}), ErrConflict)
	other := &mysql.MySQLError{Number: 1146}
	assert.Same(t, other, classify(other))
	assert.NoError(t, classify(nil))
}

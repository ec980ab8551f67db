package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

type mockExpirer struct{ mock.Mock }

func (m *mockExpirer) ExpirePending(ctx context.Context, olderThan time.Duration) ([]model.Booking, error) {
	args := m.Called(ctx, olderThan)
	expired, _ := args.Get(0).([]model.Booking)
	return expired, args.Error(1)
}

func TestScheduler_Tick_ExpiresPending(t *testing.T) {
	expirer := &mockExpirer{}
	s := New(expirer, 50*time.Millisecond, 15*time.Minute, zaptest.NewLogger(t))

	expired := []model.Booking{{ID: "b1", HotelID: 2, UserID: 7, Status: model.BookingCancelled}}
	expirer.On("ExpirePending", mock.Anything, 15*time.Minute).Return(expired, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	expirer.AssertCalled(t, "ExpirePending", mock.Anything, 15*time.Minute)
}

func TestScheduler_Tick_HandlesError(t *testing.T) {
	expirer := &mockExpirer{}
	s := New(expirer, 50*time.Millisecond, time.Minute, zaptest.NewLogger(t))

	expirer.On("ExpirePending", mock.Anything, time.Minute).Return(nil, errors.New("db error"))

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	assert.GreaterOrEqual(t, len(expirer.Calls), 1)
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	expirer := &mockExpirer{}
	s := New(expirer, time.Second, time.Minute, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
	expirer.AssertNotCalled(t, "ExpirePending", mock.Anything, mock.Anything)
}

func TestScheduler_MultipleTicks(t *testing.T) {
	expirer := &mockExpirer{}
	s := New(expirer, 30*time.Millisecond, time.Minute, zaptest.NewLogger(t))

	expirer.On("ExpirePending", mock.Anything, time.Minute).Return(nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	assert.GreaterOrEqual(t, len(expirer.Calls), 3)
}

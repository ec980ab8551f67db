package bootstrap

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

type mockAdmins struct{ mock.Mock }

func (m *mockAdmins) EnsureAdmin(ctx context.Context, name, email, password string, cost int) error {
	return m.Called(ctx, name, email, password, cost).Error(0)
}

type fakeHotels struct {
	existing int
	created  []model.Hotel
	failAt   int
}

func (f *fakeHotels) List(_ context.Context, _ repository.HotelQuery) ([]model.Hotel, int, error) {
	return nil, f.existing + len(f.created), nil
}

func (f *fakeHotels) Create(_ context.Context, h *model.Hotel) error {
	if f.failAt > 0 && len(f.created)+1 == f.failAt {
		return errors.New("insert failed")
	}
	h.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, *h)
	return nil
}

func TestAdmin_UpsertsConfiguredAccount(t *testing.T) {
	users := &mockAdmins{}
	cfg := config.BootstrapConfig{AdminName: "Admin User", AdminEmail: "admin@hotel.com", AdminPassword: "admin-pass"}
	users.On("EnsureAdmin", mock.Anything, "Admin User", "admin@hotel.com", "admin-pass", 4).Return(nil)

	require.NoError(t, Admin(context.Background(), users, cfg, 4, zaptest.NewLogger(t)))
	users.AssertExpectations(t)
}

func TestAdmin_SkippedWithoutEmail(t *testing.T) {
	users := &mockAdmins{}

	require.NoError(t, Admin(context.Background(), users, config.BootstrapConfig{}, 4, zaptest.NewLogger(t)))
	users.AssertNotCalled(t, "EnsureAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdmin_WrapsStoreError(t *testing.T) {
	users := &mockAdmins{}
	users.On("EnsureAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(repository.ErrConflict)

	err := Admin(context.Background(), users, config.BootstrapConfig{AdminEmail: "a@b.c", AdminPassword: "12345678"}, 4, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestHotels_SeedsEmptyCatalog(t *testing.T) {
	store := &fakeHotels{}

	n, err := Hotels(context.Background(), store, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, len(SampleHotels()), n)
	assert.Len(t, store.created, n)

	// seeding again is a no-op
	n, err = Hotels(context.Background(), store, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHotels_LeavesExistingCatalog(t *testing.T) {
	store := &fakeHotels{existing: 1}

	n, err := Hotels(context.Background(), store, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.created)
}

func TestHotels_StopsOnError(t *testing.T) {
	store := &fakeHotels{failAt: 3}

	n, err := Hotels(context.Background(), store, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestSampleHotels_Valid(t *testing.T) {
	seen := map[string]bool{}
	for _, h := range SampleHotels() {
		assert.NotEmpty(t, h.Name)
		assert.True(t, slices.Contains(model.HotelCategories, h.Category), h.Category)
		assert.Positive(t, h.TotalRooms)
		assert.GreaterOrEqual(t, h.NightlyPriceCents, int64(0))
		assert.LessOrEqual(t, h.Rating, 5.0)
		seen[h.Category] = true
	}
	assert.Len(t, seen, len(model.HotelCategories))
}

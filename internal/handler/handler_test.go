package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

const secret = "handler-test-secret"

// memHotels serves the catalog from a MemoryStore.
type memHotels struct {
	store *reservation.MemoryStore
	ids   []uint64
}

func (m *memHotels) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	return m.store.GetHotel(ctx, id)
}

func (m *memHotels) List(ctx context.Context, _ repository.HotelQuery) ([]model.Hotel, int, error) {
	out := make([]model.Hotel, 0, len(m.ids))
	for _, id := range m.ids {
		h, err := m.store.GetHotel(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *h)
	}
	return out, len(out), nil
}

func (m *memHotels) Create(_ context.Context, h *model.Hotel) error {
	*h = m.store.AddHotel(*h)
	m.ids = append(m.ids, h.ID)
	return nil
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error { p.n++; return nil }

type testAPI struct {
	e      *echo.Echo
	hotels *memHotels
	purger *countingPurger
	hotel  model.Hotel
}

func newTestAPI(t *testing.T, rooms int, opts reservation.Options) *testAPI {
	t.Helper()
	log := zaptest.NewLogger(t)
	store := reservation.NewMemoryStore()
	hotels := &memHotels{store: store}
	hotel := &model.Hotel{Name: "Grand Plaza", Location: "Lisbon", Category: "Urban", NightlyPriceCents: 10000, TotalRooms: rooms}
	require.NoError(t, hotels.Create(context.Background(), hotel))

	coord := reservation.NewCoordinator(store, store, nil, log, opts)
	purger := &countingPurger{}
	bh := NewBookingHandler(coord, purger, log)
	hh := NewHotelHandler(hotels, coord, log)

	e := echo.New()
	e.Validator = NewValidator()
	v1 := e.Group("/v1")
	v1.GET("/hotels", hh.List)
	v1.GET("/hotels/:id", hh.Get)
	v1.GET("/hotels/:id/availability", hh.Availability)

	auth := v1.Group("", middleware.JWTAuth(secret))
	auth.POST("/hotels", hh.Create, middleware.RequireRole(model.RoleAdmin))
	auth.POST("/bookings", bh.Create)
	auth.GET("/bookings/my-bookings", bh.Mine)
	auth.GET("/bookings/:id", bh.Get)
	auth.PATCH("/bookings/:id/cancel", bh.Cancel)
	auth.POST("/bookings/:id/pay", bh.Pay)
	admin := auth.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/bookings", bh.List)
	admin.PUT("/bookings/:id/status", bh.SetStatus)

	return &testAPI{e: e, hotels: hotels, purger: purger, hotel: *hotel}
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return at.Token
}

func (a *testAPI) do(t *testing.T, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func bookingBody(hotelID uint64, in, out string, rooms int) string {
	b, _ := json.Marshal(map[string]any{
		"hotel_id": hotelID, "check_in": in, "check_out": out,
		"guests": 2, "rooms": rooms, "payment_method": "credit_card",
	})
	return string(b)
}

func TestBookingFlow(t *testing.T) {
	api := newTestAPI(t, 2, reservation.Options{})
	ana := token(t, 7, model.RoleUser)

	rec := api.do(t, http.MethodPost, "/v1/bookings", ana, bookingBody(api.hotel.ID, "2030-01-10", "2030-01-13", 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[bookingResp](t, rec)
	assert.Equal(t, "confirmed", b.Status)
	assert.Equal(t, "2030-01-10", b.CheckIn)
	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, int64(30000), b.TotalPriceCents)
	assert.Equal(t, "300.00", b.TotalPrice)
	assert.Equal(t, 1, api.purger.n)

	rec = api.do(t, http.MethodGet, "/v1/bookings/"+b.ID, ana, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/v1/bookings/"+b.ID, token(t, 8, model.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, "/v1/bookings/my-bookings?limit=5", ana, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[reservation.Result[bookingResp]](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.PageCount)
	require.Len(t, page.Items, 1)

	rec = api.do(t, http.MethodPatch, "/v1/bookings/"+b.ID+"/cancel", ana, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[bookingResp](t, rec).Status)
	assert.Equal(t, 2, api.purger.n)

	rec = api.do(t, http.MethodPatch, "/v1/bookings/"+b.ID+"/cancel", ana, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateBooking_Errors(t *testing.T) {
	api := newTestAPI(t, 1, reservation.Options{})
	ana := token(t, 7, model.RoleUser)

	cases := []struct {
		name   string
		tok    string
		body   string
		status int
	}{
		{"no token", "", bookingBody(api.hotel.ID, "2030-01-10", "2030-01-12", 1), http.StatusUnauthorized},
		{"bad json", ana, "{", http.StatusBadRequest},
		{"missing guests", ana, `{"hotel_id":1,"check_in":"2030-01-10","check_out":"2030-01-12","payment_method":"paypal"}`, http.StatusBadRequest},
		{"bad date", ana, bookingBody(api.hotel.ID, "10/01/2030", "2030-01-12", 1), http.StatusBadRequest},
		{"inverted stay", ana, bookingBody(api.hotel.ID, "2030-01-12", "2030-01-10", 1), http.StatusBadRequest},
		{"stay too long", ana, bookingBody(api.hotel.ID, "2024-01-01", "9999-12-31", 1), http.StatusBadRequest},
		{"unknown hotel", ana, bookingBody(999, "2030-01-10", "2030-01-12", 1), http.StatusNotFound},
		{"over capacity", ana, bookingBody(api.hotel.ID, "2030-01-10", "2030-01-12", 2), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/v1/bookings", tc.tok, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestBackToBackStays(t *testing.T) {
	api := newTestAPI(t, 1, reservation.Options{})
	ana := token(t, 7, model.RoleUser)

	rec := api.do(t, http.MethodPost, "/v1/bookings", ana, bookingBody(api.hotel.ID, "2030-03-01", "2030-03-03", 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/v1/hotels/1/availability?check_in=2030-03-02&check_out=2030-03-04", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["available"])

	rec = api.do(t, http.MethodGet, "/v1/hotels/1/availability?check_in=2030-03-03&check_out=2030-03-05", "", "")
	assert.Equal(t, true, decode[map[string]any](t, rec)["available"])

	rec = api.do(t, http.MethodPost, "/v1/bookings", ana, bookingBody(api.hotel.ID, "2030-03-03", "2030-03-05", 1))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPendingPayment(t *testing.T) {
	api := newTestAPI(t, 3, reservation.Options{InitialStatus: model.BookingPending})
	ana := token(t, 7, model.RoleUser)

	rec := api.do(t, http.MethodPost, "/v1/bookings", ana, bookingBody(api.hotel.ID, "2030-05-01", "2030-05-02", 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	b := decode[bookingResp](t, rec)
	assert.Equal(t, "pending", b.Status)

	rec = api.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/pay", ana, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decode[bookingResp](t, rec).Status)

	rec = api.do(t, http.MethodPost, "/v1/bookings/"+b.ID+"/pay", ana, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t, 3, reservation.Options{InitialStatus: model.BookingPending})
	ana := token(t, 7, model.RoleUser)
	root := token(t, 1, model.RoleAdmin)

	rec := api.do(t, http.MethodPost, "/v1/bookings", ana, bookingBody(api.hotel.ID, "2030-05-01", "2030-05-02", 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[bookingResp](t, rec).ID

	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodGet, "/v1/bookings", ana, "").Code)
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPut, "/v1/bookings/"+id+"/status", ana, `{"status":"confirmed"}`).Code)

	rec = api.do(t, http.MethodGet, "/v1/bookings?sort=-checkIn", root, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[reservation.Result[bookingResp]](t, rec).Total)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/v1/bookings?sort=nope", root, "").Code)

	rec = api.do(t, http.MethodPut, "/v1/bookings/"+id+"/status", root, `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "confirmed", decode[bookingResp](t, rec).Status)

	// confirmed cannot fail payment
	rec = api.do(t, http.MethodPut, "/v1/bookings/"+id+"/status", root, `{"event":"payment_failed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPut, "/v1/bookings/"+id+"/status", root, `{"status":"pending"}`).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPut, "/v1/bookings/"+id+"/status", root, `{}`).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodPut, "/v1/bookings/missing/status", root, `{"event":"cancel"}`).Code)

	rec = api.do(t, http.MethodPut, "/v1/bookings/"+id+"/status", root, `{"event":"cancel"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[bookingResp](t, rec).Status)
}

func TestHotelRoutes(t *testing.T) {
	api := newTestAPI(t, 4, reservation.Options{})
	root := token(t, 1, model.RoleAdmin)

	rec := api.do(t, http.MethodGet, "/v1/hotels/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[model.Hotel](t, rec)
	assert.Equal(t, "Grand Plaza", h.Name)
	assert.Equal(t, 4, h.AvailableRooms)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/v1/hotels/99", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/v1/hotels/abc", "", "").Code)
	assert.Equal(t, http.StatusBadRequest,
		api.do(t, http.MethodGet, "/v1/hotels/1/availability?check_in=2030-01-01", "", "").Code)

	body := `{"name":"Dune Lodge","location":"Sagres","category":"beach","nightly_price":125.5,"rating":4.2,"total_rooms":12}`
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPost, "/v1/hotels", token(t, 7, model.RoleUser), body).Code)

	rec = api.do(t, http.MethodPost, "/v1/hotels", root, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Hotel](t, rec)
	assert.Equal(t, "Beach", created.Category)
	assert.Equal(t, int64(12550), created.NightlyPriceCents)

	rec = api.do(t, http.MethodPost, "/v1/hotels", root, `{"name":"X","location":"Y","category":"Castle","nightly_price":10,"total_rooms":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPost, "/v1/hotels", root, `{"name":"X","location":"Y","category":"Urban","nightly_price":10,"total_rooms":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_rooms")

	rec = api.do(t, http.MethodGet, "/v1/hotels", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[reservation.Result[model.Hotel]](t, rec)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 1, list.Page)

	rec = api.do(t, http.MethodPost, "/v1/hotels", root, `{"name":"Hostel","location":"Porto","category":"Urban","nightly_price":0,"total_rooms":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(0), decode[model.Hotel](t, rec).NightlyPriceCents)
	rec = api.do(t, http.MethodPost, "/v1/hotels", root, `{"name":"Hostel","location":"Porto","category":"Urban","nightly_price":-1,"total_rooms":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "nightly_price")
}

func TestReady(t *testing.T) {
	e := echo.New()
	e.GET("/readyz", Ready(map[string]func(context.Context) error{
		"db": func(context.Context) error { return nil },
	}))
	e.GET("/down", Ready(map[string]func(context.Context) error{
		"db": func(context.Context) error { return context.DeadlineExceeded },
	}))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

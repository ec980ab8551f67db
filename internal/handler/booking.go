package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// cachePurger drops cached catalog responses after capacity changes.
type cachePurger interface {
	Purge(ctx context.Context) error
}

// BookingHandler exposes the reservation coordinator over HTTP.  Every
// route assumes JWTAuth has run; ownership checks happen in the
// coordinator.
type BookingHandler struct {
	Coord *reservation.Coordinator
	Cache cachePurger
	Log   *zap.Logger
}

func NewBookingHandler(coord *reservation.Coordinator, cache cachePurger, log *zap.Logger) *BookingHandler {
	if coord == nil {
		panic("nil coordinator passed to NewBookingHandler")
	}
	return &BookingHandler{Coord: coord, Cache: cache, Log: log}
}

type createBookingReq struct {
	HotelID       uint64 `json:"hotel_id" validate:"required"`
	CheckIn       string `json:"check_in" validate:"required"`
	CheckOut      string `json:"check_out" validate:"required"`
	Guests        int    `json:"guests" validate:"required,min=1"`
	Rooms         int    `json:"rooms" validate:"omitempty,min=1"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type setStatusReq struct {
	Status string `json:"status"`
	Event  string `json:"event"`
}

// bookingResp is the wire shape of a booking: dates as YYYY-MM-DD and the
// total both in cents and as a decimal string.
type bookingResp struct {
	ID              string `json:"id"`
	HotelID         uint64 `json:"hotel_id"`
	UserID          uint64 `json:"user_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Nights          int    `json:"nights"`
	Guests          int    `json:"guests"`
	Rooms           int    `json:"rooms"`
	TotalPriceCents int64  `json:"total_price_cents"`
	TotalPrice      string `json:"total_price"`
	PaymentMethod   string `json:"payment_method"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:              b.ID,
		HotelID:         b.HotelID,
		UserID:          b.UserID,
		CheckIn:         b.CheckIn.Format(model.DateLayout),
		CheckOut:        b.CheckOut.Format(model.DateLayout),
		Nights:          b.Stay().Nights(),
		Guests:          b.Guests,
		Rooms:           b.Rooms,
		TotalPriceCents: b.TotalPriceCents,
		TotalPrice:      formatCents(b.TotalPriceCents),
		PaymentMethod:   b.PaymentMethod,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       b.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

func toPage(r reservation.Result[model.Booking]) reservation.Result[bookingResp] {
	items := make([]bookingResp, len(r.Items))
	for i := range r.Items {
		items[i] = toBookingResp(&r.Items[i])
	}
	return reservation.Result[bookingResp]{Items: items, Total: r.Total, Page: r.Page, PageCount: r.PageCount}
}

// pageQuery reads ?page=&limit=&sort=.  Malformed numbers fall back to
// the defaults.
func pageQuery(c echo.Context) reservation.Page {
	return reservation.Page{
		Page:  queryInt(c, "page"),
		Limit: queryInt(c, "limit"),
		Sort:  strings.TrimSpace(c.QueryParam("sort")),
	}
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	who, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be YYYY-MM-DD"})
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be YYYY-MM-DD"})
	}

	b, err := h.Coord.CreateBooking(c.Request().Context(), reservation.CreateRequest{
		HotelID:       req.HotelID,
		UserID:        who.UserID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		Guests:        req.Guests,
		Rooms:         req.Rooms,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Mine handles GET /v1/bookings/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	who, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Coord.ListBookingsForUser(c.Request().Context(), who.UserID, pageQuery(c))
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusOK, toPage(res))
}

// List handles GET /v1/bookings (admin).
func (h *BookingHandler) List(c echo.Context) error {
	res, err := h.Coord.ListAllBookings(c.Request().Context(), pageQuery(c))
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusOK, toPage(res))
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	who, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Coord.GetBooking(c.Request().Context(), c.Param("id"), who)
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel handles PATCH /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	who, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Coord.CancelBooking(c.Request().Context(), c.Param("id"), who)
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Pay handles POST /v1/bookings/:id/pay.  Payment is simulated: the call
// confirms a pending booking.
func (h *BookingHandler) Pay(c echo.Context) error {
	who, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Coord.ConfirmBooking(c.Request().Context(), c.Param("id"), who)
	if err != nil {
		return writeError(c, h.Log, err, true)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// SetStatus handles PUT /v1/bookings/:id/status (admin).  The body names
// either the target status or the lifecycle event to apply.
func (h *BookingHandler) SetStatus(c echo.Context) error {
	who, ok := actor(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var (
		ev  reservation.Event
		err error
	)
	switch {
	case req.Event != "":
		ev, err = reservation.ParseEvent(strings.TrimSpace(req.Event))
	case req.Status != "":
		ev, err = reservation.EventForStatus(model.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status or event is required"})
	}
	if err != nil {
		return writeError(c, h.Log, err, true)
	}

	b, err := h.Coord.SetStatus(c.Request().Context(), c.Param("id"), who, ev)
	if err != nil {
		return writeError(c, h.Log, err, true)
	}
	if b.Status == model.BookingCancelled {
		h.purge(c)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

func (h *BookingHandler) purge(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(context.WithoutCancel(c.Request().Context())); err != nil {
		h.Log.Warn("catalog cache purge failed", zap.Error(err))
	}
}

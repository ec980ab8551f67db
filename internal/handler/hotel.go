package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// hotelStore is the catalog persistence used by HotelHandler.
type hotelStore interface {
	GetHotel(ctx context.Context, id uint64) (*model.Hotel, error)
	List(ctx context.Context, q repository.HotelQuery) ([]model.Hotel, int, error)
	Create(ctx context.Context, h *model.Hotel) error
}

// HotelHandler serves the public catalog and the admin create route.
type HotelHandler struct {
	Hotels hotelStore
	Coord  *reservation.Coordinator
	Log    *zap.Logger
}

func NewHotelHandler(hotels hotelStore, coord *reservation.Coordinator, log *zap.Logger) *HotelHandler {
	return &HotelHandler{Hotels: hotels, Coord: coord, Log: log}
}

type createHotelReq struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Location     string  `json:"location" validate:"required,max=200"`
	Category     string  `json:"category" validate:"required"`
	Description  string  `json:"description" validate:"max=4000"`
	NightlyPrice float64 `json:"nightly_price" validate:"gte=0"`
	Rating       float64 `json:"rating" validate:"gte=0,lte=5"`
	TotalRooms   int     `json:"total_rooms" validate:"required,min=1"`
}

// queryInt parses an integer query parameter; 0 when absent or malformed.
func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	if err != nil {
		return 0
	}
	return n
}

// queryCents parses a decimal price parameter into cents.
func queryCents(c echo.Context, name string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(c.QueryParam(name)), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int64(f*100 + 0.5)
}

func hotelID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// List handles GET /v1/hotels?search=&location=&category=&min_price=&max_price=&page=&limit=&sort=.
func (h *HotelHandler) List(c echo.Context) error {
	q := repository.HotelQuery{
		Search:        strings.TrimSpace(c.QueryParam("search")),
		Location:      strings.TrimSpace(c.QueryParam("location")),
		Category:      strings.TrimSpace(c.QueryParam("category")),
		MinPriceCents: queryCents(c, "min_price"),
		MaxPriceCents: queryCents(c, "max_price"),
		Page:          queryInt(c, "page"),
		Limit:         queryInt(c, "limit"),
		Sort:          strings.TrimSpace(c.QueryParam("sort")),
	}
	items, total, err := h.Hotels.List(c.Request().Context(), q)
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	page := reservation.Page{Page: q.Page, Limit: q.Limit}
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = reservation.DefaultPageLimit
	}
	page.Limit = min(page.Limit, reservation.MaxPageLimit)
	return c.JSON(http.StatusOK, reservation.NewResult(items, total, page))
}

// Get handles GET /v1/hotels/:id.
func (h *HotelHandler) Get(c echo.Context) error {
	id, ok := hotelID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel id"})
	}
	hotel, err := h.Hotels.GetHotel(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusOK, hotel)
}

// Availability handles GET /v1/hotels/:id/availability?check_in=&check_out=&rooms=.
func (h *HotelHandler) Availability(c echo.Context) error {
	id, ok := hotelID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel id"})
	}
	checkIn, err := parseDate(c.QueryParam("check_in"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be YYYY-MM-DD"})
	}
	checkOut, err := parseDate(c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be YYYY-MM-DD"})
	}
	rooms := 1
	if c.QueryParam("rooms") != "" {
		rooms = queryInt(c, "rooms")
	}

	available, err := h.Coord.CheckAvailability(c.Request().Context(), id, checkIn, checkOut, rooms)
	if err != nil {
		return writeError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hotel_id":  id,
		"check_in":  checkIn.Format(model.DateLayout),
		"check_out": checkOut.Format(model.DateLayout),
		"rooms":     rooms,
		"available": available,
	})
}

// Create handles POST /v1/hotels (admin).
func (h *HotelHandler) Create(c echo.Context) error {
	var req createHotelReq
	if msg, ok := bindValid(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	category := ""
	for _, cat := range model.HotelCategories {
		if strings.EqualFold(cat, req.Category) {
			category = cat
		}
	}
	if category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category must be one of " + strings.Join(model.HotelCategories, ", ")})
	}

	hotel := &model.Hotel{
		Name:              strings.TrimSpace(req.Name),
		Location:          strings.TrimSpace(req.Location),
		Category:          category,
		Description:       strings.TrimSpace(req.Description),
		NightlyPriceCents: int64(req.NightlyPrice*100 + 0.5),
		Rating:            req.Rating,
		TotalRooms:        req.TotalRooms,
	}
	if err := h.Hotels.Create(c.Request().Context(), hotel); err != nil {
		return writeError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusCreated, hotel)
}

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

// HotelRepo provides catalog access to the hotels table.  Available rooms
// are never stored: every read derives them from the active bookings that
// cover the current night.
type HotelRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewHotelRepo returns a new HotelRepo bound to the given database.
func NewHotelRepo(db *sql.DB) *HotelRepo {
	return &HotelRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// HotelQuery defines filters and pagination for listing hotels.  Search
// matches name, location or description; prices are in cents and zero
// means unbounded.
type HotelQuery struct {
	Search        string
	Location      string
	Category      string
	MinPriceCents int64
	MaxPriceCents int64
	Page          int
	Limit         int
	Sort          string
}

func (q HotelQuery) normalize() HotelQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = reservation.DefaultPageLimit
	}
	if q.Limit > reservation.MaxPageLimit {
		q.Limit = reservation.MaxPageLimit
	}
	return q
}

var hotelSortColumns = map[string]string{
	"name":      "h.name",
	"price":     "h.price_cents",
	"rating":    "h.rating",
	"createdAt": "h.created_at",
}

// heldTonight sums the rooms held tonight; the two date arguments are the
// same calendar date.
const heldTonight = `(SELECT COALESCE(SUM(b.rooms), 0) FROM bookings b
	WHERE b.hotel_id = h.id AND b.status IN ('pending', 'confirmed')
	AND b.check_in <= ? AND b.check_out > ?)`

const hotelColumns = `h.id, h.name, h.location, h.category, COALESCE(h.description, ''),
	h.price_cents, h.rating, h.total_rooms, h.created_at, h.updated_at, ` + heldTonight

// GetHotel fetches a hotel by id.  It returns reservation.ErrHotelNotFound
// when no row matches.
func (r *HotelRepo) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	today := r.now().Format(model.DateLayout)
	row := r.db.QueryRowContext(ctx,
		`SELECT `+hotelColumns+` FROM hotels h WHERE h.id = ?`, today, today, id)
	h, err := scanHotel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reservation.ErrHotelNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return h, nil
}

// List returns one page of hotels matching q and the total match count.
func (r *HotelRepo) List(ctx context.Context, q HotelQuery) ([]model.Hotel, int, error) {
	q = q.normalize()
	where := []string{}
	args := []any{}

	if q.Search != "" {
		where = append(where, "(LOWER(h.name) LIKE ? OR LOWER(h.location) LIKE ? OR LOWER(h.description) LIKE ?)")
		like := "%" + strings.ToLower(q.Search) + "%"
		args = append(args, like, like, like)
	}
	if q.Location != "" {
		where = append(where, "LOWER(h.location) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Location)+"%")
	}
	if q.Category != "" {
		where = append(where, "h.category = ?")
		args = append(args, q.Category)
	}
	if q.MinPriceCents > 0 {
		where = append(where, "h.price_cents >= ?")
		args = append(args, q.MinPriceCents)
	}
	if q.MaxPriceCents > 0 {
		where = append(where, "h.price_cents <= ?")
		args = append(args, q.MaxPriceCents)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	sortKey, dir := q.Sort, "ASC"
	if strings.HasPrefix(sortKey, "-") {
		sortKey, dir = sortKey[1:], "DESC"
	}
	if sortKey == "" {
		sortKey, dir = "createdAt", "DESC"
	}
	column, ok := hotelSortColumns[sortKey]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown sort key %q", reservation.ErrInvalidRequest, q.Sort)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hotels h WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	today := r.now().Format(model.DateLayout)
	dataSQL := `SELECT ` + hotelColumns + `
		FROM hotels h
		WHERE ` + cond + `
		ORDER BY ` + column + ` ` + dir + `, h.id ASC
		LIMIT ? OFFSET ?`
	argsData := append([]any{today, today}, args...)
	argsData = append(argsData, q.Limit, (q.Page-1)*q.Limit)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	out := make([]model.Hotel, 0, max(q.Limit, 0))
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(err)
	}
	return out, total, nil
}

// Create inserts a hotel and populates its ID and timestamps.
func (r *HotelRepo) Create(ctx context.Context, h *model.Hotel) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO hotels (name, location, category, description, price_cents, rating, total_rooms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Name, h.Location, h.Category, h.Description, h.NightlyPriceCents, h.Rating, h.TotalRooms, now, now)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	h.AvailableRooms = h.TotalRooms
	h.CreatedAt, h.UpdatedAt = now, now
	return nil
}

func scanHotel(row rowScanner) (*model.Hotel, error) {
	var (
		h    model.Hotel
		held int
	)
	if err := row.Scan(
		&h.ID, &h.Name, &h.Location, &h.Category, &h.Description,
		&h.NightlyPriceCents, &h.Rating, &h.TotalRooms, &h.CreatedAt, &h.UpdatedAt, &held,
	); err != nil {
		return nil, err
	}
	h.AvailableRooms = reservation.AvailableRooms(h.TotalRooms, held)
	return &h, nil
}

var _ reservation.Catalog = (*HotelRepo)(nil)

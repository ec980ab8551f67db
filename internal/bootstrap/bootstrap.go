// Package bootstrap provisions a fresh deployment: the configured ADMIN
// account and, on request, a sample hotel catalog.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

type adminStore interface {
	EnsureAdmin(ctx context.Context, name, email, password string, cost int) error
}

type hotelStore interface {
	List(ctx context.Context, q repository.HotelQuery) ([]model.Hotel, int, error)
	Create(ctx context.Context, h *model.Hotel) error
}

// Admin upserts the configured admin account.  It is a no-op when no
// admin email is configured.
func Admin(ctx context.Context, users adminStore, cfg config.BootstrapConfig, bcryptCost int, log *zap.Logger) error {
	if cfg.AdminEmail == "" {
		log.Debug("no bootstrap admin configured")
		return nil
	}
	if err := users.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, bcryptCost); err != nil {
		return fmt.Errorf("ensure admin %s: %w", cfg.AdminEmail, err)
	}
	log.Info("admin account ready", zap.String("email", cfg.AdminEmail))
	return nil
}

// Hotels inserts SampleHotels when the catalog is empty and returns how
// many were created.  A catalog with any hotel is left untouched.
func Hotels(ctx context.Context, hotels hotelStore, log *zap.Logger) (int, error) {
	_, total, err := hotels.List(ctx, repository.HotelQuery{Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("count hotels: %w", err)
	}
	if total > 0 {
		log.Debug("catalog not empty, skipping seed", zap.Int("hotels", total))
		return 0, nil
	}

	created := 0
	for _, h := range SampleHotels() {
		if err := hotels.Create(ctx, &h); err != nil {
			return created, fmt.Errorf("seed hotel %q: %w", h.Name, err)
		}
		created++
	}
	log.Info("sample catalog seeded", zap.Int("hotels", created))
	return created, nil
}

// SampleHotels returns a small catalog covering every category.
func SampleHotels() []model.Hotel {
	return []model.Hotel{
		{Name: "Royal Palace Luxury Hotel", Location: "Paris, France", Category: "Luxury", NightlyPriceCents: 85000, Rating: 4.9, TotalRooms: 200,
			Description: "Five-star elegance in the heart of Paris with Eiffel Tower views."},
		{Name: "Imperial Vienna Grand Hotel", Location: "Vienna, Austria", Category: "Luxury", NightlyPriceCents: 72000, Rating: 4.9, TotalRooms: 150,
			Description: "Historic imperial architecture in Vienna's cultural centre."},
		{Name: "Ocean View Paradise Resort", Location: "Maldives", Category: "Resort", NightlyPriceCents: 95000, Rating: 4.9, TotalRooms: 100,
			Description: "Overwater villas on a private island lagoon."},
		{Name: "Mountain Retreat Lodge", Location: "Swiss Alps, Switzerland", Category: "Resort", NightlyPriceCents: 68000, Rating: 4.9, TotalRooms: 85,
			Description: "Alpine lodge with ski access and a mountain spa."},
		{Name: "City Lights Grand Hotel", Location: "Manhattan, New York", Category: "Business", NightlyPriceCents: 45000, Rating: 4.8, TotalRooms: 200,
			Description: "Midtown business hotel with conference facilities."},
		{Name: "Tokyo Skyline Tower", Location: "Shibuya, Tokyo", Category: "Business", NightlyPriceCents: 38000, Rating: 4.9, TotalRooms: 180,
			Description: "High-rise rooms above Shibuya with a 24-hour business centre."},
		{Name: "Amsterdam Canal House", Location: "Amsterdam, Netherlands", Category: "Boutique", NightlyPriceCents: 32000, Rating: 4.7, TotalRooms: 45,
			Description: "Restored seventeenth-century canal house."},
		{Name: "Barcelona Gothic Quarter Inn", Location: "Barcelona, Spain", Category: "Boutique", NightlyPriceCents: 29000, Rating: 4.8, TotalRooms: 38,
			Description: "Small inn in the medieval streets of the Gothic Quarter."},
		{Name: "Miami Beach Luxury Resort", Location: "Miami Beach, Florida", Category: "Beach", NightlyPriceCents: 38000, Rating: 4.7, TotalRooms: 120,
			Description: "Oceanfront resort on South Beach."},
		{Name: "Bali Tropical Paradise", Location: "Ubud, Bali", Category: "Beach", NightlyPriceCents: 28000, Rating: 4.9, TotalRooms: 55,
			Description: "Jungle villas with private pools near Ubud."},
		{Name: "Singapore Marina Bay Hotel", Location: "Marina Bay, Singapore", Category: "Urban", NightlyPriceCents: 49000, Rating: 4.9, TotalRooms: 250,
			Description: "Waterfront tower overlooking Marina Bay."},
		{Name: "Berlin Modern Design Hotel", Location: "Berlin, Germany", Category: "Urban", NightlyPriceCents: 31000, Rating: 4.7, TotalRooms: 95,
			Description: "Design hotel in Mitte close to galleries and nightlife."},
	}
}

package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names in error messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// bindValid binds the request into req and validates it.  It returns a
// message fit for a 400 response.
func bindValid(c echo.Context, req interface{}) (string, bool) {
	if err := c.Bind(req); err != nil {
		return "invalid body", false
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fe.Field() + " failed " + fe.Tag() + " validation", false
		}
		return err.Error(), false
	}
	return "", true
}

// parseDate reads a YYYY-MM-DD date.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, strings.TrimSpace(s), time.UTC)
}

// actor builds the caller identity set by JWTAuth.
func actor(c echo.Context) (reservation.Actor, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return reservation.Actor{}, false
	}
	return reservation.Actor{UserID: id, Role: middleware.Role(c)}, true
}

// errorStatus maps reservation errors to HTTP status codes.  conflictOnTransition
// selects 409 over 500 for ErrInvalidTransition where the caller picked the
// event.
func errorStatus(err error, conflictOnTransition bool) int {
	switch {
	case errors.Is(err, reservation.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, reservation.ErrHotelNotFound), errors.Is(err, reservation.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, reservation.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, reservation.ErrInsufficientCapacity), errors.Is(err, reservation.ErrAlreadyCancelled):
		return http.StatusConflict
	case errors.Is(err, reservation.ErrInvalidTransition) && conflictOnTransition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError answers err as {"error": ...}.  Internal errors are logged and
// replaced by a generic message.
func writeError(c echo.Context, log *zap.Logger, err error, conflictOnTransition bool) error {
	status := errorStatus(err, conflictOnTransition)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("route", c.Path()),
			zap.Error(err),
		)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

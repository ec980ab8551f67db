package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// subjectKey identifies the caller for rate limiting: the user ID when a
// token was accepted, "anon" otherwise.
func subjectKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}

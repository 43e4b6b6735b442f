package middleware

// identity.go holds helpers shared between middleware files.  The rate
// limiter keys buckets per caller, so it needs a stable identity string
// even for unauthenticated requests.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated caller's id from context, or
// "anon" when the request carries no usable identity.  JWTAuth stores
// claims as their raw JSON types, so both string and numeric subjects
// are handled.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return "anon"
}

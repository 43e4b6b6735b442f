package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Role names carried in the JWT "role" claim.
const (
	RoleAdmin    = "ADMIN"
	RoleStaff    = "STAFF"
	RoleCustomer = "CUSTOMER"
)

// claimUint64 reads a numeric identity claim stashed in the echo
// context by the JWT middleware.  JSON numbers arrive as float64 and
// some token issuers encode ids as strings; both are accepted.  Zero
// means the claim is absent.
func claimUint64(c echo.Context, key string) uint64 {
	switch v := c.Get(key).(type) {
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// roleOf returns the caller's role claim, or "" when unauthenticated.
func roleOf(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

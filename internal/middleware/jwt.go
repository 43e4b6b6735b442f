package middleware // reusable HTTP middleware shared by all routes

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the caller's identity claims into the request
// context.  Tokens are minted by the external auth service with the
// shared secret; this service only verifies them.  Downstream
// handlers read the identity via c.Get("user_id"), c.Get("role"),
// c.Get("staff_id") and c.Get("customer_id").
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid Authorization header is "Bearer <token>".
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; reject any token signed
			// with a different algorithm.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// Stash the identity claims for handlers.  staff_id is set
			// for STAFF/ADMIN tokens, customer_id for CUSTOMER tokens;
			// either may be absent and handlers decide what that means.
			c.Set("user_id", claims["sub"])
			c.Set("role", claims["role"])
			c.Set("staff_id", claims["staff_id"])
			c.Set("customer_id", claims["customer_id"])
			return next(c)
		}
	}
}

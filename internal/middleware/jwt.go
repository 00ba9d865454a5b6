package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

var (
	errNoBearer      = errors.New("missing bearer token")
	errInvalidToken  = errors.New("invalid token")
	errInvalidClaims = errors.New("invalid claims")
)

// Claims are the values the application reads from an access token.
type Claims struct {
	UserID string
	Role   string
	Email  string
}

// ParseBearer validates an Authorization header value of the form
// "Bearer <jwt>" and returns its claims.  Only HMAC-signed tokens are
// accepted.
func ParseBearer(secret, header string) (Claims, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return Claims{}, errNoBearer
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, errInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errInvalidClaims
	}
	var cl Claims
	cl.UserID, _ = mc["sub"].(string)
	cl.Role, _ = mc["role"].(string)
	cl.Email, _ = mc["email"].(string)
	if cl.UserID == "" {
		return Claims{}, errInvalidClaims
	}
	return cl, nil
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject, role and email claims into the request
// context.  The provided secret must match the one used when issuing tokens.
// Handlers read the values back with UserID, Role and Email.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, err := ParseBearer(secret, c.Request().Header.Get("Authorization"))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
			}
			c.Set(CtxUserID, cl.UserID)
			c.Set(CtxRole, cl.Role)
			c.Set(CtxEmail, cl.Email)
			return next(c)
		}
	}
}

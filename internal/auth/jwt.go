// Package auth verifies gateway-issued JWT access tokens and extracts the caller identity.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// ErrNoIdentity is returned when the request context carries no verified identity.
var ErrNoIdentity = errors.New("no identity in request context")

// JWTMiddleware returns Echo middleware that verifies HS256 bearer tokens
// signed with secret. Requests matched by skip bypass verification.
func JWTMiddleware(secret string, skip func(c echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper:    skip,
		SigningKey: []byte(secret),
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		},
	})
}

// UserIDFromContext returns the identity id (JWT subject) of the authenticated caller.
func UserIDFromContext(c echo.Context) (string, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return "", echo.NewHTTPError(http.StatusUnauthorized, ErrNoIdentity.Error())
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, ErrNoIdentity.Error())
	}
	return subject, nil
}

// BearerToken returns the raw bearer token from the Authorization header, or "".
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// GenerateToken mints an HS256 access token for the given identity id.
// Production tokens come from the authentication gateway; this is used by
// local development tooling and tests.
func GenerateToken(userID, secret string, expiresIn time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openfolio/openfolio/internal/profiles"
	"github.com/openfolio/openfolio/internal/ratelimit"
)

// UsernameChecker answers handle existence queries.
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// UsernameHandler serves the public handle availability check, throttled
// per client IP.
type UsernameHandler struct {
	limiter *ratelimit.Limiter
	store   UsernameChecker
	logger  *slog.Logger
}

// AvailabilityResponse is the body of a successful availability check.
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// NewUsernameHandler creates a username availability handler.
func NewUsernameHandler(log *slog.Logger, limiter *ratelimit.Limiter, store UsernameChecker) *UsernameHandler {
	return &UsernameHandler{
		limiter: limiter,
		store:   store,
		logger:  log.With(slog.String("handler", "username")),
	}
}

// Register mounts GET /username/availability on the Echo instance.
func (h *UsernameHandler) Register(e *echo.Echo) {
	e.GET("/username/availability", h.Availability)
}

// Availability reports whether a handle is free to claim. Format validation
// runs before any storage access, and the whole endpoint sits behind the
// fixed-window limiter.
func (h *UsernameHandler) Availability(c echo.Context) error {
	if h.store == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "profile store not configured")
	}
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
	}

	username := strings.TrimSpace(c.QueryParam("username"))
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}
	if err := profiles.ValidateUsername(username); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	exists, err := h.store.UsernameExists(c.Request().Context(), username)
	if err != nil {
		h.logger.Error("availability lookup failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "error checking username availability")
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{Available: !exists})
}

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openfolio/openfolio/internal/auth"
	"github.com/openfolio/openfolio/internal/profiles"
	"github.com/openfolio/openfolio/internal/signup"
)

// ProfileRepairer recreates a profile for an identity that lost its row to
// a partial signup failure.
type ProfileRepairer interface {
	EnsureProfile(ctx context.Context, identityID string, req signup.EnsureRequest) (profiles.Profile, error)
}

// ProfilesHandler serves profile reads and owner-only mutation.
type ProfilesHandler struct {
	store    profiles.Store
	repairer ProfileRepairer
	logger   *slog.Logger
}

// NewProfilesHandler creates a profiles handler.
func NewProfilesHandler(log *slog.Logger, store profiles.Store, repairer ProfileRepairer) *ProfilesHandler {
	return &ProfilesHandler{
		store:    store,
		repairer: repairer,
		logger:   log.With(slog.String("handler", "profiles")),
	}
}

// Register mounts the profile routes on the Echo instance.
func (h *ProfilesHandler) Register(e *echo.Echo) {
	e.GET("/profile/me", h.GetOwn)
	e.PUT("/profile/me", h.UpdateOwn)
	e.POST("/profile", h.Create)
	e.GET("/profile/:username", h.Get)
	e.PUT("/profile/:username", h.Update)
}

// Get returns the public profile for a handle. A miss answers 404 with
// {"available": true}, which callers use as a claim signal.
func (h *ProfilesHandler) Get(c echo.Context) error {
	if h.store == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "profile store not configured")
	}
	username := strings.TrimSpace(c.Param("username"))
	profile, err := h.store.GetByUsername(c.Request().Context(), username)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			return c.JSON(http.StatusNotFound, AvailabilityResponse{Available: true})
		}
		h.logger.Error("profile lookup failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "error loading profile")
	}
	return c.JSON(http.StatusOK, profile)
}

// GetOwn returns the caller's profile. A 404 here means the identity exists
// without a profile, the signal that reconciliation is needed.
func (h *ProfilesHandler) GetOwn(c echo.Context) error {
	if h.store == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "profile store not configured")
	}
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	profile, err := h.store.GetByID(c.Request().Context(), callerID)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		h.logger.Error("own profile lookup failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "error loading profile")
	}
	return c.JSON(http.StatusOK, profile)
}

// Update applies a partial update to the profile at a handle when the
// caller owns it. Absent profiles and profiles owned by someone else get
// the same opaque answer.
func (h *ProfilesHandler) Update(c echo.Context) error {
	if h.store == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "profile store not configured")
	}
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var patch profiles.UpdatePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	username := strings.TrimSpace(c.Param("username"))
	profile, err := h.store.UpdateOwned(c.Request().Context(), username, callerID, patch)
	if err != nil {
		return h.updateError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateOwn applies a partial update to the caller's own profile.
func (h *ProfilesHandler) UpdateOwn(c echo.Context) error {
	if h.store == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "profile store not configured")
	}
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var patch profiles.UpdatePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	profile, err := h.store.UpdateOwnedByID(c.Request().Context(), callerID, patch)
	if err != nil {
		return h.updateError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Create builds the caller's missing profile, the repair path after a
// partial signup failure.
func (h *ProfilesHandler) Create(c echo.Context) error {
	if h.repairer == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "signup service not configured")
	}
	callerID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	var req signup.EnsureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	profile, err := h.repairer.EnsureProfile(c.Request().Context(), callerID, req)
	if err != nil {
		switch {
		case errors.Is(err, signup.ErrProfileExists):
			return echo.NewHTTPError(http.StatusConflict, "profile already exists")
		case errors.Is(err, signup.ErrMissingFields),
			errors.Is(err, profiles.ErrInvalidUsername):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, profiles.ErrUsernameTaken):
			return echo.NewHTTPError(http.StatusConflict, "username is already taken")
		default:
			h.logger.Error("profile repair failed", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusInternalServerError, "error creating profile")
		}
	}
	return c.JSON(http.StatusCreated, profile)
}

// updateError keeps mutation failures opaque: a caller cannot tell an
// unowned handle from an unclaimed one.
func (h *ProfilesHandler) updateError(err error) error {
	if errors.Is(err, profiles.ErrNotPermitted) {
		return echo.NewHTTPError(http.StatusNotFound, "not permitted")
	}
	h.logger.Error("profile update failed", slog.Any("error", err))
	return echo.NewHTTPError(http.StatusInternalServerError, "error updating profile")
}

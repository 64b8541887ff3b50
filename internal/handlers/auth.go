package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openfolio/openfolio/internal/auth"
	"github.com/openfolio/openfolio/internal/gateway"
	"github.com/openfolio/openfolio/internal/profiles"
	"github.com/openfolio/openfolio/internal/signup"
	"github.com/openfolio/openfolio/internal/verification"
)

// SignupService orchestrates account creation.
type SignupService interface {
	SignUp(ctx context.Context, req signup.Request) (signup.Result, error)
}

// VerificationService drives OTP confirmation and password reset.
type VerificationService interface {
	ConfirmSignup(ctx context.Context, email, code string) (gateway.Session, error)
	RequestReset(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, email, code string) (gateway.Session, error)
	CompleteReset(ctx context.Context, accessToken, newPassword string) error
}

// AuthHandler serves signup, signup verification, and password reset flows.
type AuthHandler struct {
	signup       SignupService
	verification VerificationService
	siteBaseURL  string
	logger       *slog.Logger
}

// NewAuthHandler creates an auth flow handler.
func NewAuthHandler(log *slog.Logger, signupService SignupService, verificationService VerificationService, siteBaseURL string) *AuthHandler {
	return &AuthHandler{
		signup:       signupService,
		verification: verificationService,
		siteBaseURL:  strings.TrimRight(siteBaseURL, "/"),
		logger:       log.With(slog.String("handler", "auth")),
	}
}

// Register mounts the signup and password-reset routes on the Echo instance.
func (h *AuthHandler) Register(e *echo.Echo) {
	e.POST("/signup", h.SignUp)
	e.POST("/verify-signup", h.VerifySignup)
	e.POST("/password/forgot", h.ForgotPassword)
	e.POST("/password/verify-otp", h.VerifyResetOTP)
	e.POST("/password/reset", h.ResetPassword)
}

// SignupResponse summarizes a created identity and profile.
type SignupResponse struct {
	Message string `json:"message"`
	User    struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
	} `json:"user"`
}

// SignUp creates an identity and its profile in one request.
func (h *AuthHandler) SignUp(c echo.Context) error {
	if h.signup == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "signup service not configured")
	}
	var req signup.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.signup.SignUp(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, signup.ErrMissingFields),
			errors.Is(err, profiles.ErrInvalidUsername):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, profiles.ErrUsernameTaken):
			return echo.NewHTTPError(http.StatusConflict, "username is already taken")
		case errors.Is(err, gateway.ErrEmailTaken),
			errors.Is(err, gateway.ErrWeakPassword):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, gateway.ErrUnavailable):
			return echo.NewHTTPError(http.StatusBadGateway, "authentication service unavailable, please retry")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "signup failed")
		}
	}

	resp := SignupResponse{Message: "signup successful, check your email for the verification code"}
	resp.User.ID = result.Identity.ID
	resp.User.Email = result.Identity.Email
	resp.User.Username = result.Profile.Username
	resp.User.FullName = result.Profile.FullName
	return c.JSON(http.StatusCreated, resp)
}

type verifySignupRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// VerifyResponse is the body of a successful OTP verification.
type VerifyResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
	RedirectTo  string `json:"redirect_to,omitempty"`
}

// VerifySignup checks the signup OTP and activates the pending identity.
func (h *AuthHandler) VerifySignup(c echo.Context) error {
	if h.verification == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "verification service not configured")
	}
	var req verifySignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.verification.ConfirmSignup(c.Request().Context(), req.Email, req.Token)
	if err != nil {
		return h.verificationError(err)
	}
	return c.JSON(http.StatusOK, VerifyResponse{
		Message:     "email verified successfully",
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
		ExpiresIn:   session.ExpiresIn,
		RedirectTo:  h.siteBaseURL + "/profile/me",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts the reset flow. The response body is identical for
// known and unknown addresses.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	if h.verification == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "verification service not configured")
	}
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.verification.RequestReset(c.Request().Context(), req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "check your email for the reset instructions",
	})
}

type verifyResetRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyResetOTP checks the recovery OTP and hands back the short-lived
// session that authorizes the password replacement step.
func (h *AuthHandler) VerifyResetOTP(c echo.Context) error {
	if h.verification == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "verification service not configured")
	}
	var req verifyResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.verification.VerifyResetOTP(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return h.verificationError(err)
	}
	return c.JSON(http.StatusOK, VerifyResponse{
		Message:     "code verified, you can now reset your password",
		AccessToken: session.AccessToken,
		TokenType:   session.TokenType,
		ExpiresIn:   session.ExpiresIn,
	})
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ResetPassword replaces the password using the OTP-bound session from the
// Authorization header, then forces sign-out of that session.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	if h.verification == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "verification service not configured")
	}
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Password != req.ConfirmPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "passwords do not match")
	}

	token := auth.BearerToken(c)
	if err := h.verification.CompleteReset(c.Request().Context(), token, req.Password); err != nil {
		return h.verificationError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "password updated, please sign in again",
	})
}

// verificationError maps verification flow failures to HTTP errors.
func (h *AuthHandler) verificationError(err error) error {
	switch {
	case errors.Is(err, verification.ErrMissingEmail),
		errors.Is(err, verification.ErrMissingCode),
		errors.Is(err, verification.ErrMissingPassword),
		errors.Is(err, verification.ErrMissingSession),
		errors.Is(err, gateway.ErrWeakPassword):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrInvalidOTP):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	case errors.Is(err, gateway.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "session is invalid or expired")
	case errors.Is(err, gateway.ErrUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "authentication service unavailable, please retry")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "verification failed")
	}
}

// Package gateway is the REST client for the external authentication
// provider. The provider owns credentials, sessions, and OTP issuance; this
// client never reimplements any of that, it only calls and maps errors.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openfolio/openfolio/internal/config"
)

// Errors mapped from gateway responses.
var (
	ErrEmailTaken   = errors.New("email is already registered")
	ErrWeakPassword = errors.New("password does not meet requirements")
	ErrInvalidOTP   = errors.New("invalid or expired code")
	ErrUnauthorized = errors.New("gateway rejected credentials")
	// ErrUnavailable marks retryable upstream failures (5xx, transport).
	ErrUnavailable = errors.New("authentication gateway unavailable")
)

// Client talks to a GoTrue-compatible authentication endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a gateway client from config. The configured timeout
// bounds every call in addition to the caller's context deadline.
func NewClient(log *slog.Logger, cfg config.GatewayConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  log.With(slog.String("service", "gateway")),
	}
}

// SignUp creates a new identity for email and password. The identity starts
// unverified; the gateway emails the signup OTP.
func (c *Client) SignUp(ctx context.Context, email, password string) (Identity, error) {
	var identity Identity
	err := c.do(ctx, http.MethodPost, "/signup", "", signUpRequest{Email: email, Password: password}, &identity)
	if err != nil {
		return Identity{}, err
	}
	if identity.ID == "" {
		return Identity{}, fmt.Errorf("%w: signup returned no identity", ErrUnavailable)
	}
	return identity, nil
}

// VerifyOTP checks a one-time code against the identity registered for
// email. On success the gateway returns a session; on failure the identity
// state is unchanged and the code may be retried.
func (c *Client) VerifyOTP(ctx context.Context, otpType OTPType, email, token string) (Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/verify", "", verifyRequest{Type: otpType, Email: email, Token: token}, &resp)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}, nil
}

// Recover asks the gateway to email a password-reset OTP.
func (c *Client) Recover(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", "", recoverRequest{Email: email}, nil)
}

// UpdatePassword replaces the password of the identity bound to accessToken.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/user", accessToken, updateUserRequest{Password: newPassword}, nil)
}

// SignOut revokes the session bound to accessToken so replaced credentials
// cannot be reused.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
		return nil
	}

	return c.mapError(path, resp)
}

// mapError folds gateway error responses into sentinel errors by status and
// endpoint, keeping the provider's message for logs only.
func (c *Client) mapError(path string, resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)
	msg := body.message()

	c.logger.Warn("gateway error",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("msg", msg),
	)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	switch path {
	case "/signup":
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "already registered"), strings.Contains(lower, "already exists"):
			return ErrEmailTaken
		case strings.Contains(lower, "password"):
			return fmt.Errorf("%w: %s", ErrWeakPassword, msg)
		}
	case "/verify":
		return ErrInvalidOTP
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("gateway: %s", msg)
}

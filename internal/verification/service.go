// Package verification drives claimed identities through OTP confirmation,
// for both signup activation and password reset. All code checking happens
// at the authentication gateway; this service owns the flow ordering.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openfolio/openfolio/internal/gateway"
)

// Errors returned by verification flows.
var (
	ErrMissingEmail    = errors.New("email is required")
	ErrMissingCode     = errors.New("verification code is required")
	ErrMissingPassword = errors.New("password is required")
	ErrMissingSession  = errors.New("reset session is required")
)

// Gateway is the slice of the authentication gateway the flows need.
type Gateway interface {
	VerifyOTP(ctx context.Context, otpType gateway.OTPType, email, token string) (gateway.Session, error)
	Recover(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
	SignOut(ctx context.Context, accessToken string) error
}

// Service executes the verification state machine against the gateway.
type Service struct {
	gateway Gateway
	logger  *slog.Logger
}

// NewService creates a verification service.
func NewService(log *slog.Logger, gw Gateway) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		gateway: gw,
		logger:  log.With(slog.String("service", "verification")),
	}
}

// ConfirmSignup moves a pending identity to verified by checking the signup
// OTP. On failure the identity stays pending and the caller may retry;
// codes are not consumed by failed attempts.
func (s *Service) ConfirmSignup(ctx context.Context, email, code string) (gateway.Session, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" {
		return gateway.Session{}, ErrMissingEmail
	}
	if code == "" {
		return gateway.Session{}, ErrMissingCode
	}

	session, err := s.gateway.VerifyOTP(ctx, gateway.OTPTypeSignup, email, code)
	if err != nil {
		return gateway.Session{}, err
	}
	s.logTransition(StatePending, StateVerified, session.User.ID)
	return session, nil
}

// RequestReset starts the password-reset flow by asking the gateway to mail
// an OTP. Gateway errors are swallowed after logging so that the response
// shape never reveals whether an account exists for the address.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingEmail
	}
	if err := s.gateway.Recover(ctx, email); err != nil {
		s.logger.Warn("reset request failed", slog.Any("error", err))
		return nil
	}
	s.logger.Info("reset requested", slog.String("state", string(StateResetRequested)))
	return nil
}

// VerifyResetOTP checks the recovery OTP and returns the short-lived session
// that authorizes the password replacement step. A failed check leaves the
// flow in ResetRequested; the caller may retry with a fresh code.
func (s *Service) VerifyResetOTP(ctx context.Context, email, code string) (gateway.Session, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" {
		return gateway.Session{}, ErrMissingEmail
	}
	if code == "" {
		return gateway.Session{}, ErrMissingCode
	}

	session, err := s.gateway.VerifyOTP(ctx, gateway.OTPTypeRecovery, email, code)
	if err != nil {
		return gateway.Session{}, err
	}
	s.logTransition(StateResetRequested, StateOtpVerified, session.User.ID)
	return session, nil
}

// CompleteReset sets the new password through the OTP-bound session and then
// terminates that session so the old credential cannot be reused. A sign-out
// failure does not undo the completed reset; it is logged and dropped.
func (s *Service) CompleteReset(ctx context.Context, accessToken, newPassword string) error {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return ErrMissingSession
	}
	if strings.TrimSpace(newPassword) == "" {
		return ErrMissingPassword
	}

	if err := s.gateway.UpdatePassword(ctx, accessToken, newPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.gateway.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("post-reset sign-out failed", slog.Any("error", err))
	}
	s.logTransition(StateOtpVerified, StatePasswordUpdated, "")
	return nil
}

func (s *Service) logTransition(from, to State, identityID string) {
	if !from.CanTransition(to) {
		// Transition table and flow code drifting apart is a programming
		// error worth surfacing loudly in logs.
		s.logger.Error("illegal verification transition",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		return
	}
	attrs := []any{
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	}
	if identityID != "" {
		attrs = append(attrs, slog.String("identity_id", identityID))
	}
	s.logger.Info("verification transition", attrs...)
}

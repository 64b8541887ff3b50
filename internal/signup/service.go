// Package signup coordinates username reservation, identity creation at the
// authentication gateway, and profile persistence into one logically atomic
// account creation.
package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/openfolio/openfolio/internal/gateway"
	"github.com/openfolio/openfolio/internal/profiles"
)

// Errors returned by signup orchestration.
var (
	ErrMissingFields = errors.New("email, password, full name and username are required")
	ErrProfileExists = errors.New("profile already exists")
	// ErrPartialProvisioning marks the window where the identity exists but
	// the profile write failed. The wrapped cause is for logs; a client
	// retry of the same signup is safe because the profile write is an
	// upsert keyed by identity id.
	ErrPartialProvisioning = errors.New("identity created but profile provisioning failed")
)

// Gateway is the slice of the authentication gateway the orchestrator needs.
type Gateway interface {
	SignUp(ctx context.Context, email, password string) (gateway.Identity, error)
}

// ProfileStore is the slice of the profile store the orchestrator needs.
type ProfileStore interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	Upsert(ctx context.Context, params profiles.CreateParams) (profiles.Profile, error)
	GetByID(ctx context.Context, id string) (profiles.Profile, error)
}

// Request carries the four signup inputs.
type Request struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

// Result is a successful signup: the new identity and its profile.
type Result struct {
	Identity gateway.Identity
	Profile  profiles.Profile
}

// Service orchestrates account creation across the gateway and the store.
type Service struct {
	gateway Gateway
	store   ProfileStore
	logger  *slog.Logger
}

// NewService creates a signup orchestrator.
func NewService(log *slog.Logger, gw Gateway, store ProfileStore) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		gateway: gw,
		store:   store,
		logger:  log.With(slog.String("service", "signup")),
	}
}

// SignUp runs the provisioning sequence. Validation and the username
// pre-check cause no side effects; gateway failures leave no profile
// behind; a profile failure after identity creation returns
// ErrPartialProvisioning and is safe to retry with the same input.
func (s *Service) SignUp(ctx context.Context, req Request) (Result, error) {
	email := strings.TrimSpace(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	username := strings.TrimSpace(req.Username)
	if email == "" || req.Password == "" || fullName == "" || username == "" {
		return Result{}, ErrMissingFields
	}
	if err := profiles.ValidateUsername(username); err != nil {
		return Result{}, err
	}

	// Fast-path rejection; the unique constraint on the store remains the
	// arbiter when two signups race past this read.
	taken, err := s.store.UsernameExists(ctx, username)
	if err != nil {
		return Result{}, fmt.Errorf("username check: %w", err)
	}
	if taken {
		return Result{}, profiles.ErrUsernameTaken
	}

	identity, err := s.gateway.SignUp(ctx, email, req.Password)
	if err != nil {
		return Result{}, err
	}

	profile, err := s.store.Upsert(ctx, profiles.CreateParams{
		ID:       identity.ID,
		Username: username,
		FullName: fullName,
	})
	if err != nil {
		if errors.Is(err, profiles.ErrUsernameTaken) {
			// Lost the race after identity creation. The identity is left
			// behind for reconciliation under a different handle.
			s.logger.Warn("username raced during provisioning",
				slog.String("identity_id", identity.ID),
				slog.String("username", username),
			)
			return Result{}, profiles.ErrUsernameTaken
		}
		s.logger.Error("partial provisioning",
			slog.String("identity_id", identity.ID),
			slog.String("username", username),
			slog.Any("error", err),
		)
		return Result{}, fmt.Errorf("%w: %v", ErrPartialProvisioning, err)
	}

	return Result{Identity: identity, Profile: profile}, nil
}

// EnsureRequest carries the repair-path profile fields.
type EnsureRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	Website  string `json:"website"`
}

// EnsureProfile creates the missing profile for an already-authenticated
// identity, the repair path for partial provisioning. Returns
// ErrProfileExists when there is nothing to repair. When no username is
// supplied one is derived from the identity id.
func (s *Service) EnsureProfile(ctx context.Context, identityID string, req EnsureRequest) (profiles.Profile, error) {
	if _, err := s.store.GetByID(ctx, identityID); err == nil {
		return profiles.Profile{}, ErrProfileExists
	} else if !errors.Is(err, profiles.ErrNotFound) {
		return profiles.Profile{}, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = deriveUsername(identityID)
	}
	if err := profiles.ValidateUsername(username); err != nil {
		return profiles.Profile{}, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return profiles.Profile{}, ErrMissingFields
	}

	return s.store.Upsert(ctx, profiles.CreateParams{
		ID:       identityID,
		Username: username,
		FullName: fullName,
		Bio:      req.Bio,
		Website:  req.Website,
	})
}

// deriveUsername builds a deterministic fallback handle from an identity id.
func deriveUsername(identityID string) string {
	parsed, err := uuid.Parse(strings.TrimSpace(identityID))
	if err != nil {
		return ""
	}
	return "user-" + strings.ReplaceAll(parsed.String(), "-", "")[:8]
}

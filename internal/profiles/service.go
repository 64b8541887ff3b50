// Package profiles manages the user profile store: uniqueness of handles,
// ownership-checked mutation, and the bio sanitization gate.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfolio/openfolio/internal/db"
	"github.com/openfolio/openfolio/internal/sanitize"
)

// Errors returned by profile operations.
var (
	ErrNotFound      = errors.New("profile not found")
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrNotPermitted covers both a missing profile and a caller that does
	// not own it; the two cases are indistinguishable to callers.
	ErrNotPermitted = errors.New("not permitted")
)

// Service is the PostgreSQL-backed profile store.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a profile store backed by the given pool.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "profiles")),
	}
}

const profileColumns = "id, username, full_name, bio, website, avatar_url, created_at, updated_at"

// GetByUsername returns the profile owning the given handle.
func (s *Service) GetByUsername(ctx context.Context, username string) (Profile, error) {
	if s.pool == nil {
		return Profile{}, errors.New("profile pool not configured")
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE username = $1",
		strings.TrimSpace(username),
	)
	return scanProfile(row)
}

// GetByID returns the profile owned by the given identity id.
func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	if s.pool == nil {
		return Profile{}, errors.New("profile pool not configured")
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Profile{}, err
	}
	row := s.pool.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1",
		pgID,
	)
	return scanProfile(row)
}

// UsernameExists reports whether a profile already holds the handle.
// Storage failures propagate; a miss is not an error.
func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	if s.pool == nil {
		return false, errors.New("profile pool not configured")
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM profiles WHERE username = $1)",
		strings.TrimSpace(username),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("username lookup: %w", err)
	}
	return exists, nil
}

// Upsert creates the profile row for an identity, or refreshes its display
// fields when the row already exists. Keyed by identity id so a retry after
// a partial signup failure is safe. The username unique constraint is the
// arbiter for handle reservation; a violation surfaces as ErrUsernameTaken.
func (s *Service) Upsert(ctx context.Context, params CreateParams) (Profile, error) {
	if s.pool == nil {
		return Profile{}, errors.New("profile pool not configured")
	}
	pgID, err := db.ParseUUID(params.ID)
	if err != nil {
		return Profile{}, err
	}
	username := strings.TrimSpace(params.Username)
	if err := ValidateUsername(username); err != nil {
		return Profile{}, err
	}
	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		return Profile{}, errors.New("full name is required")
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, username, full_name, bio, website)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   full_name = EXCLUDED.full_name,
		   bio = EXCLUDED.bio,
		   website = EXCLUDED.website,
		   updated_at = now()
		 RETURNING `+profileColumns,
		pgID,
		username,
		fullName,
		db.TextFromString(sanitize.Bio(params.Bio)),
		db.TextFromString(params.Website),
	)
	profile, err := scanProfile(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Profile{}, ErrUsernameTaken
		}
		return Profile{}, err
	}
	return profile, nil
}

// UpdateOwned applies a partial update to the profile at username, only when
// callerID owns it. Ownership is enforced inside the UPDATE statement itself
// so there is no window between check and write. Zero matched rows means the
// profile is absent or not owned by the caller; both return ErrNotPermitted.
func (s *Service) UpdateOwned(ctx context.Context, username, callerID string, patch UpdatePatch) (Profile, error) {
	if s.pool == nil {
		return Profile{}, errors.New("profile pool not configured")
	}
	pgID, err := db.ParseUUID(callerID)
	if err != nil {
		return Profile{}, ErrNotPermitted
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE profiles SET
		   full_name = COALESCE($3, full_name),
		   bio = COALESCE($4, bio),
		   website = COALESCE($5, website),
		   avatar_url = COALESCE($6, avatar_url),
		   updated_at = now()
		 WHERE username = $1 AND id = $2
		 RETURNING `+profileColumns,
		strings.TrimSpace(username),
		pgID,
		db.TextFromPtr(patch.FullName),
		db.TextFromPtr(sanitizeBioPtr(patch.Bio)),
		db.TextFromPtr(patch.Website),
		db.TextFromPtr(patch.AvatarURL),
	)
	profile, err := scanProfile(row)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, ErrNotPermitted
	}
	return profile, err
}

// UpdateOwnedByID applies a partial update to the caller's own profile.
func (s *Service) UpdateOwnedByID(ctx context.Context, callerID string, patch UpdatePatch) (Profile, error) {
	if s.pool == nil {
		return Profile{}, errors.New("profile pool not configured")
	}
	pgID, err := db.ParseUUID(callerID)
	if err != nil {
		return Profile{}, ErrNotPermitted
	}
	row := s.pool.QueryRow(ctx,
		`UPDATE profiles SET
		   full_name = COALESCE($2, full_name),
		   bio = COALESCE($3, bio),
		   website = COALESCE($4, website),
		   avatar_url = COALESCE($5, avatar_url),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		pgID,
		db.TextFromPtr(patch.FullName),
		db.TextFromPtr(sanitizeBioPtr(patch.Bio)),
		db.TextFromPtr(patch.Website),
		db.TextFromPtr(patch.AvatarURL),
	)
	profile, err := scanProfile(row)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, ErrNotPermitted
	}
	return profile, err
}

// sanitizeBioPtr runs the bio gate on a patch field, preserving absence.
func sanitizeBioPtr(bio *string) *string {
	if bio == nil {
		return nil
	}
	clean := sanitize.Bio(*bio)
	return &clean
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		id        pgtype.UUID
		username  string
		fullName  string
		bio       pgtype.Text
		website   pgtype.Text
		avatarURL pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &username, &fullName, &bio, &website, &avatarURL, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return Profile{
		ID:        db.UUIDToString(id),
		Username:  username,
		FullName:  fullName,
		Bio:       db.TextToString(bio),
		Website:   db.TextToString(website),
		AvatarURL: db.TextToString(avatarURL),
		CreatedAt: db.TimeFromPg(createdAt),
		UpdatedAt: db.TimeFromPg(updatedAt),
	}, nil
}

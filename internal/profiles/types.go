package profiles

import (
	"context"
	"time"
)

// Profile is the user-owned record keyed by the identity id of its owner.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio,omitempty"`
	Website   string    `json:"website,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateParams are the fields for profile creation. ID is the owning
// identity id; re-running a create with the same ID is safe.
type CreateParams struct {
	ID       string
	Username string
	FullName string
	Bio      string
	Website  string
}

// UpdatePatch carries partial profile updates. Nil fields are left
// unchanged; Username is deliberately absent, the update path never
// changes it.
type UpdatePatch struct {
	FullName  *string `json:"full_name"`
	Bio       *string `json:"bio"`
	Website   *string `json:"website"`
	AvatarURL *string `json:"avatar_url"`
}

// Empty reports whether the patch carries no fields.
func (p UpdatePatch) Empty() bool {
	return p.FullName == nil && p.Bio == nil && p.Website == nil && p.AvatarURL == nil
}

// Store is the profile persistence contract. *Service is the PostgreSQL
// implementation; tests substitute in-memory fakes.
type Store interface {
	GetByUsername(ctx context.Context, username string) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Upsert(ctx context.Context, params CreateParams) (Profile, error)
	UpdateOwned(ctx context.Context, username, callerID string, patch UpdatePatch) (Profile, error)
	UpdateOwnedByID(ctx context.Context, callerID string, patch UpdatePatch) (Profile, error)
}

package handlers

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/openfolio/openfolio/internal/auth"
	"github.com/openfolio/openfolio/internal/gateway"
	"github.com/openfolio/openfolio/internal/profiles"
	"github.com/openfolio/openfolio/internal/sanitize"
)

const testJWTSecret = "handlers-test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory profiles.Store that mirrors the database
// contract: atomic handle uniqueness, same-operation ownership checks, and
// the bio sanitization gate on every write.
type memStore struct {
	mu   sync.Mutex
	byID map[string]profiles.Profile

	failExists error
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]profiles.Profile)}
}

func (m *memStore) GetByUsername(ctx context.Context, username string) (profiles.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Username == username {
			return p, nil
		}
	}
	return profiles.Profile{}, profiles.ErrNotFound
}

func (m *memStore) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, nil
}

func (m *memStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.failExists != nil {
		return false, m.failExists
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Upsert(ctx context.Context, params profiles.CreateParams) (profiles.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.byID {
		if p.Username == params.Username && id != params.ID {
			return profiles.Profile{}, profiles.ErrUsernameTaken
		}
	}
	p := profiles.Profile{
		ID:       params.ID,
		Username: params.Username,
		FullName: params.FullName,
		Bio:      sanitize.Bio(params.Bio),
		Website:  params.Website,
	}
	m.byID[params.ID] = p
	return p, nil
}

func (m *memStore) UpdateOwned(ctx context.Context, username, callerID string, patch profiles.UpdatePatch) (profiles.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[callerID]
	if !ok || p.Username != username {
		return profiles.Profile{}, profiles.ErrNotPermitted
	}
	return m.apply(callerID, p, patch), nil
}

func (m *memStore) UpdateOwnedByID(ctx context.Context, callerID string, patch profiles.UpdatePatch) (profiles.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[callerID]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotPermitted
	}
	return m.apply(callerID, p, patch), nil
}

func (m *memStore) apply(id string, p profiles.Profile, patch profiles.UpdatePatch) profiles.Profile {
	if patch.FullName != nil {
		p.FullName = *patch.FullName
	}
	if patch.Bio != nil {
		p.Bio = sanitize.Bio(*patch.Bio)
	}
	if patch.Website != nil {
		p.Website = *patch.Website
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = *patch.AvatarURL
	}
	m.byID[id] = p
	return p
}

// fakeAuthGateway satisfies both signup.Gateway and verification.Gateway.
type fakeAuthGateway struct {
	mu        sync.Mutex
	nextID    int
	emails    map[string]string // email -> identity id
	signUpErr error
	verifyErr error
}

func newFakeAuthGateway() *fakeAuthGateway {
	return &fakeAuthGateway{emails: make(map[string]string)}
}

func (g *fakeAuthGateway) SignUp(ctx context.Context, email, password string) (gateway.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.signUpErr != nil {
		return gateway.Identity{}, g.signUpErr
	}
	if _, ok := g.emails[email]; ok {
		return gateway.Identity{}, gateway.ErrEmailTaken
	}
	g.nextID++
	id := testUUID(g.nextID)
	g.emails[email] = id
	return gateway.Identity{ID: id, Email: email}, nil
}

func (g *fakeAuthGateway) VerifyOTP(ctx context.Context, otpType gateway.OTPType, email, token string) (gateway.Session, error) {
	if g.verifyErr != nil {
		return gateway.Session{}, g.verifyErr
	}
	if token != "123456" {
		return gateway.Session{}, gateway.ErrInvalidOTP
	}
	g.mu.Lock()
	id := g.emails[email]
	g.mu.Unlock()
	return gateway.Session{
		AccessToken: "gateway-session",
		TokenType:   "bearer",
		ExpiresIn:   3600,
		User:        gateway.Identity{ID: id, Email: email},
	}, nil
}

func (g *fakeAuthGateway) Recover(ctx context.Context, email string) error { return nil }

func (g *fakeAuthGateway) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return nil
}

func (g *fakeAuthGateway) SignOut(ctx context.Context, accessToken string) error { return nil }

// testUUID builds a deterministic uuid-shaped id from n.
func testUUID(n int) string {
	const base = "00000000-0000-4000-8000-000000000000"
	suffix := ""
	for n > 0 {
		suffix = string(rune('0'+n%10)) + suffix
		n /= 10
	}
	return base[:len(base)-len(suffix)] + suffix
}

// newProtectedEcho returns an Echo instance with the JWT middleware wired
// the way the server package does for the guarded profile routes.
func newProtectedEcho(handlers ...interface{ Register(e *echo.Echo) }) *echo.Echo {
	e := echo.New()
	e.Use(auth.JWTMiddleware(testJWTSecret, func(c echo.Context) bool {
		path := c.Request().URL.Path
		if strings.HasPrefix(path, "/profile/") && path != "/profile/me" && c.Request().Method == "GET" {
			return true
		}
		switch path {
		case "/signup", "/verify-signup", "/password/forgot", "/password/verify-otp", "/password/reset", "/username/availability":
			return true
		}
		return false
	}))
	for _, h := range handlers {
		h.Register(e)
	}
	return e
}

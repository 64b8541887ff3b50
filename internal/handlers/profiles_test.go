package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openfolio/openfolio/internal/profiles"
	"github.com/openfolio/openfolio/internal/signup"
)

func seedProfile(t *testing.T, store *memStore, id, username, fullName string) {
	t.Helper()
	if _, err := store.Upsert(context.Background(), profiles.CreateParams{ID: id, Username: username, FullName: fullName}); err != nil {
		t.Fatalf("seed profile %s: %v", username, err)
	}
}

func newProfilesApp(store *memStore) *echoApp {
	log := discardLogger()
	signupSvc := signup.NewService(log, newFakeAuthGateway(), store)
	return &echoApp{newProtectedEcho(NewProfilesHandler(log, store, signupSvc))}
}

type echoApp struct{ e http.Handler }

func (a *echoApp) do(method, target, bearer, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestGetProfileMissingReportsAvailable(t *testing.T) {
	app := newProfilesApp(newMemStore())
	rec := app.do(http.MethodGet, "/profile/ghost", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp AvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Available {
		t.Fatal("missing profile should report the handle as available")
	}
}

func TestUpdateOwnSanitizesBio(t *testing.T) {
	store := newMemStore()
	owner := testUUID(1)
	seedProfile(t, store, owner, "alice", "Alice")
	app := newProfilesApp(store)

	rec := app.do(http.MethodPut, "/profile/me", bearerFor(t, owner),
		`{"bio":"<script>alert(1)</script><p>Hello</p>"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	p, err := store.GetByID(context.Background(), owner)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if p.Bio != "<p>Hello</p>" {
		t.Fatalf("stored bio = %q, want %q", p.Bio, "<p>Hello</p>")
	}
}

func TestUpdateForeignProfileIsOpaque(t *testing.T) {
	store := newMemStore()
	seedProfile(t, store, testUUID(1), "alice", "Alice")
	intruder := testUUID(2)
	seedProfile(t, store, intruder, "mallory", "Mallory")
	app := newProfilesApp(store)

	for _, target := range []string{"/profile/alice", "/profile/no-such-handle"} {
		rec := app.do(http.MethodPut, target, bearerFor(t, intruder), `{"full_name":"Pwned"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("PUT %s status = %d, body = %s", target, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "not permitted") {
			t.Fatalf("PUT %s body = %s, want the opaque message", target, rec.Body.String())
		}
	}
	p, err := store.GetByUsername(context.Background(), "alice")
	if err != nil || p.FullName != "Alice" {
		t.Fatalf("target profile changed: %+v, err = %v", p, err)
	}
}

func TestUpdateOwnedByHandle(t *testing.T) {
	store := newMemStore()
	owner := testUUID(1)
	seedProfile(t, store, owner, "alice", "Alice")
	app := newProfilesApp(store)

	rec := app.do(http.MethodPut, "/profile/alice", bearerFor(t, owner),
		`{"full_name":"Alice Cooper","website":"https://alice.example"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	p, _ := store.GetByID(context.Background(), owner)
	if p.FullName != "Alice Cooper" || p.Website != "https://alice.example" {
		t.Fatalf("patch not applied: %+v", p)
	}
	if p.Username != "alice" {
		t.Fatalf("username must be immutable, got %q", p.Username)
	}
}

func TestGuardedRoutesRejectMissingToken(t *testing.T) {
	store := newMemStore()
	seedProfile(t, store, testUUID(1), "alice", "Alice")
	app := newProfilesApp(store)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/profile/me"},
		{http.MethodPut, "/profile/me"},
		{http.MethodPut, "/profile/alice"},
		{http.MethodPost, "/profile"},
	} {
		rec := app.do(tc.method, tc.target, "", `{}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s status = %d, want 401", tc.method, tc.target, rec.Code)
		}
	}
}

func TestGetOwnProfile(t *testing.T) {
	store := newMemStore()
	owner := testUUID(1)
	seedProfile(t, store, owner, "alice", "Alice")
	app := newProfilesApp(store)

	rec := app.do(http.MethodGet, "/profile/me", bearerFor(t, owner), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// An identity without a row gets a plain 404, the reconcile signal.
	rec = app.do(http.MethodGet, "/profile/me", bearerFor(t, testUUID(9)), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("orphan status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "available") {
		t.Fatalf("own-profile miss must not leak availability: %s", rec.Body.String())
	}
}

func TestCreateProfileRepair(t *testing.T) {
	store := newMemStore()
	orphan := testUUID(3)
	app := newProfilesApp(store)

	rec := app.do(http.MethodPost, "/profile", bearerFor(t, orphan),
		`{"username":"phoenix","full_name":"Phoenix","bio":"<p>back</p><script>x</script>"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	p, err := store.GetByID(context.Background(), orphan)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if p.Username != "phoenix" || p.Bio != "<p>back</p>" {
		t.Fatalf("repaired profile = %+v", p)
	}

	// Repair is single-shot per identity.
	rec = app.do(http.MethodPost, "/profile", bearerFor(t, orphan), `{"username":"phoenix2","full_name":"P"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

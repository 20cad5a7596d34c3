package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.Username != "admin" {
		t.Errorf("expected username admin, got %s", session.Username)
	}

	got := sm.GetSession(ctx, session.ID)
	if got == nil || got.ID != session.ID {
		t.Fatal("expected to retrieve created session")
	}

	sm.DeleteSession(ctx, session.ID)
	if sm.GetSession(ctx, session.ID) != nil {
		t.Error("expected session gone after delete")
	}
}

func TestSessionExpiry(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	session.ExpiresAt = time.Now().Add(-time.Minute)

	if sm.GetSession(ctx, session.ID) != nil {
		t.Error("expected expired session to be rejected")
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	session, err := sm.CreateSession(context.Background(), "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec := httptest.NewRecorder()
	sm.SetSessionCookie(rec, session)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	got := sm.GetSessionFromRequest(req)
	if got == nil || got.ID != session.ID {
		t.Fatal("expected session from signed cookie")
	}
}

func TestSessionCookieTamperRejected(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	session, err := sm.CreateSession(context.Background(), "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{
		Name:  "classwatch_session",
		Value: session.ID + ".bogus-signature",
	})

	if sm.GetSessionFromRequest(req) != nil {
		t.Error("expected tampered cookie to be rejected")
	}
}

func TestRequireAuth(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()

	handler := RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSessionFromContext(r.Context()) == nil {
			t.Error("expected session in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	// No session
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}

	// Bearer token
	session, err := sm.CreateSession(context.Background(), "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with bearer token, got %d", rec.Code)
	}
}

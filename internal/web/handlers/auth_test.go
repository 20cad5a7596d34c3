package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/classwatch/classwatch/internal/web/middleware"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *middleware.SessionManager) {
	t.Helper()
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return NewAuthHandler(testConfig(t), sm), sm
}

func TestLoginSuccess(t *testing.T) {
	h, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "admin", "password": "test-password"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.SessionID == "" {
		t.Errorf("expected successful login with session ID, got %+v", resp)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Error("expected session cookie to be set")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "admin", "password": "wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	h, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "intruder", "password": "test-password"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestLoginMissingFields(t *testing.T) {
	h, _ := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "admin"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestLoginRefusedWithoutConfiguredPassword(t *testing.T) {
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	cfg := testConfig(t)
	cfg.Admin.Password = ""
	h := NewAuthHandler(cfg, sm)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username": "admin", "password": ""}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty password, got %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	h, sm := newAuthHandler(t)

	session, err := sm.CreateSession(t.Context(), "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if sm.GetSession(t.Context(), session.ID) != nil {
		t.Error("expected session deleted after logout")
	}
}

func TestAuthStatus(t *testing.T) {
	h, sm := newAuthHandler(t)

	// Unauthenticated
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil))
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Authenticated {
		t.Error("expected unauthenticated status")
	}

	// Authenticated
	session, err := sm.CreateSession(t.Context(), "admin")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	rec = httptest.NewRecorder()
	h.Status(rec, req)
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Authenticated || resp.Username != "admin" {
		t.Errorf("expected authenticated admin, got %+v", resp)
	}
}

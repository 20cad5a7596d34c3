package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sessionCookieName = "classwatch_session"
	sessionDuration   = 24 * time.Hour
	cleanupInterval   = time.Hour
)

// Session represents an authenticated admin session.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StoredSession is the persisted form of a session.
type StoredSession struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository persists sessions so logins survive a restart.
// Implementations live in the storage backends.
type SessionRepository interface {
	Save(ctx context.Context, s *StoredSession) error
	Get(ctx context.Context, sessionID string) (*StoredSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager handles session creation and validation. Sessions are
// kept in memory and mirrored to the repository when one is configured.
type SessionManager struct {
	secret   []byte
	repo     SessionRepository
	sessions map[string]*Session
	mu       sync.RWMutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a new session manager. The repository may
// be nil for purely in-memory sessions.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "classwatch-dev-secret-change-in-production"
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		repo:     repo,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
	if repo != nil {
		go sm.cleanupLoop()
	}
	return sm
}

// Stop terminates the background cleanup goroutine.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stopCh) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if n, err := sm.repo.DeleteExpired(ctx); err != nil {
				log.Printf("session cleanup: %v", err)
			} else if n > 0 {
				log.Printf("session cleanup: removed %d expired sessions", n)
			}
			cancel()
		}
	}
}

// CreateSession creates a new session for the given admin user.
func (sm *SessionManager) CreateSession(ctx context.Context, username string) (*Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	sessionID := base64.URLEncoding.EncodeToString(idBytes)

	session := &Session{
		ID:        sessionID,
		Username:  username,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(sessionDuration),
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	if sm.repo != nil {
		stored := StoredSession(*session)
		if err := sm.repo.Save(ctx, &stored); err != nil {
			log.Printf("persisting session: %v", err)
		}
	}

	return session, nil
}

// GetSession retrieves a session by ID, falling back to the repository
// for sessions created before the last restart.
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(ctx, sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		log.Printf("loading session: %v", err)
		return nil
	}
	if stored == nil {
		return nil
	}

	session = &Session{
		ID:        stored.ID,
		Username:  stored.Username,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session from memory and the repository.
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			log.Printf("deleting session: %v", err)
		}
	}
}

// SetSessionCookie sets the signed session cookie on the response.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *Session) {
	signature := sm.signData(session.ID)
	cookieValue := session.ID + "." + signature

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from a request.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	// Try cookie first
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		parts := strings.SplitN(cookie.Value, ".", 2)
		if len(parts) == 2 {
			sessionID := parts[0]
			signature := parts[1]
			if sm.verifySignature(sessionID, signature) {
				if session := sm.GetSession(r.Context(), sessionID); session != nil {
					return session
				}
			}
		}
	}

	// Try Authorization header
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		sessionID := strings.TrimPrefix(authHeader, "Bearer ")
		if session := sm.GetSession(r.Context(), sessionID); session != nil {
			return session
		}
	}

	return nil
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

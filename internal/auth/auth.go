// Package auth is the admin authentication boundary: a single bcrypt
// password, in-memory session tokens, and a watchable auth state.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotConfigured indicates no admin password hash is set.
	ErrNotConfigured = errors.New("admin password not configured")
)

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 12 * time.Hour

// State is the auth state broadcast to watchers.
type State struct {
	Authenticated bool
}

// Session is a live admin session.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Service verifies the admin password and tracks sessions.
type Service struct {
	mu       sync.RWMutex
	hash     []byte
	ttl      time.Duration
	sessions map[string]time.Time
	watchers map[int]chan State
	nextID   int
}

// New creates a Service. passwordHash is a bcrypt hash; empty means admin
// login is disabled until one is configured.
func New(passwordHash string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		hash:     []byte(passwordHash),
		ttl:      ttl,
		sessions: make(map[string]time.Time),
		watchers: make(map[int]chan State),
	}
}

// HashPassword produces a bcrypt hash for the admin password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks the password and issues a session token.
func (s *Service) Login(ctx context.Context, password string) (Session, error) {
	s.mu.RLock()
	hash := s.hash
	s.mu.RUnlock()

	if len(hash) == 0 {
		return Session{}, ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		slog.WarnContext(ctx, "admin login rejected")
		return Session{}, ErrInvalidCredentials
	}

	sess := Session{
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess.ExpiresAt
	s.mu.Unlock()

	slog.InfoContext(ctx, "admin session opened")
	s.broadcast(State{Authenticated: true})
	return sess, nil
}

// Logout invalidates a session token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	s.mu.Lock()
	_, existed := s.sessions[token]
	delete(s.sessions, token)
	remaining := len(s.sessions)
	s.mu.Unlock()

	if existed {
		slog.InfoContext(ctx, "admin session closed", "remaining_sessions", remaining)
		if remaining == 0 {
			s.broadcast(State{Authenticated: false})
		}
	}
}

// Verify reports whether token belongs to a live session.
func (s *Service) Verify(token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Watch returns a channel of auth state changes plus a cancel func. The
// current state is emitted immediately.
func (s *Service) Watch() (<-chan State, func()) {
	ch := make(chan State, 4)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	authenticated := len(s.sessions) > 0
	s.mu.Unlock()

	ch <- State{Authenticated: authenticated}

	cancel := func() {
		s.mu.Lock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Service) broadcast(state State) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.watchers {
		select {
		case ch <- state:
		default:
		}
	}
}

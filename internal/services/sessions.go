package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/session"
)

const DefaultSessionTTL = 24 * time.Hour

const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

type AuthEvent struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
}

type SignInResult struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expiresAt"`
	Session   models.Session `json:"session"`
}

// Sessions signs users in through the identity provider and caches the
// resolved role for the lifetime of the session.
type Sessions struct {
	Identity IdentityProvider
	Roles    *RoleResolver
	Store    session.Store
	Tokens   TokenService
	TTL      time.Duration

	mu        sync.RWMutex
	listeners map[int]func(AuthEvent)
	nextID    int
}

// SignIn verifies the ID token and opens a session. A role lookup failure
// does not block sign-in; the session is a guest session.
func (s *Sessions) SignIn(ctx context.Context, idToken string) (SignInResult, error) {
	identity, err := s.Identity.Verify(ctx, idToken)
	if err != nil {
		var serr ServiceError
		if errors.As(err, &serr) {
			return SignInResult{}, serr
		}
		return SignInResult{}, ErrRemoteUnavailable("Sign-in is unavailable right now", err)
	}
	role, err := s.Roles.Resolve(ctx, identity.Email)
	if err != nil {
		log.Warn().Err(err).Str("email", identity.Email).Msg("role lookup failed, signing in as guest")
		role = models.RoleGuest
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now().UTC()
	sess := models.Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.Store.Save(ctx, sess); err != nil {
		return SignInResult{}, ErrRemoteUnavailable("Sign-in is unavailable right now", err)
	}
	token, exp, err := s.Tokens.CreateSessionToken(sess)
	if err != nil {
		return SignInResult{}, WrapError(err, "sign session token")
	}
	log.Info().Str("email", identity.Email).Str("role", string(role)).Msg("signed in")
	s.emit(AuthEvent{Type: EventSignedIn, SessionID: sess.ID, Email: identity.Email, Role: role})
	return SignInResult{Token: token, ExpiresAt: exp, Session: sess}, nil
}

// Authenticate resolves a bearer token to its live session.
func (s *Sessions) Authenticate(ctx context.Context, token string) (models.Session, error) {
	claims, err := s.Tokens.ParseSessionToken(token)
	if err != nil {
		return models.Session{}, ErrUnauthorized("Authentication failed")
	}
	sess, err := s.Store.Lookup(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return models.Session{}, ErrUnauthorized("Your session has ended, please sign in again")
	}
	if err != nil {
		return models.Session{}, ErrRemoteUnavailable("Could not verify your session", err)
	}
	return sess, nil
}

func (s *Sessions) SignOut(ctx context.Context, sess models.Session) error {
	if err := s.Store.Revoke(ctx, sess.ID); err != nil {
		return ErrRemoteUnavailable("Could not sign out", err)
	}
	log.Info().Str("email", sess.Identity.Email).Msg("signed out")
	s.emit(AuthEvent{Type: EventSignedOut, SessionID: sess.ID, Email: sess.Identity.Email, Role: sess.Role})
	return nil
}

// Subscribe registers fn for auth-state changes until the returned func is called.
func (s *Sessions) Subscribe(fn func(AuthEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = map[int]func(AuthEvent){}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Sessions) emit(event AuthEvent) {
	s.mu.RLock()
	listeners := make([]func(AuthEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(event)
	}
}

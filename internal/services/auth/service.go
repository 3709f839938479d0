package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
	"github.com/Gonmore/fprax-gateway/internal/domain/model"
	"github.com/Gonmore/fprax-gateway/internal/session"
)

const (
	DefaultSessionTTL = 24 * time.Hour

	// How long the "session expired" indicator survives after a forced
	// logout, so the next navigation can land on the login route with
	// the expired flag.
	expiredMarkerTTL = 5 * time.Minute
)

// Backend is the slice of the platform API the session authority needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (model.User, string, error)
}

// Service is the single authority over who is logged in, with what
// token and role. Every mutation persists the full snapshot.
type Service struct {
	store   Store
	backend Backend
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	listeners []TokenListener
}

func NewService(store Store, backend Backend, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Service{
		store:   store,
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
	}
}

// OnTokenChange registers a listener for token changes. Registration is
// a wiring-time operation and is not safe to call concurrently with
// session mutations.
func (s *Service) OnTokenChange(l TokenListener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// Login authenticates against the backend and creates a fresh session.
// On backend failure nothing is persisted.
func (s *Service) Login(ctx context.Context, email, password string) (string, session.Snapshot, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", session.Snapshot{}, ErrInvalidInput
	}

	user, tok, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return "", session.Snapshot{}, err
	}

	return s.create(ctx, user, tok)
}

// LoginSocial creates a session from an already-issued identity, as
// delivered by a social-login callback redirect.
func (s *Service) LoginSocial(ctx context.Context, user model.User, tok string) (string, session.Snapshot, error) {
	if strings.TrimSpace(tok) == "" || user.ID <= 0 {
		return "", session.Snapshot{}, ErrInvalidInput
	}
	return s.create(ctx, user, tok)
}

func (s *Service) create(ctx context.Context, user model.User, tok string) (string, session.Snapshot, error) {
	sid := session.NewID()
	snap := session.Snapshot{State: session.State{
		User:       &user,
		Token:      tok,
		ActiveRole: user.Role,
	}}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, sid, snap, s.ttl); err != nil {
		return "", session.Snapshot{}, fmt.Errorf("persist session: %w", err)
	}
	s.notify(sid, tok)

	return sid, snap, nil
}

// Logout clears the session. It is idempotent: logging out an unknown
// or already-cleared session succeeds.
func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, sid); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	s.notify(sid, "")
	return nil
}

// Current loads the persisted snapshot. A corrupt snapshot is cleared
// and reported as not found, so callers always fail closed.
func (s *Service) Current(ctx context.Context, sid string) (session.Snapshot, error) {
	if strings.TrimSpace(sid) == "" {
		return session.Snapshot{}, ErrSessionNotFound
	}

	snap, err := s.store.Load(ctx, sid)
	if errors.Is(err, ErrCorruptSession) {
		_ = s.store.Delete(ctx, sid)
		return session.Snapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return session.Snapshot{}, err
	}
	return snap, nil
}

// SetUser replaces the user field and persists the whole snapshot.
func (s *Service) SetUser(ctx context.Context, sid string, user *model.User) error {
	return s.mutate(ctx, sid, func(state *session.State) error {
		state.User = user
		return nil
	})
}

// SetToken replaces the token field, persists the whole snapshot and
// notifies token listeners.
func (s *Service) SetToken(ctx context.Context, sid, tok string) error {
	err := s.mutate(ctx, sid, func(state *session.State) error {
		state.Token = tok
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.notify(sid, tok)
	s.mu.Unlock()
	return nil
}

// SetActiveRole switches the role the session acts as. The role must be
// one of the user's available roles.
func (s *Service) SetActiveRole(ctx context.Context, sid string, role enums.Role) error {
	return s.mutate(ctx, sid, func(state *session.State) error {
		if state.User == nil {
			return ErrRoleNotAvailable
		}
		for _, available := range state.User.AvailableRoles() {
			if available == role {
				state.ActiveRole = role
				return nil
			}
		}
		return ErrRoleNotAvailable
	})
}

// AvailableRoles derives the roles the session may act as: the user's
// role profiles when authenticated, nothing otherwise.
func (s *Service) AvailableRoles(ctx context.Context, sid string) ([]enums.Role, error) {
	snap, err := s.Current(ctx, sid)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !snap.Authenticated(s.now()) {
		return nil, nil
	}
	return snap.State.User.AvailableRoles(), nil
}

// ForceExpire clears the session and leaves the expired marker behind.
// Used by the expiry watcher when it detects a dead token.
func (s *Service) ForceExpire(ctx context.Context, sid string) error {
	if err := s.store.MarkExpired(ctx, sid, expiredMarkerTTL); err != nil {
		return fmt.Errorf("mark session expired: %w", err)
	}
	return s.Logout(ctx, sid)
}

// ConsumeExpired reports and clears the expired marker for a session.
func (s *Service) ConsumeExpired(ctx context.Context, sid string) bool {
	if sid == "" {
		return false
	}
	expired, err := s.store.ConsumeExpired(ctx, sid)
	if err != nil {
		return false
	}
	return expired
}

// ActiveSessions lists the ids of sessions known to the store.
func (s *Service) ActiveSessions(ctx context.Context) ([]string, error) {
	return s.store.ActiveSIDs(ctx)
}

func (s *Service) mutate(ctx context.Context, sid string, apply func(*session.State) error) error {
	if strings.TrimSpace(sid) == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx, sid)
	if err != nil {
		return err
	}
	if err := apply(&snap.State); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sid, snap, s.ttl); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// notify must be called with s.mu held so listeners observe token
// changes in mutation order.
func (s *Service) notify(sid, tok string) {
	for _, l := range s.listeners {
		l(sid, tok)
	}
}

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
	"github.com/Gonmore/fprax-gateway/internal/domain/model"
	"github.com/Gonmore/fprax-gateway/internal/session"
)

type memStore struct {
	mu        sync.Mutex
	snapshots map[string]session.Snapshot
	expired   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		snapshots: make(map[string]session.Snapshot),
		expired:   make(map[string]bool),
	}
}

func (m *memStore) Save(_ context.Context, sid string, snap session.Snapshot, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sid] = snap
	return nil
}

func (m *memStore) Load(_ context.Context, sid string) (session.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[sid]
	if !ok {
		return session.Snapshot{}, ErrSessionNotFound
	}
	return snap, nil
}

func (m *memStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, sid)
	return nil
}

func (m *memStore) ActiveSIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sids := make([]string, 0, len(m.snapshots))
	for sid := range m.snapshots {
		sids = append(sids, sid)
	}
	return sids, nil
}

func (m *memStore) MarkExpired(_ context.Context, sid string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired[sid] = true
	return nil
}

func (m *memStore) ConsumeExpired(_ context.Context, sid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.expired[sid]
	delete(m.expired, sid)
	return was, nil
}

type fakeBackend struct {
	user model.User
	tok  string
	err  error
}

func (f *fakeBackend) Login(_ context.Context, _, _ string) (model.User, string, error) {
	if f.err != nil {
		return model.User{}, "", f.err
	}
	return f.user, f.tok, nil
}

func companyUser() model.User {
	return model.User{
		ID:       7,
		Username: "acme",
		Email:    "hr@acme.example",
		Role:     enums.RoleCompany,
		Roles:    []enums.Role{enums.RoleCompany, enums.RoleStudent},
	}
}

func TestLoginCreatesAndPersistsSession(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeBackend{user: companyUser(), tok: "h.p.s"}, time.Hour)

	sid, snap, err := svc.Login(context.Background(), "hr@acme.example", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sid == "" {
		t.Fatalf("login must issue a session id")
	}
	if snap.State.Token != "h.p.s" || snap.State.ActiveRole != enums.RoleCompany {
		t.Fatalf("unexpected snapshot: %+v", snap.State)
	}

	persisted, err := svc.Current(context.Background(), sid)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if persisted.State.User == nil || persisted.State.User.ID != 7 {
		t.Fatalf("session not persisted: %+v", persisted.State)
	}
}

func TestLoginValidatesInputAndBackendFailure(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeBackend{err: errors.New("bad credentials")}, time.Hour)

	if _, _, err := svc.Login(context.Background(), "", "secret"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty email, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "hr@acme.example", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "hr@acme.example", "wrong"); err == nil {
		t.Fatalf("expected backend error to propagate")
	}
	if len(store.snapshots) != 0 {
		t.Fatalf("failed login must not persist anything")
	}
}

func TestLogoutIsIdempotentAndClearsStorage(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeBackend{user: companyUser(), tok: "h.p.s"}, time.Hour)

	sid, _, err := svc.Login(context.Background(), "hr@acme.example", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), sid); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Current(context.Background(), sid); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected cleared session, got %v", err)
	}

	if err := svc.Logout(context.Background(), sid); err != nil {
		t.Fatalf("second logout must succeed, got %v", err)
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout without session must succeed, got %v", err)
	}
}

func TestSetActiveRoleRejectsUnavailableRole(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeBackend{user: companyUser(), tok: "h.p.s"}, time.Hour)

	sid, _, err := svc.Login(context.Background(), "hr@acme.example", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.SetActiveRole(context.Background(), sid, enums.RoleStudent); err != nil {
		t.Fatalf("switch to available role: %v", err)
	}
	snap, err := svc.Current(context.Background(), sid)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if snap.Role() != enums.RoleStudent {
		t.Fatalf("role switch not persisted, got %q", snap.Role())
	}

	if err := svc.SetActiveRole(context.Background(), sid, enums.RoleCenter); !errors.Is(err, ErrRoleNotAvailable) {
		t.Fatalf("expected ErrRoleNotAvailable, got %v", err)
	}
}

func TestAvailableRolesEmptyWithoutAuthentication(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeBackend{user: companyUser(), tok: "h.p.s"}, time.Hour)

	roles, err := svc.AvailableRoles(context.Background(), "unknown-sid")
	if err != nil || len(roles) != 0 {
		t.Fatalf("unknown session must yield no roles: roles=%v err=%v", roles, err)
	}

	sid, _, err := svc.Login(context.Background(), "hr@acme.example", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// The opaque token has no readable expiry, so it counts as expired
	// and the session as unauthenticated.
	roles, err = svc.AvailableRoles(context.Background(), sid)
	if err != nil || len(roles) != 0 {
		t.Fatalf("unauthenticated session must yield no roles: roles=%v err=%v", roles, err)
	}
}

func TestForceExpireLeavesConsumableMarker(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeBackend{user: companyUser(), tok: "h.p.s"}, time.Hour)

	sid, _, err := svc.Login(context.Background(), "hr@acme.example", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.ForceExpire(context.Background(), sid); err != nil {
		t.Fatalf("force expire: %v", err)
	}

	if _, err := svc.Current(context.Background(), sid); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected cleared session, got %v", err)
	}
	if !svc.ConsumeExpired(context.Background(), sid) {
		t.Fatalf("expected expired marker")
	}
	if svc.ConsumeExpired(context.Background(), sid) {
		t.Fatalf("marker must be consumed once")
	}
}

func TestTokenListenersObserveLoginAndLogout(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeBackend{user: companyUser(), tok: "h.p.s"}, time.Hour)

	type change struct{ sid, tok string }
	var changes []change
	svc.OnTokenChange(func(sid, tok string) {
		changes = append(changes, change{sid, tok})
	})

	sid, _, err := svc.Login(context.Background(), "hr@acme.example", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), sid); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if len(changes) != 2 {
		t.Fatalf("expected login and logout notifications, got %v", changes)
	}
	if changes[0].tok != "h.p.s" || changes[1].tok != "" {
		t.Fatalf("unexpected notification order: %v", changes)
	}
	if changes[0].sid != sid || changes[1].sid != sid {
		t.Fatalf("notifications must carry the session id: %v", changes)
	}
}

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Gonmore/fprax-gateway/internal/session"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSessionNotFound  = errors.New("session not found")
	ErrCorruptSession   = errors.New("corrupt session snapshot")
	ErrRoleNotAvailable = errors.New("role not available for user")
)

// Store persists session snapshots. Implementations must replace the
// snapshot atomically as a whole; partial-field writes are not allowed.
type Store interface {
	Save(ctx context.Context, sid string, snap session.Snapshot, ttl time.Duration) error
	Load(ctx context.Context, sid string) (session.Snapshot, error)
	Delete(ctx context.Context, sid string) error
	ActiveSIDs(ctx context.Context) ([]string, error)
	MarkExpired(ctx context.Context, sid string, ttl time.Duration) error
	ConsumeExpired(ctx context.Context, sid string) (bool, error)
}

// TokenListener is invoked after the auth token of a session changes,
// including the change to the empty token at logout.
type TokenListener func(sid, token string)

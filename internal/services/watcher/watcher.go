// Package watcher sweeps active sessions on a fixed interval and forces
// out the ones whose token has expired, so a dead token never outlives
// the timer period. The sweep is purely local: it reads token payloads,
// it never calls the backend.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Gonmore/fprax-gateway/internal/services/auth"
	"github.com/Gonmore/fprax-gateway/internal/session"
	"github.com/Gonmore/fprax-gateway/internal/token"
)

const DefaultInterval = 30 * time.Second

// Sessions is the slice of the session authority the watcher needs.
type Sessions interface {
	ActiveSessions(ctx context.Context) ([]string, error)
	Current(ctx context.Context, sid string) (session.Snapshot, error)
	ForceExpire(ctx context.Context, sid string) error
}

type Watcher struct {
	sessions Sessions
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(sessions Sessions, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		sessions: sessions,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Start sweeps once immediately, then on every tick until the context
// is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	if err := w.Sweep(ctx); err != nil {
		w.logger.Warn("session expiry sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Warn("session expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep checks every active session's token against the current time
// and forces out the expired ones. Sessions without a token are left
// alone; a session that disappears mid-sweep is skipped.
func (w *Watcher) Sweep(ctx context.Context) error {
	sids, err := w.sessions.ActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}

	now := w.now()
	for _, sid := range sids {
		snap, err := w.sessions.Current(ctx, sid)
		if errors.Is(err, auth.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load session %s: %w", sid, err)
		}

		tok := snap.State.Token
		if tok == "" || !token.Expired(tok, now) {
			continue
		}

		if err := w.sessions.ForceExpire(ctx, sid); err != nil {
			return fmt.Errorf("expire session %s: %w", sid, err)
		}
		w.logger.Info("session expired by watcher", zap.String("sid", sid))
	}
	return nil
}

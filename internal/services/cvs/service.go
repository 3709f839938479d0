// Package cvs caches which student CVs the company has already revealed
// and the token balance that pays for reveals.
package cvs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const refetchTimeout = 10 * time.Second

type API interface {
	RevealedCVs(ctx context.Context, token string) ([]int64, error)
	TokenBalance(ctx context.Context, token string) (int, error)
}

type Service struct {
	api    API
	logger *zap.Logger

	mu     sync.Mutex
	caches map[string]*cache
}

type cache struct {
	revealed map[int64]struct{}
	balance  int
	seq      uint64
	loading  bool
	err      string
	loaded   bool
}

type View struct {
	Revealed []int64
	Balance  int
	Loading  bool
	Err      string
	Loaded   bool
}

func NewService(api API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		api:    api,
		logger: logger,
		caches: make(map[string]*cache),
	}
}

// Fetch reloads the revealed-CV set and the token balance. Without a
// token it is a no-op; on failure the previous cache survives.
func (s *Service) Fetch(ctx context.Context, sid, token string) error {
	if sid == "" || token == "" {
		return nil
	}

	s.mu.Lock()
	c := s.ensure(sid)
	c.seq++
	seq := c.seq
	c.loading = true
	s.mu.Unlock()

	ids, err := s.api.RevealedCVs(ctx, token)
	var balance int
	if err == nil {
		balance, err = s.api.TokenBalance(ctx, token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.seq != seq {
		return nil
	}
	c.loading = false

	if err != nil {
		c.err = "could not load revealed CVs"
		return fmt.Errorf("fetch revealed cvs: %w", err)
	}

	revealed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		revealed[id] = struct{}{}
	}
	c.revealed = revealed
	c.balance = balance
	c.err = ""
	c.loaded = true
	return nil
}

// MarkRevealed adds a student to the local revealed set. It is
// idempotent and never talks to the backend; the next fetch reconciles.
func (s *Service) MarkRevealed(sid string, studentID int64) {
	if sid == "" || studentID <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensure(sid)
	if c.revealed == nil {
		c.revealed = make(map[int64]struct{})
	}
	c.revealed[studentID] = struct{}{}
}

func (s *Service) IsRevealed(sid string, studentID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[sid]
	if !ok {
		return false
	}
	_, revealed := c.revealed[studentID]
	return revealed
}

// Count derives the revealed total from the cache on every call.
func (s *Service) Count(sid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[sid]
	if !ok {
		return 0
	}
	return len(c.revealed)
}

func (s *Service) View(sid string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[sid]
	if !ok {
		return View{}
	}

	revealed := make([]int64, 0, len(c.revealed))
	for id := range c.revealed {
		revealed = append(revealed, id)
	}

	return View{
		Revealed: revealed,
		Balance:  c.balance,
		Loading:  c.loading,
		Err:      c.err,
		Loaded:   c.loaded,
	}
}

// OnTokenChange drops the cache at logout and re-fetches on a new token.
func (s *Service) OnTokenChange(sid, token string) {
	if token == "" {
		s.mu.Lock()
		delete(s.caches, sid)
		s.mu.Unlock()
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
		defer cancel()
		if err := s.Fetch(ctx, sid, token); err != nil {
			s.logger.Debug("revealed cv refetch after token change failed", zap.Error(err))
		}
	}()
}

func (s *Service) ensure(sid string) *cache {
	c, ok := s.caches[sid]
	if !ok {
		c = &cache{}
		s.caches[sid] = c
	}
	return c
}

// Package offers caches the company's offers (with their candidates)
// for each session and applies confirmed deletions to the cache.
package offers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Gonmore/fprax-gateway/internal/domain/model"
)

const refetchTimeout = 10 * time.Second

type API interface {
	CompanyOffersWithCandidates(ctx context.Context, token string) ([]model.Offer, error)
	DeleteOffer(ctx context.Context, token string, id int64) error
}

type Service struct {
	api    API
	logger *zap.Logger

	mu     sync.Mutex
	caches map[string]*cache
}

// cache holds the last successful fetch for one session. seq orders
// fetches so a late resolution from a superseded fetch is discarded.
type cache struct {
	offers  []model.Offer
	seq     uint64
	loading bool
	err     string
	loaded  bool
}

// View is a read snapshot of one session's cache.
type View struct {
	Offers  []model.Offer
	Loading bool
	Err     string
	Loaded  bool
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

// Fetch reloads the session's offer list. Without a token it is a
// no-op. On failure the previous cache is kept and the error recorded.
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

	offers, err := s.api.CompanyOffersWithCandidates(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.seq != seq {
		// A newer fetch owns the cache now.
		return nil
	}
	c.loading = false

	if err != nil {
		c.err = "could not load offers"
		return fmt.Errorf("fetch company offers: %w", err)
	}

	c.offers = offers
	c.err = ""
	c.loaded = true
	return nil
}

// Delete removes an offer. The cache entry is dropped only after the
// backend confirms the deletion; deleting an id that is not cached is
// a no-op.
func (s *Service) Delete(ctx context.Context, sid, token string, id int64) error {
	s.mu.Lock()
	c, ok := s.caches[sid]
	exists := ok && indexOf(c.offers, id) >= 0
	s.mu.Unlock()

	if !exists {
		return nil
	}

	if err := s.api.DeleteOffer(ctx, token, id); err != nil {
		return fmt.Errorf("delete offer %d: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[sid]; ok {
		if i := indexOf(c.offers, id); i >= 0 {
			c.offers = append(c.offers[:i], c.offers[i+1:]...)
		}
	}
	return nil
}

func (s *Service) View(sid string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[sid]
	if !ok {
		return View{}
	}

	offers := make([]model.Offer, len(c.offers))
	copy(offers, c.offers)

	return View{
		Offers:  offers,
		Loading: c.loading,
		Err:     c.err,
		Loaded:  c.loaded,
	}
}

// Stats derives aggregates from the current cache on every call; they
// are never stored.
func (s *Service) Stats(sid string) (offerCount, candidateTotal int, avgCandidates float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.caches[sid]
	if !ok || len(c.offers) == 0 {
		return 0, 0, 0
	}

	for _, offer := range c.offers {
		candidateTotal += len(offer.Candidates)
	}
	return len(c.offers), candidateTotal, float64(candidateTotal) / float64(len(c.offers))
}

// OnTokenChange drops the cache at logout and re-fetches on any new
// token, since the resource is scoped to the authenticated identity.
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
			s.logger.Debug("offer refetch after token change failed", zap.Error(err))
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

func indexOf(offers []model.Offer, id int64) int {
	for i, offer := range offers {
		if offer.ID == id {
			return i
		}
	}
	return -1
}

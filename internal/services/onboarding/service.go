// Package onboarding caches each session's onboarding progress and its
// recommended offers, and pushes step completions to the backend.
package onboarding

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
	OnboardingStatus(ctx context.Context, token string) (model.OnboardingStatus, error)
	CompleteOnboardingStep(ctx context.Context, token, step string) (model.OnboardingStatus, error)
	RecommendedOffers(ctx context.Context, token string) ([]model.Offer, error)
}

type Service struct {
	api    API
	logger *zap.Logger

	mu     sync.Mutex
	caches map[string]*cache
}

type cache struct {
	status  model.OnboardingStatus
	offers  []model.Offer
	seq     uint64
	loading bool
	err     string
	loaded  bool
}

type View struct {
	Status  model.OnboardingStatus
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

// Fetch reloads the session's onboarding status and recommended offers.
// Without a token it is a no-op; on failure the previous cache survives.
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

	status, err := s.api.OnboardingStatus(ctx, token)
	var offers []model.Offer
	if err == nil {
		offers, err = s.api.RecommendedOffers(ctx, token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.seq != seq {
		return nil
	}
	c.loading = false

	if err != nil {
		c.err = "could not load onboarding state"
		return fmt.Errorf("fetch onboarding state: %w", err)
	}

	c.status = status
	c.offers = offers
	c.err = ""
	c.loaded = true
	return nil
}

// CompleteStep marks the step locally first, then confirms it with the
// backend and reconciles the cache with the authoritative status. The
// local mark is idempotent, so a repeated completion changes nothing.
func (s *Service) CompleteStep(ctx context.Context, sid, token, step string) error {
	if sid == "" || step == "" {
		return nil
	}

	s.mu.Lock()
	c := s.ensure(sid)
	already := c.status.StepCompleted(step)
	if !already {
		c.status.CompletedSteps = append(c.status.CompletedSteps, step)
	}
	s.mu.Unlock()

	if already || token == "" {
		return nil
	}

	status, err := s.api.CompleteOnboardingStep(ctx, token, step)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		// The optimistic mark stays; the next fetch reconciles.
		c.err = "could not record onboarding step"
		return fmt.Errorf("complete onboarding step %q: %w", step, err)
	}

	c.status = status
	c.err = ""
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
		Status:  c.status,
		Offers:  offers,
		Loading: c.loading,
		Err:     c.err,
		Loaded:  c.loaded,
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
			s.logger.Debug("onboarding refetch after token change failed", zap.Error(err))
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

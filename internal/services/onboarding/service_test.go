package onboarding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Gonmore/fprax-gateway/internal/domain/model"
)

type fakeAPI struct {
	mu     sync.Mutex
	status model.OnboardingStatus
	offers []model.Offer

	statusErr   error
	completeErr error
	completed   []string
}

func (f *fakeAPI) OnboardingStatus(_ context.Context, _ string) (model.OnboardingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return model.OnboardingStatus{}, f.statusErr
	}
	return f.status, nil
}

func (f *fakeAPI) CompleteOnboardingStep(_ context.Context, _ string, step string) (model.OnboardingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return model.OnboardingStatus{}, f.completeErr
	}
	f.completed = append(f.completed, step)
	f.status.CompletedSteps = append(f.status.CompletedSteps, step)
	f.status.Completed = len(f.status.CompletedSteps) >= 2
	return f.status, nil
}

func (f *fakeAPI) RecommendedOffers(_ context.Context, _ string) ([]model.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	offers := make([]model.Offer, len(f.offers))
	copy(offers, f.offers)
	return offers, nil
}

func TestFetchLoadsStatusAndRecommendations(t *testing.T) {
	api := &fakeAPI{
		status: model.OnboardingStatus{CurrentStep: "profile"},
		offers: []model.Offer{{ID: 5, Name: "Data intern"}},
	}
	svc := NewService(api, nil)

	if err := svc.Fetch(context.Background(), "sid", "tok"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	view := svc.View("sid")
	if !view.Loaded || view.Err != "" {
		t.Fatalf("unexpected view state: %+v", view)
	}
	if view.Status.CurrentStep != "profile" || len(view.Offers) != 1 {
		t.Fatalf("unexpected cache content: %+v", view)
	}
}

func TestFetchWithoutTokenIsNoOp(t *testing.T) {
	svc := NewService(&fakeAPI{}, nil)

	if err := svc.Fetch(context.Background(), "sid", ""); err != nil {
		t.Fatalf("fetch without token must be a silent no-op, got %v", err)
	}
	if view := svc.View("sid"); view.Loaded {
		t.Fatalf("cache must stay empty without a token")
	}
}

func TestFetchFailureKeepsPreviousCache(t *testing.T) {
	api := &fakeAPI{status: model.OnboardingStatus{CurrentStep: "profile"}}
	svc := NewService(api, nil)

	if err := svc.Fetch(context.Background(), "sid", "tok"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	api.mu.Lock()
	api.statusErr = errors.New("backend down")
	api.mu.Unlock()

	if err := svc.Fetch(context.Background(), "sid", "tok"); err == nil {
		t.Fatalf("expected fetch error")
	}

	view := svc.View("sid")
	if view.Status.CurrentStep != "profile" {
		t.Fatalf("stale cache must survive a failed fetch, got %+v", view)
	}
	if view.Err == "" {
		t.Fatalf("fetch failure must record an error message")
	}
}

func TestCompleteStepIsOptimisticAndIdempotent(t *testing.T) {
	api := &fakeAPI{status: model.OnboardingStatus{CurrentStep: "profile"}}
	svc := NewService(api, nil)

	if err := svc.Fetch(context.Background(), "sid", "tok"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if err := svc.CompleteStep(context.Background(), "sid", "tok", "profile"); err != nil {
		t.Fatalf("complete step: %v", err)
	}
	if view := svc.View("sid"); !view.Status.StepCompleted("profile") {
		t.Fatalf("step must be marked completed, got %+v", view.Status)
	}

	// Completing the same step again never reaches the backend.
	if err := svc.CompleteStep(context.Background(), "sid", "tok", "profile"); err != nil {
		t.Fatalf("repeat complete step: %v", err)
	}
	if len(api.completed) != 1 {
		t.Fatalf("repeated completion must not call the backend, got %v", api.completed)
	}
}

func TestCompleteStepKeepsLocalMarkOnBackendFailure(t *testing.T) {
	api := &fakeAPI{completeErr: errors.New("backend down")}
	svc := NewService(api, nil)

	if err := svc.CompleteStep(context.Background(), "sid", "tok", "profile"); err == nil {
		t.Fatalf("expected complete step error")
	}

	view := svc.View("sid")
	if !view.Status.StepCompleted("profile") {
		t.Fatalf("optimistic mark must survive the failed confirmation")
	}
	if view.Err == "" {
		t.Fatalf("failure must record an error message")
	}
}

func TestTokenChangeToEmptyDropsCache(t *testing.T) {
	api := &fakeAPI{status: model.OnboardingStatus{CurrentStep: "profile"}}
	svc := NewService(api, nil)

	if err := svc.Fetch(context.Background(), "sid", "tok"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	svc.OnTokenChange("sid", "")

	if view := svc.View("sid"); view.Loaded {
		t.Fatalf("logout must drop the session cache")
	}
}

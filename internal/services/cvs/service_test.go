package cvs

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeAPI struct {
	mu       sync.Mutex
	revealed []int64
	balance  int
	fetchErr error
}

func (f *fakeAPI) RevealedCVs(_ context.Context, _ string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	ids := make([]int64, len(f.revealed))
	copy(ids, f.revealed)
	return ids, nil
}

func (f *fakeAPI) TokenBalance(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return 0, f.fetchErr
	}
	return f.balance, nil
}

func TestFetchLoadsRevealedSetAndBalance(t *testing.T) {
	api := &fakeAPI{revealed: []int64{3, 5, 8}, balance: 12}
	svc := NewService(api, nil)

	if err := svc.Fetch(context.Background(), "sid", "tok"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	view := svc.View("sid")
	if !view.Loaded || view.Err != "" {
		t.Fatalf("unexpected view state: %+v", view)
	}
	if view.Balance != 12 || svc.Count("sid") != 3 {
		t.Fatalf("unexpected cache content: balance=%d count=%d", view.Balance, svc.Count("sid"))
	}
	if !svc.IsRevealed("sid", 5) || svc.IsRevealed("sid", 4) {
		t.Fatalf("membership checks disagree with the fetched set")
	}
}

func TestFetchWithoutTokenIsNoOp(t *testing.T) {
	svc := NewService(&fakeAPI{revealed: []int64{1}}, nil)

	if err := svc.Fetch(context.Background(), "sid", ""); err != nil {
		t.Fatalf("fetch without token must be a silent no-op, got %v", err)
	}
	if svc.Count("sid") != 0 {
		t.Fatalf("cache must stay empty without a token")
	}
}

func TestFetchFailureKeepsPreviousCache(t *testing.T) {
	api := &fakeAPI{revealed: []int64{3}, balance: 7}
	svc := NewService(api, nil)

	if err := svc.Fetch(context.Background(), "sid", "tok"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	api.mu.Lock()
	api.fetchErr = errors.New("backend down")
	api.mu.Unlock()

	if err := svc.Fetch(context.Background(), "sid", "tok"); err == nil {
		t.Fatalf("expected fetch error")
	}

	view := svc.View("sid")
	if view.Balance != 7 || !svc.IsRevealed("sid", 3) {
		t.Fatalf("stale cache must survive a failed fetch, got %+v", view)
	}
	if view.Err == "" {
		t.Fatalf("fetch failure must record an error message")
	}
}

func TestMarkRevealedIsIdempotentAndLocal(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil)

	svc.MarkRevealed("sid", 9)
	svc.MarkRevealed("sid", 9)

	if svc.Count("sid") != 1 || !svc.IsRevealed("sid", 9) {
		t.Fatalf("repeated mark must count once, got %d", svc.Count("sid"))
	}
}

func TestTokenChangeToEmptyDropsCache(t *testing.T) {
	api := &fakeAPI{revealed: []int64{3}}
	svc := NewService(api, nil)

	if err := svc.Fetch(context.Background(), "sid", "tok"); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	svc.OnTokenChange("sid", "")

	if svc.Count("sid") != 0 {
		t.Fatalf("logout must drop the session cache")
	}
}

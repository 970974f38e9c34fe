package webclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/store"
)

func newTestRefresher(fetch VersionFetcher) (*VersionRefresher, *store.WAVersionContainer) {
	applied := &store.WAVersionContainer{2, 3000, 1}
	r := NewVersionRefresher(time.Minute, fetch)
	r.apply = func(v store.WAVersionContainer) { *applied = v }
	r.current = func() store.WAVersionContainer { return *applied }
	return r, applied
}

func TestVersionRefresh(t *testing.T) {
	calls := 0
	r, applied := newTestRefresher(func(ctx context.Context) (store.WAVersionContainer, error) {
		calls++
		return store.WAVersionContainer{2, 3000, 1020000000}, nil
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	status, refreshed, err := r.Refresh(context.Background(), false)
	if err != nil || !refreshed {
		t.Fatalf("refresh: %v %v", refreshed, err)
	}
	if *applied != (store.WAVersionContainer{2, 3000, 1020000000}) || status.Version != "2.3000.1020000000" {
		t.Fatalf("version not applied: %v %+v", *applied, status)
	}

	// throttled inside the window
	if _, refreshed, _ := r.Refresh(context.Background(), false); refreshed || calls != 1 {
		t.Fatalf("throttle ignored: refreshed=%v calls=%d", refreshed, calls)
	}

	// force bypasses the throttle
	if _, refreshed, _ := r.Refresh(context.Background(), true); !refreshed || calls != 2 {
		t.Fatalf("force ignored: refreshed=%v calls=%d", refreshed, calls)
	}

	now = now.Add(2 * time.Minute)
	if _, refreshed, _ := r.Refresh(context.Background(), false); !refreshed || calls != 3 {
		t.Fatalf("window expired but not refreshed: calls=%d", calls)
	}
}

func TestVersionRefreshError(t *testing.T) {
	boom := errors.New("unreachable")
	r, applied := newTestRefresher(func(ctx context.Context) (store.WAVersionContainer, error) {
		return store.WAVersionContainer{}, boom
	})

	status, _, err := r.Refresh(context.Background(), true)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if status.LastError != "unreachable" || status.LastRefreshed == nil {
		t.Fatalf("unexpected status %+v", status)
	}
	if *applied != (store.WAVersionContainer{2, 3000, 1}) {
		t.Fatal("version changed on failure")
	}
}

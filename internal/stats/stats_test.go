package stats

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestActivityLogBounded(t *testing.T) {
	s := NewStore()
	for i := 0; i < MaxActivityEntries+1; i++ {
		s.Log("action", StatusSuccess, fmt.Sprintf("entry %d", i))
	}

	entries := s.Activity()
	if len(entries) != MaxActivityEntries {
		t.Fatalf("len = %d, want %d", len(entries), MaxActivityEntries)
	}
	if entries[0].Message != "entry 100" {
		t.Fatalf("newest = %q", entries[0].Message)
	}
	if last := entries[len(entries)-1].Message; last != "entry 1" {
		t.Fatalf("oldest = %q, entry 0 should be evicted", last)
	}
}

func TestActivityIsCopy(t *testing.T) {
	s := NewStore()
	s.Log("a", StatusSuccess, "x")
	got := s.Activity()
	got[0].Message = "changed"
	if s.Activity()[0].Message != "x" {
		t.Fatal("Activity exposes internal slice")
	}
}

func TestLogResult(t *testing.T) {
	s := NewStore()
	if e := s.LogResult("send", false, "falhou"); e.Status != StatusError {
		t.Fatalf("status = %s", e.Status)
	}
	if e := s.LogResult("send", true, "ok"); e.Status != StatusSuccess {
		t.Fatalf("status = %s", e.Status)
	}
}

func TestCounters(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(Delta{Received: 2, Media: 1})
			s.IncSent()
		}()
	}
	wg.Wait()

	got := s.Snapshot()
	if got.Received != 100 || got.Media != 50 || got.Sent != 50 || got.Templates != 0 {
		t.Fatalf("stats = %+v", got)
	}
	if !got.LastUpdated.Equal(fixed) {
		t.Fatalf("lastUpdated = %s", got.LastUpdated)
	}

	if r := s.Reset(); r.Received != 0 || r.Sent != 0 {
		t.Fatalf("after reset = %+v", r)
	}
}

func TestNegativeDeltaPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewStore().Add(Delta{Sent: -1})
}

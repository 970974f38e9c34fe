package stats

import (
	"sync"
	"time"
)

// MaxActivityEntries bounds the activity log; the oldest entry is dropped.
const MaxActivityEntries = 100

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type MessageStats struct {
	Received    int64     `json:"received"`
	Sent        int64     `json:"sent"`
	Templates   int64     `json:"templates"`
	Media       int64     `json:"media"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
}

// Delta is a set of counter increments applied atomically.
type Delta struct {
	Received  int64
	Sent      int64
	Templates int64
	Media     int64
}

// Store holds the process-lifetime counters and activity log shared by
// the panel API and the webhook receiver.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	stats    MessageStats
	activity []ActivityEntry
}

func NewStore() *Store {
	s := &Store{now: time.Now}
	s.stats.LastUpdated = s.now()
	return s
}

func (s *Store) Add(d Delta) MessageStats {
	if d.Received < 0 || d.Sent < 0 || d.Templates < 0 || d.Media < 0 {
		panic("stats: negative delta")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Received += d.Received
	s.stats.Sent += d.Sent
	s.stats.Templates += d.Templates
	s.stats.Media += d.Media
	s.stats.LastUpdated = s.now()
	return s.stats
}

func (s *Store) IncSent() {
	s.Add(Delta{Sent: 1})
}

func (s *Store) Snapshot() MessageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) Reset() MessageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = MessageStats{LastUpdated: s.now()}
	return s.stats
}

// Log prepends an entry, keeping at most MaxActivityEntries.
func (s *Store) Log(action string, status Status, message string) ActivityEntry {
	entry := ActivityEntry{
		Action:  action,
		Status:  status,
		Message: message,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Timestamp = s.now()

	if len(s.activity) < MaxActivityEntries {
		s.activity = append(s.activity, ActivityEntry{})
	}
	copy(s.activity[1:], s.activity[:len(s.activity)-1])
	s.activity[0] = entry
	return entry
}

// LogResult records success or error depending on ok.
func (s *Store) LogResult(action string, ok bool, message string) ActivityEntry {
	status := StatusError
	if ok {
		status = StatusSuccess
	}
	return s.Log(action, status, message)
}

// Activity returns a copy of the log, newest first.
func (s *Store) Activity() []ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ActivityEntry, len(s.activity))
	copy(out, s.activity)
	return out
}

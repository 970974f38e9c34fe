package webclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"golang.org/x/sync/singleflight"
)

// DefaultVersionRefreshInterval throttles non-forced refreshes.
const DefaultVersionRefreshInterval = 10 * time.Minute

var errNilVersion = errors.New("latest WhatsApp Web version is nil")

// VersionFetcher returns the current WhatsApp Web client version.
type VersionFetcher func(ctx context.Context) (store.WAVersionContainer, error)

type VersionStatus struct {
	Version       string     `json:"version"`
	LastRefreshed *time.Time `json:"lastRefreshed,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// VersionRefresher keeps the advertised client version current. Pairing
// is refused by the servers once the built-in version gets too old.
type VersionRefresher struct {
	fetch       VersionFetcher
	apply       func(store.WAVersionContainer)
	current     func() store.WAVersionContainer
	minInterval time.Duration
	now         func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	last      *time.Time
	lastError string
}

func fetchLatestVersion(ctx context.Context) (store.WAVersionContainer, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	latest, err := whatsmeow.GetLatestVersion(ctx, httpClient)
	if err != nil {
		return store.WAVersionContainer{}, err
	}
	if latest == nil {
		return store.WAVersionContainer{}, errNilVersion
	}
	return *latest, nil
}

// NewVersionRefresher uses whatsmeow's version endpoint when fetch is nil.
func NewVersionRefresher(minInterval time.Duration, fetch VersionFetcher) *VersionRefresher {
	if fetch == nil {
		fetch = fetchLatestVersion
	}
	if minInterval < 0 {
		minInterval = DefaultVersionRefreshInterval
	}
	return &VersionRefresher{
		fetch:       fetch,
		apply:       store.SetWAVersion,
		current:     store.GetWAVersion,
		minInterval: minInterval,
		now:         time.Now,
	}
}

func formatVersion(v store.WAVersionContainer) string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

func (r *VersionRefresher) Status() VersionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *time.Time
	if r.last != nil {
		t := *r.last
		last = &t
	}
	return VersionStatus{
		Version:       formatVersion(r.current()),
		LastRefreshed: last,
		LastError:     r.lastError,
	}
}

// Refresh fetches and applies the latest version. Without force it is a
// no-op inside the throttle window; refreshed reports whether a fetch ran.
func (r *VersionRefresher) Refresh(ctx context.Context, force bool) (status VersionStatus, refreshed bool, err error) {
	if !force && r.minInterval > 0 {
		r.mu.RLock()
		last := r.last
		r.mu.RUnlock()
		if last != nil && r.now().Sub(*last) < r.minInterval {
			return r.Status(), false, nil
		}
	}

	_, err, _ = r.group.Do("refresh", func() (interface{}, error) {
		latest, err := r.fetch(ctx)

		r.mu.Lock()
		now := r.now()
		r.last = &now
		if err != nil {
			r.lastError = err.Error()
		} else {
			r.lastError = ""
		}
		r.mu.Unlock()

		if err != nil {
			return nil, err
		}
		r.apply(latest)
		return nil, nil
	})
	return r.Status(), true, err
}

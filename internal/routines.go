package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/provider/webclient"
	"github.com/vihking/whatsapp-integration/internal/stats"
	"github.com/vihking/whatsapp-integration/pkg/log"
)

// Daily at 03:00:00, the cron runs with a seconds field.
const webhookPruneSpec = "0 0 3 * * *"

const statusWatchTimeout = 15 * time.Second

// statusWatcher records an activity entry whenever the active backend's
// connection status changes between polls.
type statusWatcher struct {
	registry *provider.Registry
	stats    *stats.Store

	mu       sync.Mutex
	lastType provider.Type
	last     provider.ConnectionState
}

func newStatusWatcher(registry *provider.Registry, store *stats.Store) *statusWatcher {
	return &statusWatcher{registry: registry, stats: store}
}

func (w *statusWatcher) check(ctx context.Context) {
	p := w.registry.Active()
	status := p.Status(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lastType != p.Type() {
		w.lastType = p.Type()
		w.last = status.Status
		return
	}
	if w.last == status.Status {
		return
	}

	message := fmt.Sprintf("Status de %s alterado de %s para %s", p.Type(), w.last, status.Status)
	if status.Message != "" && status.Status == provider.StateError {
		message += ": " + status.Message
	}
	w.last = status.Status

	result := stats.StatusSuccess
	if status.Status == provider.StateError {
		result = stats.StatusError
	}
	w.stats.Log("statusChange", result, message)
	log.Provider(string(p.Type()), "statusWatch").Info(message)
}

func Routines(c *cron.Cron, deps Dependencies) {
	log.Print(nil).Info("Running Routine Tasks")

	watcher := newStatusWatcher(deps.Registry, deps.Stats)
	spec := deps.Config.StatusWatchSpec
	if spec != "" {
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), statusWatchTimeout)
			defer cancel()
			watcher.check(ctx)
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add status watch cron job")
		} else {
			log.Print(nil).WithField("spec", spec).Info("Status watch cron enabled")
		}
	}

	if deps.DayLog != nil && deps.Config.Webhook.RetentionDays > 0 {
		days := deps.Config.Webhook.RetentionDays
		_, err := c.AddFunc(webhookPruneSpec, func() {
			removed, err := deps.DayLog.Prune(days)
			if err != nil {
				log.Print(nil).WithError(err).Error("Webhook log prune failed")
				return
			}
			log.Print(nil).WithField("removed", removed).WithField("retention_days", days).Info("Webhook log prune completed")
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add webhook log prune cron job")
		}
	}

	if deps.Versions != nil && deps.Config.Web.VersionRefreshSpec != "" {
		spec := deps.Config.Web.VersionRefreshSpec
		_, err := c.AddFunc(spec, func() {
			refreshVersion(deps.Versions, false)
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add WA Web version refresh cron job")
		} else {
			log.Print(nil).WithField("spec", spec).Info("WA Web version refresh cron enabled")
		}
	}

	c.Start()
}

func refreshVersion(r *webclient.VersionRefresher, force bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, refreshed, err := r.Refresh(ctx, force)
	if err != nil {
		log.Print(nil).WithField("version", status.Version).WithField("force", force).Error("WA Web version refresh failed: " + err.Error())
		return
	}
	log.Print(nil).WithField("version", status.Version).WithField("refreshed", refreshed).WithField("force", force).Info("WA Web version refresh completed")
}

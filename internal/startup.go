package internal

import (
	"context"
	"time"

	"github.com/vihking/whatsapp-integration/internal/config"
	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/pkg/log"
)

const startupInitTimeout = 30 * time.Second

func Startup(deps Dependencies) {
	log.Print(nil).Info("Running Startup Tasks")

	active := deps.Registry.Active()
	if c, ok := active.(provider.Configurer); ok && !c.Configured() {
		log.Provider(string(active.Type()), "startup").Warn("active integration is missing credentials")
	}

	log.Print(nil).
		WithField("integration", deps.Registry.ActiveType()).
		WithField("available", deps.Registry.Available()).
		WithField("webhook_url", deps.Config.WebhookURL()).
		WithField("panel_auth", deps.Config.Admin.AuthEnabled).
		Info("Integration configured")

	if deps.Config.Production && deps.Config.Webhook.VerifyToken == config.DefaultVerifyToken {
		log.Print(nil).Warn("WEBHOOK_VERIFY_TOKEN is still the default value")
	}

	if deps.DayLog != nil && deps.Config.Webhook.RetentionDays > 0 {
		if removed, err := deps.DayLog.Prune(deps.Config.Webhook.RetentionDays); err != nil {
			log.Print(nil).WithError(err).Warn("Failed to prune webhook logs")
		} else if removed > 0 {
			log.Print(nil).WithField("removed", removed).Info("Old webhook logs removed")
		}
	}

	// A stale client version makes pairing fail, refresh before connecting
	if deps.Versions != nil {
		refreshVersion(deps.Versions, true)
	}

	if !deps.Config.AutoInitialize {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupInitTimeout)
	defer cancel()

	result := active.Initialize(ctx)
	deps.Stats.LogResult("initialize", result.Success, result.Message)
	if !result.Success {
		log.Provider(string(active.Type()), "startup").Warn("Auto initialize failed: " + result.Message)
		return
	}
	log.Provider(string(active.Type()), "startup").Info(result.Message)
}

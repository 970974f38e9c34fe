package internal

import (
	"github.com/gofiber/fiber/v2"

	ctlAuth "github.com/vihking/whatsapp-integration/internal/auth"
	"github.com/vihking/whatsapp-integration/internal/config"
	ctlIndex "github.com/vihking/whatsapp-integration/internal/index"
	ctlIntegration "github.com/vihking/whatsapp-integration/internal/integration"
	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/provider/webclient"
	"github.com/vihking/whatsapp-integration/internal/stats"
	"github.com/vihking/whatsapp-integration/internal/webhook"
	"github.com/vihking/whatsapp-integration/pkg/auth"
	"github.com/vihking/whatsapp-integration/pkg/router"
)

// Dependencies are the long-lived objects built once in main.
type Dependencies struct {
	Config     config.Config
	Registry   *provider.Registry
	Stats      *stats.Store
	Normalizer *webhook.Normalizer
	DayLog     *webhook.DayLog
	Versions   *webclient.VersionRefresher
}

func Routes(app *fiber.App, deps Dependencies) {
	// Route for Index
	// ---------------------------------------------
	index := ctlIndex.Index(deps.Registry)
	if router.BaseURL == "" {
		app.Get("/", index)
	} else {
		app.Get(router.BaseURL, index)
		app.Get(router.BaseURL+"/", index)
	}
	app.Get(router.BaseURL+"/health", ctlIndex.Health)

	// ============================================================
	// PANEL LOGIN
	// ============================================================
	login := ctlAuth.NewLogin(deps.Config.Admin)
	app.Post(router.BaseURL+"/auth/login", login.Handle)

	// ============================================================
	// WEBHOOKS (Cloud API and Evolution bridge callbacks)
	// ============================================================
	hook := webhook.NewHandler(deps.Normalizer)
	for _, path := range []string{"/webhook", "/api/webhook/whatsapp"} {
		app.Get(router.BaseURL+path, hook.Verify)
		app.Post(router.BaseURL+path, hook.Receive)
	}

	// ============================================================
	// PANEL API (optional X-Admin-Secret / Bearer authentication)
	// ============================================================
	ctl := ctlIntegration.New(deps.Config, deps.Registry, deps.Stats)

	api := app.Group(router.BaseURL + "/api/whatsapp")
	if deps.Config.Admin.AuthEnabled {
		api.Use(auth.PanelAuth())
	}

	api.Post("/initialize", ctl.Initialize)
	api.Get("/status", ctl.Status)
	api.Get("/qrcode", ctl.QRCode)
	api.Post("/send", ctl.Send)
	api.Post("/send-welcome", ctl.SendWelcome)
	api.Post("/disconnect", ctl.Disconnect)
	api.Get("/stats", ctl.Stats)
	api.Post("/stats/reset", ctl.ResetStats)
	api.Get("/costs", ctl.Costs)
	api.Get("/logs", ctl.Logs)
	api.Post("/switch-type", ctl.SwitchType)
	api.Get("/config", ctl.Config)

	// Anything else
	app.Use(func(c *fiber.Ctx) error {
		return router.ResponseNotFound(c, "Rota não encontrada")
	})
}
